package api

import "time"

// Author is the account that wrote a Comment.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

// Comment is a tracked note in the thread of a blog post.
type Comment struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	InReplyToID *string   `json:"in_reply_to_id"`
	Published   time.Time `json:"published"`
	LikesCount  uint32    `json:"likes_count"`
	SharesCount uint32    `json:"shares_count"`
	Author      *Author   `json:"author"`
}

// Comments is one page of the discussion of a blog post.
type Comments struct {
	Post     string     `json:"post"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
	Comments []*Comment `json:"comments"`
}
