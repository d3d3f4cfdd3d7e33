package activitypub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoteHasTag(t *testing.T) {
	re := hashtag(DefaultTag)
	tests := map[string]struct {
		note Note
		want bool
	}{
		"structured hashtag":           {Note{Tags: []Tag{{Type: "Hashtag", Name: "#fediscus"}}}, true},
		"structured hashtag any case":  {Note{Tags: []Tag{{Type: "Hashtag", Name: "#FediScus"}}}, true},
		"structured hashtag no marker": {Note{Tags: []Tag{{Type: "Hashtag", Name: "fediscus"}}}, true},
		"mention with the same name":   {Note{Tags: []Tag{{Type: "Mention", Name: "#fediscus"}}}, false},
		"plain text":                   {Note{Content: "new post #fediscus"}, true},
		"rendered hashtag":             {Note{Content: `<p>new post <a href="https://a.example/tags/fediscus" class="mention hashtag" rel="tag">#<span>fediscus</span></a></p>`}, true},
		"longer tag":                   {Note{Content: "#fediscussion"}, false},
		"word suffix":                  {Note{Content: "foo#fediscus"}, false},
		"no tag":                       {Note{Content: "<p>hello</p>"}, false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.note.hasTag(DefaultTag, re))
		})
	}
}

func TestNoteLinks(t *testing.T) {
	tests := map[string]struct {
		content string
		want    []string
	}{
		"anchor": {
			content: `<p>I wrote <a href="https://blog.example/post">a post</a></p>`,
			want:    []string{"https://blog.example/post"},
		},
		"hashtags and mentions are skipped": {
			content: `<p><span class="h-card"><a href="https://a.example/@bob" class="u-url mention">@bob</a></span> <a href="https://a.example/tags/fediscus" class="mention hashtag" rel="tag">#fediscus</a> <a href="https://blog.example/post">post</a></p>`,
			want:    []string{"https://blog.example/post"},
		},
		"document order": {
			content: `<a href="https://one.example/">1</a><a href="https://two.example/">2</a>`,
			want:    []string{"https://one.example/", "https://two.example/"},
		},
		"non http anchors": {
			content: `<a href="mailto:me@example.com">mail</a> <a href="/relative">rel</a>`,
		},
		"bare url": {
			content: "see https://blog.example/post.",
			want:    []string{"https://blog.example/post"},
		},
		"bare url in html": {
			content: "<p>see (https://blog.example/post)</p>",
			want:    []string{"https://blog.example/post"},
		},
		"nothing": {
			content: "<p>just words</p>",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			n := Note{Content: tc.content}
			require.Equal(t, tc.want, n.links())
		})
	}
}

func TestTextContent(t *testing.T) {
	require := require.New(t)
	require.Equal("one two &", textContent("<p>one</p><p>two &amp;</p>"))
	require.Equal("a & b", textContent("a &amp; b"))
	require.Equal("x", textContent("<script>evil()</script><p>x</p>"))
}
