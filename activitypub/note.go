package activitypub

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Note is the post carried by a Create.
type Note struct {
	ID           string
	Type         string
	AttributedTo string
	InReplyTo    string
	Content      string
	Tags         []Tag
}

// Tag is an entry of a post's tag property.
type Tag struct {
	Type string
	Name string
	Href string
}

func parseNote(obj map[string]any) *Note {
	n := &Note{
		ID:           stringFromAny(obj["id"]),
		Type:         typeOf(obj),
		AttributedTo: idOf(obj["attributedTo"]),
		InReplyTo:    idOf(obj["inReplyTo"]),
		Content:      stringFromAny(obj["content"]),
	}
	if n.Content == "" {
		// some servers only send contentMap.
		for _, v := range mapFromAny(obj["contentMap"]) {
			if s := stringFromAny(v); s != "" {
				n.Content = s
				break
			}
		}
	}
	for _, t := range anyToSlice(obj["tag"]) {
		if m := mapFromAny(t); m != nil {
			n.Tags = append(n.Tags, Tag{
				Type: typeOf(m),
				Name: stringFromAny(m["name"]),
				Href: stringFromAny(m["href"]),
			})
		}
	}
	return n
}

// hashtag matches a hashtag in free text.
func hashtag(marker string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^\w#])#` + regexp.QuoteMeta(strings.TrimPrefix(marker, "#")) + `\b`)
}

// hasTag reports whether the note carries the marker hashtag, either as a
// structured Hashtag or written in its content.
func (n *Note) hasTag(marker string, re *regexp.Regexp) bool {
	name := "#" + strings.TrimPrefix(marker, "#")
	for _, t := range n.Tags {
		if strings.EqualFold(t.Type, "Hashtag") && (strings.EqualFold(t.Name, name) || strings.EqualFold(t.Name, name[1:])) {
			return true
		}
	}
	return re.MatchString(n.Content) || re.MatchString(textContent(n.Content))
}

// bareURL matches an http or https URL in plain text.
var bareURL = regexp.MustCompile(`https?://[^\s<>"']+`)

// links returns the http and https links of the note in document order.
// Anchors that are hashtags or mentions are skipped. If the content has no
// other anchors its text is scanned for bare URLs instead.
func (n *Note) links() []string {
	if links := anchors(n.Content); len(links) > 0 {
		return links
	}
	var links []string
	for _, raw := range bareURL.FindAllString(textContent(n.Content), -1) {
		if link, ok := httpURL(strings.TrimRight(raw, ".,;:!?)]}")); ok {
			links = append(links, link)
		}
	}
	return links
}

func httpURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw, true
	default:
		return "", false
	}
}

func parseFragment(s string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil
	}
	return nodes
}

func walk(nodes []*html.Node, fn func(*html.Node) bool) {
	var f func(*html.Node)
	f = func(n *html.Node) {
		if !fn(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	for _, n := range nodes {
		f(n)
	}
}

func anchors(content string) []string {
	if !strings.Contains(content, "<") {
		return nil
	}
	var links []string
	walk(parseFragment(content), func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		var href string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "href":
				href = strings.TrimSpace(attr.Val)
			case "rel":
				if hasField(attr.Val, "tag") {
					return false
				}
			case "class":
				if hasField(attr.Val, "mention") || hasField(attr.Val, "hashtag") {
					return false
				}
			}
		}
		if link, ok := httpURL(href); ok {
			links = append(links, link)
		}
		return false
	})
	return links
}

func hasField(s, field string) bool {
	for _, f := range strings.Fields(s) {
		if strings.EqualFold(f, field) {
			return true
		}
	}
	return false
}

// textContent returns the text of an HTML fragment with block elements
// separated by spaces.
func textContent(s string) string {
	if !strings.Contains(s, "<") {
		return html.UnescapeString(s)
	}
	var b strings.Builder
	walk(parseFragment(s), func(n *html.Node) bool {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return false
			case atom.P, atom.Div, atom.Br, atom.Li:
				b.WriteString(" ")
			}
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
