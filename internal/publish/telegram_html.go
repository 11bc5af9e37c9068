package publish

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var tgMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// inline tags with a direct Telegram equivalent.
var tgInline = map[string]string{
	"b": "b", "strong": "b",
	"i": "i", "em": "i",
	"u": "u", "ins": "u",
	"s": "s", "strike": "s", "del": "s",
	"blockquote": "blockquote",
}

// TelegramHTML converts markdown to the HTML subset the Telegram Bot
// API accepts: <b>, <i>, <u>, <s>, <code>, <pre>, <a href>,
// <blockquote>. Block structure HTML can't carry over is turned into
// text: headings become bold lines, list items become bullet or
// numbered lines, rules become a divider. Unknown tags are dropped.
func TelegramHTML(md string) string {
	if strings.TrimSpace(md) == "" {
		return md
	}

	var buf bytes.Buffer
	if err := tgMarkdown.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return sanitizeTelegram(buf.String())
}

type tgList struct {
	ordered bool
	n       int
}

func sanitizeTelegram(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		sb    strings.Builder
		lists []tgList
		inPre bool // <pre> blocks keep text but suppress the inner <code>
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		switch tt {
		case html.TextToken:
			// The tokenizer hands text back with entities decoded, so the
			// escaping goldmark produced must be re-applied before the
			// Bot API sees it.
			sb.WriteString(html.EscapeString(tok.Data))

		case html.StartTagToken, html.SelfClosingTagToken:
			switch name := tok.Data; {
			case tgInline[name] != "":
				sb.WriteString("<" + tgInline[name] + ">")
			case name == "code":
				if !inPre {
					sb.WriteString("<code>")
				}
			case name == "pre":
				inPre = true
				sb.WriteString("<pre>")
			case name == "a":
				if href := attr(tok, "href"); href != "" {
					fmt.Fprintf(&sb, `<a href="%s">`, html.EscapeString(href))
				} else {
					sb.WriteString("<a>")
				}
			case name == "br":
				sb.WriteString("\n")
			case name == "ul":
				lists = append(lists, tgList{})
			case name == "ol":
				lists = append(lists, tgList{ordered: true})
			case name == "li":
				marker := "\n• "
				if n := len(lists); n > 0 && lists[n-1].ordered {
					lists[n-1].n++
					marker = fmt.Sprintf("\n%d. ", lists[n-1].n)
				}
				sb.WriteString(marker)
			case name == "hr":
				sb.WriteString("\n──────────\n")
			case isHeading(name):
				sb.WriteString("<b>")
			}

		case html.EndTagToken:
			switch name := tok.Data; {
			case tgInline[name] != "":
				sb.WriteString("</" + tgInline[name] + ">")
			case name == "code":
				if !inPre {
					sb.WriteString("</code>")
				}
			case name == "pre":
				inPre = false
				sb.WriteString("</pre>")
			case name == "a":
				sb.WriteString("</a>")
			case name == "p":
				sb.WriteString("\n\n")
			case name == "ul" || name == "ol":
				if len(lists) > 0 {
					lists = lists[:len(lists)-1]
				}
				sb.WriteString("\n")
			case isHeading(name):
				sb.WriteString("</b>\n\n")
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out
}

func isHeading(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
