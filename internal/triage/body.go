package triage

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// PlainBody returns the request's plain-text body. When body_text is empty
// but an HTML body is present, the HTML is converted to markdown-flavored
// text so downstream consumers (snippet redaction in particular) still see
// content instead of an empty string.
func (r *Request) PlainBody() string {
	if strings.TrimSpace(r.BodyText) != "" {
		return r.BodyText
	}
	if r.BodyHTML == "" {
		return r.BodyText
	}
	md, err := htmltomarkdown.ConvertString(r.BodyHTML)
	if err != nil {
		return r.BodyText
	}
	return md
}
