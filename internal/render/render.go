// Package render turns notification text into what the detail view displays.
package render

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jdholdren/herald/internal/herald"
)

const dateLayout = "Jan 2, 2006, 03:04 PM"

var (
	headingLine = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
	policy      = descriptionPolicy()
)

func descriptionPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("p", "span")
	return p
}

// Description renders the light markup used in feed descriptions as HTML.
// Blank lines split paragraphs, lines starting with "- " become bullets and
// lines wrapped in ** become headings. Inline HTML is kept once sanitized.
func Description(raw string) string {
	var (
		b         strings.Builder
		paragraph []string
	)
	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(paragraph, "\n"))
		b.WriteString("</p>")
		paragraph = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "- "):
			flush()
			b.WriteString(`<p class="flex items-start gap-2"><span class="text-type-link mt-1">•</span><span>`)
			b.WriteString(strings.TrimSpace(trimmed[2:]))
			b.WriteString("</span></p>")
		case headingLine.MatchString(trimmed):
			flush()
			b.WriteString("<h4>")
			b.WriteString(html.EscapeString(headingLine.FindStringSubmatch(trimmed)[1]))
			b.WriteString("</h4>")
		default:
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()

	return policy.Sanitize(b.String())
}

// Date formats a feed date for display in loc. Dates that do not parse are
// returned unchanged.
func Date(raw string, loc *time.Location) string {
	t, ok := herald.ParseDate(raw)
	if !ok {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}
