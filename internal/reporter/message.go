package reporter

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const (
	telegramMaxLen = 4096
	// room for the "…and N more" trailer
	telegramReserve = 32
	excerptLen      = 200
)

// Subject is the email subject line for batch.
func Subject(batch Batch) string {
	return fmt.Sprintf("%d New Job(s) Matching Your Keywords", len(batch))
}

// TelegramText renders batch for Telegram's HTML parse mode. Length is counted in
// UTF-16 code units, as Telegram does. Jobs that would push the message past the
// limit are summarised in a trailing line; a first job that is too long on its
// own is cut.
func TelegramText(batch Batch) string {
	const budget = telegramMaxLen - telegramReserve

	var b strings.Builder
	n := 0
	for i, j := range batch {
		block := fmt.Sprintf("%s - %s\nMatches: %s",
			html.EscapeString(j.Title),
			html.EscapeString(j.Link),
			html.EscapeString(strings.Join(j.Matches, ", ")),
		)
		if i > 0 {
			block = "\n\n" + block
		}

		l := utf16Len(block)
		if i == 0 && l > budget {
			block = truncateHTML(block, budget-1) + "…"
			l = utf16Len(block)
		}
		if i > 0 && n+l > budget {
			fmt.Fprintf(&b, "\n\n…and %d more", len(batch)-i)
			break
		}
		b.WriteString(block)
		n += l
	}
	return b.String()
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncateHTML cuts escaped text to at most limit UTF-16 units without splitting
// a rune or an entity such as &amp;.
func truncateHTML(s string, limit int) string {
	n := 0
	end := len(s)
	for i, r := range s {
		w := utf16.RuneLen(r)
		if n+w > limit {
			end = i
			break
		}
		n += w
	}
	out := s[:end]
	if amp := strings.LastIndexByte(out, '&'); amp >= 0 && !strings.Contains(out[amp:], ";") {
		out = out[:amp]
	}
	return out
}

// EmailHTML renders batch as the HTML email body.
func EmailHTML(batch Batch) string {
	blocks := make([]string, 0, len(batch))
	for _, j := range batch {
		var b strings.Builder
		fmt.Fprintf(&b, "<b>%s</b><br>", html.EscapeString(j.Title))
		fmt.Fprintf(&b, "Matches: %s<br>", html.EscapeString(strings.Join(j.Matches, ", ")))
		if j.Link != "" {
			link := html.EscapeString(j.Link)
			fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", link, link)
		}
		if ex := Excerpt(j.Description, excerptLen); ex != "" {
			fmt.Fprintf(&b, "<br><i>%s</i>", html.EscapeString(ex))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "<br><br>")
}

// Excerpt turns an HTML or plain description into at most limit runes of
// normalised plain text.
func Excerpt(description string, limit int) string {
	if strings.TrimSpace(description) == "" || limit <= 0 {
		return ""
	}

	text := description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		text = doc.Text()
	}
	text = norm.NFC.String(strings.Join(strings.Fields(text), " "))

	rs := []rune(text)
	if len(rs) <= limit {
		return text
	}
	return strings.TrimSpace(string(rs[:limit])) + "…"
}
