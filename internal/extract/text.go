package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText returns the text of an HTML document, skipping scripts and styles
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	return extractVisibleText(doc), nil
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

// Sentence length bounds. Search snippets are short, so the lower bound is
// looser than for full pages.
const (
	minSentenceLen = 12
	maxSentenceLen = 500
)

// splitSentences splits text into sentences (simple heuristic)
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minSentenceLen && len(sentence) <= maxSentenceLen {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Only split when followed by whitespace, so "$1.5M" and "Inc.com" survive
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				flush()
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}

	return sentences
}
