package gemini

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// maxErrorWords bounds how much of an error page ends up in a message bubble
const maxErrorWords = 40

// ExtractText returns the visible text of an HTML document (for proxy and gateway error pages)
func ExtractText(htmlContent []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(extractTitle(doc))
	text := cleanText(extractBodyText(doc))

	// Pages often repeat the title as the first heading
	if title != "" && !strings.HasPrefix(text, title) {
		text = strings.TrimSpace(title + " " + text)
	}

	return truncateWords(text, maxErrorWords), nil
}

// looksLikeHTML reports whether a response body is an HTML page
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 64)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// extractTitle finds and returns the page title
func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return getNodeText(n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}

	return ""
}

// extractBodyText collects text nodes, skipping non-visible elements
func extractBodyText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head", "noscript":
			return ""
		}
	}

	var text strings.Builder

	if n.Type == html.TextNode {
		text.WriteString(n.Data)
		text.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractBodyText(c))
	}

	return text.String()
}

// getNodeText extracts all text from a node and its children
func getNodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(getNodeText(c))
	}

	return text.String()
}

// cleanText collapses runs of whitespace
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateWords truncates text to approximately N words
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	return strings.Join(words[:maxWords], " ") + "..."
}
