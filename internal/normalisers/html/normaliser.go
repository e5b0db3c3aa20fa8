// Package html splits HTML documents into knowledge records by converting
// them to Markdown and sectioning on headings.
package html

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/normalisers/markdown"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts the document's main content to Markdown and splits it
// into heading sections. The <title> element, or the file name, names any
// text before the first heading.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := html.Parse(strings.NewReader(string(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	title := raw.FallbackTitle()
	if node := findElement(doc, "title"); node != nil {
		if t := strings.TrimSpace(textContent(node)); t != "" {
			title = t
		}
	}

	content := doc
	for _, tag := range []string{"main", "article", "body"} {
		if node := findElement(doc, tag); node != nil {
			content = node
			break
		}
	}

	md, err := htmltomarkdown.ConvertNode(content)
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}

	return markdown.Sections(string(md), title), nil
}

// findElement returns the first element with the given tag, depth first.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
