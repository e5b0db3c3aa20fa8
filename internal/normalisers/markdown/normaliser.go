package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// PathSeparator joins heading titles into a TitlePath.
const PathSeparator = " > "

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise splits a markdown document into one record per heading section.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	return Sections(string(raw.Content), raw.FallbackTitle()), nil
}

var (
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	fenceLine   = regexp.MustCompile("^\\s*(```|~~~)")
)

type heading struct {
	level int
	title string
}

// Sections splits markdown on ATX headings. Every heading with body text
// becomes a record whose TitlePath is the chain of enclosing headings.
// Text before the first heading is filed under fallbackTitle. Headings
// inside fenced code blocks are ignored.
func Sections(content, fallbackTitle string) []domain.KnowledgeDocument {
	var (
		docs   []domain.KnowledgeDocument
		stack  []heading
		body   []string
		inCode bool
	)

	flush := func() {
		text := stripMarkdown(strings.Join(body, "\n"))
		body = body[:0]
		if text == "" {
			return
		}
		title, path := fallbackTitle, fallbackTitle
		if len(stack) > 0 {
			titles := make([]string, len(stack))
			for i, h := range stack {
				titles[i] = h.title
			}
			title = stack[len(stack)-1].title
			path = strings.Join(titles, PathSeparator)
		}
		docs = append(docs, domain.KnowledgeDocument{
			SectionTitle: title,
			Summary:      text,
			TitlePath:    path,
		})
	}

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if fenceLine.MatchString(line) {
			inCode = !inCode
			body = append(body, line)
			continue
		}
		m := headingLine.FindStringSubmatch(line)
		if inCode || m == nil {
			body = append(body, line)
			continue
		}

		flush()
		level := len(m[1])
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, heading{level: level, title: stripInline(m[2])})
	}
	flush()

	return docs
}

// Pre-compiled regular expressions for markdown stripping.
var (
	codeBlock    = regexp.MustCompile("(?s)(```|~~~).*?(```|~~~)")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)([^*_\n]+)(\*\*|__|\*)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}[ \t]*$`)
	listMarkers  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	tableRule    = regexp.MustCompile(`(?m)^[ \t]*\|?([ \t]*:?-{3,}:?[ \t]*\|)+([ \t]*:?-{3,}:?)?[ \t]*$`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting for plain text content.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = stripInline(content)
	content = multiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// stripInline removes span-level formatting, keeping the text.
func stripInline(s string) string {
	s = inlineCode.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	return strings.TrimSpace(s)
}
