package normalisers

import (
	"github.com/custodia-labs/bidscribe/internal/normalisers/docx"
	"github.com/custodia-labs/bidscribe/internal/normalisers/html"
	"github.com/custodia-labs/bidscribe/internal/normalisers/markdown"
	"github.com/custodia-labs/bidscribe/internal/normalisers/plaintext"
	"github.com/custodia-labs/bidscribe/internal/normalisers/records"
)

// RegisterDefaults registers all built-in normalisers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(records.New())
	r.Register(plaintext.New())
}
