package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument is an uploaded file before it is split into knowledge records.
type RawDocument struct {
	// URI is the original location (file path or name).
	URI string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// FallbackTitle derives a readable title from the URI's file name.
func (r RawDocument) FallbackTitle() string {
	name := filepath.Base(r.URI)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
