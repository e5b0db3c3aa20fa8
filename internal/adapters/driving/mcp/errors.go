// Package mcp provides an MCP (Model Context Protocol) server adapter for bidscribe.
// It lets AI assistants query the bid knowledge base while drafting proposals.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingLibraryService is returned by handlers that need the library service.
var ErrMissingLibraryService = errors.New("mcp: library service is not available")
