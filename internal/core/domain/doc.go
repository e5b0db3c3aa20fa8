// Package domain defines the core business entities for bidscribe.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - OutlineNode: A node of the bid outline tree (chapters, sections, leaves)
//   - KnowledgeDocument: A retrievable section of the private knowledge corpus
//   - Group: A named collection of knowledge document references
//   - ChapterOutcome: The result of generating one chapter's structure
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
