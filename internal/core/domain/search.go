package domain

// DefaultTopK is the number of hits returned when none is requested.
const DefaultTopK = 5

// ReferenceTopK is the number of references fed to each leaf section.
const ReferenceTopK = 3

// SearchOptions configures a knowledge search.
type SearchOptions struct {
	// TopK is the maximum number of hits.
	TopK int

	// TitleFilter, when set, keeps only rows whose section title contains
	// it as a case-sensitive substring.
	TitleFilter string

	// Group, when set, limits hits to documents referenced by that group.
	Group string
}
