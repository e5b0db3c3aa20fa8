package driving

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// OutlineRequest describes one outline generation run.
type OutlineRequest struct {
	// Overview is the project description.
	Overview string

	// Requirements is the scoring criteria text.
	Requirements string

	// Titles are the first-level chapter titles. When empty they are
	// generated from Overview and Requirements.
	Titles []string

	// LeafTarget overrides the configured number of leaf sections.
	LeafTarget int

	// WithContent also synthesizes prose for every leaf.
	WithContent bool

	// Observer receives chapter state transitions. Optional.
	Observer func(domain.ChapterEvent)
}

// OutlineResult is the output of a generation run.
type OutlineResult struct {
	Outline  *domain.Outline
	Outcomes []domain.ChapterOutcome
}

// OutlineService generates bid outlines and their content.
type OutlineService interface {
	// GenerateTitles maps requirements to first-level chapter titles.
	GenerateTitles(ctx context.Context, overview, requirements string) ([]domain.ChapterTitle, error)

	// Generate builds the outline structure and, optionally, its content.
	Generate(ctx context.Context, req OutlineRequest) (*OutlineResult, error)

	// FillContent synthesizes prose for every leaf of an existing outline.
	FillContent(ctx context.Context, outline *domain.Outline) error

	// RegenerateSection rewrites a single leaf with an extra instruction.
	RegenerateSection(ctx context.Context, outline *domain.Outline, id, instruction string) error
}
