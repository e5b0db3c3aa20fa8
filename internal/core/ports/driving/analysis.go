package driving

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// AnalysisService extracts outline inputs from tender documents.
type AnalysisService interface {
	// AnalyzeFile reads a tender document and returns the project overview
	// or the technical scoring requirements it contains. onToken, when not
	// nil, receives the reply as it streams in.
	AnalyzeFile(ctx context.Context, kind domain.AnalysisKind, path string, onToken func(string)) (string, error)
}
