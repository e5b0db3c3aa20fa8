package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ChapterState is a step of the per-chapter structure generation machine.
type ChapterState string

// Chapter states. Accepted and Exhausted are terminal.
const (
	ChapterPending    ChapterState = "pending"
	ChapterDrafting   ChapterState = "drafting"
	ChapterValidating ChapterState = "validating"
	ChapterRetrying   ChapterState = "retrying"
	ChapterAccepted   ChapterState = "accepted"
	ChapterExhausted  ChapterState = "exhausted"
)

// IsTerminal returns true for Accepted and Exhausted.
func (s ChapterState) IsTerminal() bool {
	return s == ChapterAccepted || s == ChapterExhausted
}

// String returns the string representation.
func (s ChapterState) String() string {
	return string(s)
}

// ChapterEvent reports a state transition of one chapter.
type ChapterEvent struct {
	Index   int
	Title   string
	State   ChapterState
	Attempt int
	Err     error
}

// ChapterOutcome is the terminal result for one chapter.
type ChapterOutcome struct {
	// Index is the chapter position in the input.
	Index int

	// State is Accepted or Exhausted.
	State ChapterState

	// Attempts is the number of Drafting steps run.
	Attempts int

	// Tree is the accepted subtree, or the mold on exhaustion.
	Tree *OutlineNode

	// Err holds the last validation or transport failure.
	Err error
}

// ProviderErrorKind classifies generative provider failures.
type ProviderErrorKind string

// Provider failure kinds.
const (
	ProviderErrTransport   ProviderErrorKind = "transport"
	ProviderErrTimeout     ProviderErrorKind = "timeout"
	ProviderErrAuth        ProviderErrorKind = "auth"
	ProviderErrRateLimited ProviderErrorKind = "rate_limited"
	ProviderErrResponse    ProviderErrorKind = "response"
)

// ProviderError is the error half of a streamed provider result.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError, classifying HTTP status codes
// when status is non-zero and deadline failures when it is zero.
func NewProviderError(provider string, status int, err error) *ProviderError {
	kind := ProviderErrTransport
	switch {
	case status == 0 && errors.Is(err, context.DeadlineExceeded):
		kind = ProviderErrTimeout
	case status == 401 || status == 403:
		kind = ProviderErrAuth
	case status == 429:
		kind = ProviderErrRateLimited
		err = fmt.Errorf("%w: %w", ErrRateLimited, err)
	case status >= 400:
		kind = ProviderErrResponse
	}
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// IsProviderError reports whether err carries a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// StructureError describes how a generated tree diverged from its mold.
type StructureError struct {
	// Path is the ID of the mold node where the divergence was found.
	Path string

	// Reason is a short description of the mismatch.
	Reason string
}

func (e *StructureError) Error() string {
	var b strings.Builder
	b.WriteString("structure mismatch")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *StructureError) Unwrap() error {
	return ErrStructureMismatch
}

// AnalysisKind selects what is extracted from a tender document.
type AnalysisKind string

// Analysis kinds. Their results are the overview and requirements inputs
// of outline generation.
const (
	AnalysisOverview     AnalysisKind = "overview"
	AnalysisRequirements AnalysisKind = "requirements"
)

// MaxAnalysisChars caps the tender text sent for analysis.
const MaxAnalysisChars = 200000

// ParseAnalysisKind validates an analysis kind name.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch kind := AnalysisKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case AnalysisOverview, AnalysisRequirements:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown analysis type %q (want overview or requirements)", ErrInvalidInput, s)
	}
}
