// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// ChapterUpdated carries one chapter state transition from the orchestrator.
type ChapterUpdated struct {
	Event domain.ChapterEvent
}

// RunFinished is sent once the generation run returns.
type RunFinished struct {
	Err error
}
