package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// analysisPrompts maps each analysis kind to its template.
var analysisPrompts = map[domain.AnalysisKind]string{
	domain.AnalysisOverview:     driven.PromptAnalyzeOverview,
	domain.AnalysisRequirements: driven.PromptAnalyzeRequirements,
}

// AnalysisService turns a tender document into the overview and
// requirements texts that outline generation consumes.
type AnalysisService struct {
	provider    driven.ChatProvider
	prompts     driven.PromptStore
	registry    driven.NormaliserRegistry
	detect      MIMEDetector
	temperature float64
	maxChars    int
}

// NewAnalysisService creates an analysis service. prompts may be nil.
func NewAnalysisService(
	provider driven.ChatProvider,
	prompts driven.PromptStore,
	registry driven.NormaliserRegistry,
	detect MIMEDetector,
	temperature float64,
) *AnalysisService {
	return &AnalysisService{
		provider:    provider,
		prompts:     prompts,
		registry:    registry,
		detect:      detect,
		temperature: temperature,
		maxChars:    domain.MaxAnalysisChars,
	}
}

// analysisPromptData feeds the analyze_* templates.
type analysisPromptData struct {
	Document string
}

// AnalyzeFile implements driving.AnalysisService.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, kind domain.AnalysisKind, path string, onToken func(string)) (string, error) {
	logger.Section("Tender Analysis")
	name, ok := analysisPrompts[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown analysis type %q", domain.ErrInvalidInput, kind)
	}

	document, err := s.readDocument(ctx, path)
	if err != nil {
		return "", err
	}
	logger.Info("Analysing %s for %s (%d chars)", path, kind, len(document))

	prompt, err := renderPrompt(s.prompts, name, analysisPromptData{Document: document})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	stream := s.provider.Stream(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{
		Temperature: &s.temperature,
	})
	for token, err := range stream {
		if err != nil {
			return b.String(), asProviderError(s.provider.ModelName(), err)
		}
		b.WriteString(token)
		if onToken != nil {
			onToken(token)
		}
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("analyse %s: empty reply", path)
	}
	return result, nil
}

// readDocument extracts the text of a tender file with the normaliser
// registry, keeping section headings.
func (s *AnalysisService) readDocument(ctx context.Context, path string) (string, error) {
	mimeType := s.detect(path)
	if mimeType == "" {
		return "", fmt.Errorf("%w: unsupported file type %s", domain.ErrInvalidInput, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	sections, err := s.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, section := range sections {
		if section.SectionTitle != "" {
			b.WriteString("## ")
			b.WriteString(section.SectionTitle)
			b.WriteString("\n")
		}
		if section.Summary != "" {
			b.WriteString(section.Summary)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text in %s", domain.ErrInvalidInput, path)
	}
	if runes := []rune(text); len(runes) > s.maxChars {
		logger.Warn("Tender %s truncated from %d to %d characters", path, len(runes), s.maxChars)
		text = string(runes[:s.maxChars])
	}
	return text, nil
}
