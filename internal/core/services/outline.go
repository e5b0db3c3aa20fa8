package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// Ensure OutlineService implements the interface.
var _ driving.OutlineService = (*OutlineService)(nil)

// OutlineService runs the whole pipeline: chapter titles, skeleton
// distribution, concurrent structure generation and content synthesis.
type OutlineService struct {
	prompts      driven.PromptStore
	settings     domain.GenerationSettings
	distributor  *SkeletonDistributor
	orchestrator *Orchestrator
	synthesizer  *Synthesizer
}

// NewOutlineService wires the pipeline. refs may be nil when the knowledge
// store is disabled; policy may be nil for the fixed partition.
func NewOutlineService(
	provider driven.ChatProvider,
	prompts driven.PromptStore,
	refs ReferenceFinder,
	settings domain.GenerationSettings,
	policy PartitionPolicy,
) *OutlineService {
	return &OutlineService{
		prompts:      prompts,
		settings:     settings,
		distributor:  NewSkeletonDistributor(policy),
		orchestrator: NewOrchestrator(provider, prompts, OrchestratorConfigFrom(settings)),
		synthesizer: NewSynthesizer(provider, prompts, refs, SynthesizerConfig{
			Temperature: settings.Temperature,
			References:  settings.References,
		}),
	}
}

// titlesPromptData feeds the outline_titles template.
type titlesPromptData struct {
	Overview     string
	Requirements string
}

// GenerateTitles asks the provider for one chapter title per scoring item.
// Replies are validated and retried within the same budget as chapters.
func (s *OutlineService) GenerateTitles(ctx context.Context, overview, requirements string) ([]domain.ChapterTitle, error) {
	logger.Section("Chapter Titles")
	if strings.TrimSpace(requirements) == "" {
		return nil, fmt.Errorf("requirements: %w", domain.ErrInvalidInput)
	}

	user, err := renderPrompt(s.prompts, driven.PromptOutlineTitles, titlesPromptData{
		Overview:     overview,
		Requirements: requirements,
	})
	if err != nil {
		return nil, err
	}
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptOutlineSystem)},
		{Role: driven.RoleUser, Content: user},
	}

	var titles []domain.ChapterTitle
	noEvents := func(domain.ChapterState, int, error) {}
	attempts, err := s.orchestrator.attemptLoop(ctx, messages, noEvents, func(text string) error {
		parsed, err := ParseChapterTitles(text)
		if err != nil {
			logger.Debug("Rejected titles reply: %v", err)
			return err
		}
		titles = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate titles: %w", err)
	}
	logger.Info("Generated %d chapter titles in %d attempts", len(titles), attempts)
	return titles, nil
}

// titleKeys are the wrapper keys tried first, in order.
var titleKeys = []string{"chapters", "titles", "outline"}

// ParseChapterTitles decodes a titles reply. A bare array is accepted, as is
// an object wrapping the array under one of titleKeys or under its only
// array-valued key.
func ParseChapterTitles(raw string) ([]domain.ChapterTitle, error) {
	text := cleanJSONOutput(raw)

	var titles []domain.ChapterTitle
	if err := json.Unmarshal([]byte(text), &titles); err != nil {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil, &domain.StructureError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		titles, err = unwrapChapterTitles(wrapped)
		if err != nil {
			return nil, err
		}
	}

	if len(titles) == 0 {
		return nil, &domain.StructureError{Reason: "no chapter titles"}
	}
	for i, t := range titles {
		if strings.TrimSpace(t.Title) == "" {
			return nil, &domain.StructureError{Path: fmt.Sprint(i + 1), Reason: "empty chapter title"}
		}
		titles[i].Title = strings.TrimSpace(t.Title)
	}
	return titles, nil
}

func unwrapChapterTitles(wrapped map[string]json.RawMessage) ([]domain.ChapterTitle, error) {
	for _, key := range titleKeys {
		value, ok := wrapped[key]
		if !ok {
			continue
		}
		var titles []domain.ChapterTitle
		if err := json.Unmarshal(value, &titles); err != nil {
			return nil, &domain.StructureError{Path: key, Reason: fmt.Sprintf("not a title list: %v", err)}
		}
		return titles, nil
	}

	var (
		keys   []string
		titles []domain.ChapterTitle
	)
	for key, value := range wrapped {
		var candidate []domain.ChapterTitle
		if err := json.Unmarshal(value, &candidate); err == nil {
			keys = append(keys, key)
			titles = candidate
		}
	}
	if len(keys) > 1 {
		sort.Strings(keys)
		return nil, &domain.StructureError{Reason: "more than one title list: " + strings.Join(keys, ", ")}
	}
	return titles, nil
}

// Generate builds the outline. Structure generation always completes for
// every chapter before content synthesis starts. Provider failures during
// structure generation are returned together with the partial outline and
// content synthesis is skipped.
func (s *OutlineService) Generate(ctx context.Context, req driving.OutlineRequest) (*driving.OutlineResult, error) {
	titles := req.Titles
	if len(titles) == 0 {
		generated, err := s.GenerateTitles(ctx, req.Overview, req.Requirements)
		if err != nil {
			return nil, err
		}
		for _, t := range generated {
			titles = append(titles, t.Title)
		}
	}

	target := req.LeafTarget
	if target <= 0 {
		target = s.settings.LeafTarget()
	}
	if target <= 0 {
		target = len(titles)
	}

	molds, err := s.distributor.Plan(titles, target)
	if err != nil {
		return nil, err
	}

	outcomes, runErr := s.orchestrator.Run(ctx, StructureRequest{
		Overview:     req.Overview,
		Requirements: req.Requirements,
		Molds:        molds,
		Observer:     req.Observer,
	})

	outline := &domain.Outline{Overview: req.Overview, Chapters: make([]*domain.OutlineNode, len(outcomes))}
	for i, out := range outcomes {
		outline.Chapters[i] = out.Tree
	}
	result := &driving.OutlineResult{Outline: outline, Outcomes: outcomes}

	if runErr != nil {
		return result, fmt.Errorf("generate structure: %w", runErr)
	}

	if req.WithContent {
		if err := s.synthesizer.Fill(ctx, outline, nil); err != nil {
			return result, fmt.Errorf("generate content: %w", err)
		}
	}
	return result, nil
}

// FillContent synthesizes prose for every leaf of an existing outline.
func (s *OutlineService) FillContent(ctx context.Context, outline *domain.Outline) error {
	return s.synthesizer.Fill(ctx, outline, nil)
}

// RegenerateSection rewrites one leaf with an extra instruction.
func (s *OutlineService) RegenerateSection(ctx context.Context, outline *domain.Outline, id, instruction string) error {
	return s.synthesizer.RegenerateLeaf(ctx, outline, id, instruction)
}
