package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// OrchestratorConfig tunes structured generation.
type OrchestratorConfig struct {
	// MaxAttempts is the total number of Drafting steps per chapter (default 4).
	MaxAttempts int

	// RetryBackoff is the fixed pause before each retry (default 500ms).
	// A negative value disables the pause.
	RetryBackoff time.Duration

	// AttemptTimeout bounds a single Drafting step; zero means no bound.
	AttemptTimeout time.Duration

	// Temperature is passed to the provider unchanged; zero is a valid
	// setting. Defaults come from domain.DefaultGenerationSettings.
	Temperature float64

	// MaxConcurrency caps concurrently drafted chapters; zero means one
	// task per chapter.
	MaxConcurrency int
}

// OrchestratorConfigFrom derives the orchestrator configuration from settings.
func OrchestratorConfigFrom(g domain.GenerationSettings) OrchestratorConfig {
	return OrchestratorConfig{
		MaxAttempts:    g.MaxAttempts,
		RetryBackoff:   g.RetryBackoff,
		AttemptTimeout: g.AttemptTimeout,
		Temperature:    g.Temperature,
	}
}

// Orchestrator generates chapter structures concurrently, validating each
// reply against its mold and retrying within a fixed budget.
type Orchestrator struct {
	provider driven.ChatProvider
	prompts  driven.PromptStore
	cfg      OrchestratorConfig
}

// NewOrchestrator creates an orchestrator. prompts may be nil.
func NewOrchestrator(provider driven.ChatProvider, prompts driven.PromptStore, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = domain.DefaultRetryBackoff
	}
	return &Orchestrator{provider: provider, prompts: prompts, cfg: cfg}
}

// StructureRequest is the shared context of one structure run.
type StructureRequest struct {
	Overview     string
	Requirements string
	Molds        []domain.SkeletonMold
	Observer     func(domain.ChapterEvent)
}

// chapterPromptData feeds the outline_chapter template.
type chapterPromptData struct {
	Overview      string
	Requirements  string
	Mold          string
	OtherChapters []string
}

// Run drafts every chapter concurrently and returns the outcomes in chapter
// order once all of them are terminal. Chapters that fail validation on
// every attempt fall back to their mold. Provider failures are not retried;
// they are returned joined after every chapter has finished.
func (o *Orchestrator) Run(ctx context.Context, req StructureRequest) ([]domain.ChapterOutcome, error) {
	logger.Section("Structure Generation")
	logger.Info("Chapters: %d, attempts per chapter: %d", len(req.Molds), o.cfg.MaxAttempts)

	emit := serialise(req.Observer)
	outcomes := make([]domain.ChapterOutcome, len(req.Molds))

	var g errgroup.Group
	if o.cfg.MaxConcurrency > 0 {
		g.SetLimit(o.cfg.MaxConcurrency)
	}
	for i := range req.Molds {
		g.Go(func() error {
			outcomes[i] = o.runChapter(ctx, req, i, emit)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, out := range outcomes {
		if out.Err != nil && !errors.Is(out.Err, domain.ErrRetriesExhausted) {
			errs = append(errs, fmt.Errorf("chapter %d: %w", out.Index+1, out.Err))
		}
	}
	return outcomes, errors.Join(errs...)
}

// runChapter drives one chapter through Drafting, Validating and Retrying
// until it is Accepted or Exhausted.
func (o *Orchestrator) runChapter(
	ctx context.Context, req StructureRequest, index int, emit func(domain.ChapterEvent),
) domain.ChapterOutcome {
	mold := req.Molds[index]
	log := logger.Scope(fmt.Sprintf("chapter %d", index+1))
	event := func(state domain.ChapterState, attempt int, err error) {
		emit(domain.ChapterEvent{Index: index, Title: mold.Root.Title, State: state, Attempt: attempt, Err: err})
	}

	messages, err := o.chapterMessages(req, index)
	if err != nil {
		event(domain.ChapterExhausted, 0, err)
		return domain.ChapterOutcome{Index: index, State: domain.ChapterExhausted, Tree: mold.Root.Clone(), Err: err}
	}

	var accepted *domain.OutlineNode
	attempts, err := o.attemptLoop(ctx, messages, event, func(text string) error {
		tree, err := ParseChapter(text)
		if err == nil {
			err = ValidateStructure(mold.Root, tree)
		}
		if err != nil {
			log.Debug("Rejected reply: %v", err)
			return err
		}
		accepted = tree
		return nil
	})

	if err != nil {
		log.Warn("Falling back to blank mold after %d attempts: %v", attempts, err)
		event(domain.ChapterExhausted, attempts, err)
		return domain.ChapterOutcome{
			Index:    index,
			State:    domain.ChapterExhausted,
			Attempts: attempts,
			Tree:     mold.Root.Clone(),
			Err:      err,
		}
	}

	log.Info("Accepted on attempt %d", attempts)
	event(domain.ChapterAccepted, attempts, nil)
	return domain.ChapterOutcome{
		Index:    index,
		State:    domain.ChapterAccepted,
		Attempts: attempts,
		Tree:     PinMold(mold.Root, accepted),
	}
}

// attemptLoop runs up to MaxAttempts Drafting steps with the same messages.
// accept validates a buffered reply. A provider error ends the loop at once.
// Exhaustion is reported as domain.ErrRetriesExhausted wrapping the last
// validation error.
func (o *Orchestrator) attemptLoop(
	ctx context.Context,
	messages []driven.ChatMessage,
	event func(domain.ChapterState, int, error),
	accept func(text string) error,
) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			event(domain.ChapterRetrying, attempt, lastErr)
			if err := o.pause(ctx); err != nil {
				return attempt - 1, err
			}
		}

		event(domain.ChapterDrafting, attempt, nil)
		text, err := o.draft(ctx, messages)
		if err != nil {
			return attempt, err
		}

		event(domain.ChapterValidating, attempt, nil)
		if lastErr = accept(text); lastErr == nil {
			return attempt, nil
		}
	}
	return o.cfg.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, o.cfg.MaxAttempts, lastErr)
}

// draft buffers one complete streamed reply.
func (o *Orchestrator) draft(ctx context.Context, messages []driven.ChatMessage) (string, error) {
	if o.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		defer cancel()
	}

	text, err := driven.Collect(o.provider.Stream(ctx, messages, driven.ChatOptions{
		Temperature: &o.cfg.Temperature,
		JSON:        true,
	}))
	if err != nil {
		return "", asProviderError(o.provider.ModelName(), err)
	}
	return text, nil
}

func (o *Orchestrator) pause(ctx context.Context) error {
	if o.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// chapterMessages builds the system and user messages for one chapter.
func (o *Orchestrator) chapterMessages(req StructureRequest, index int) ([]driven.ChatMessage, error) {
	moldJSON, err := json.MarshalIndent(req.Molds[index].Root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode mold: %w", err)
	}

	others := make([]string, 0, len(req.Molds)-1)
	for i, m := range req.Molds {
		if i != index {
			others = append(others, m.Root.Title)
		}
	}

	user, err := renderPrompt(o.prompts, driven.PromptOutlineChapter, chapterPromptData{
		Overview:      req.Overview,
		Requirements:  req.Requirements,
		Mold:          string(moldJSON),
		OtherChapters: others,
	})
	if err != nil {
		return nil, err
	}

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(o.prompts, driven.PromptOutlineSystem)},
		{Role: driven.RoleUser, Content: user},
	}, nil
}

// asProviderError makes sure a stream failure carries a ProviderError.
func asProviderError(provider string, err error) error {
	if domain.IsProviderError(err) {
		return err
	}
	kind := domain.ProviderErrTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.ProviderErrTimeout
	}
	return &domain.ProviderError{Kind: kind, Provider: provider, Err: err}
}

// serialise wraps an observer so concurrent chapters never call it in parallel.
func serialise(observer func(domain.ChapterEvent)) func(domain.ChapterEvent) {
	if observer == nil {
		return func(domain.ChapterEvent) {}
	}
	var mu sync.Mutex
	return func(e domain.ChapterEvent) {
		mu.Lock()
		defer mu.Unlock()
		observer(e)
	}
}
