package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/bidscribe/internal/adapters/driven/ai"
	"github.com/custodia-labs/bidscribe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidscribe/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/bidscribe/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/cli"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/core/services"
	"github.com/custodia-labs/bidscribe/internal/logger"
	"github.com/custodia-labs/bidscribe/internal/normalisers"
	"github.com/custodia-labs/bidscribe/internal/postprocessors"
)

// app builds the services a command needs and releases them on exit.
type app struct {
	settings driving.SettingsService
	closers  []io.Closer
	cancel   context.CancelFunc
}

func newApp(settings driving.SettingsService) *app {
	return &app{settings: settings}
}

// knowledge holds the services backed by the knowledge store.
type knowledge struct {
	library   *services.LibraryService
	retrieval *services.RetrievalService
	importer  *services.ImportService
}

// Bootstrap implements cli.BootstrapFunc.
func (a *app) Bootstrap(ctx context.Context, need cli.Need) (*cli.Services, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	switch need {
	case cli.NeedKnowledge:
		kn, err := a.openKnowledge(ctx, settings)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Library:   kn.library,
			Retrieval: kn.retrieval,
			Import:    kn.importer,
		}, nil

	case cli.NeedGeneration:
		return a.openGeneration(ctx, settings)

	default:
		return nil, nil
	}
}

func (a *app) openKnowledge(ctx context.Context, settings *domain.AppSettings) (*knowledge, error) {
	if !settings.Knowledge.Enabled {
		return nil, fmt.Errorf("%w: run 'bidscribe settings set knowledge.enabled true'", domain.ErrKnowledgeDisabled)
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
	}
	a.closers = append(a.closers, embedder)

	store, err := sqlite.NewStore(settings.Knowledge.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	a.closers = append(a.closers, store)
	logger.Debug("Knowledge store: %s", store.Path())

	groups, err := jsonfile.NewGroupStore(settings.Knowledge.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening group store: %w", err)
	}
	watchCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if err := groups.Watch(watchCtx); err != nil {
		logger.Warn("Group file changes from other processes will not be picked up: %v", err)
	}

	kb := services.NewKnowledgeBase(store.DocumentIndex(), embedder)
	library := services.NewLibraryService(kb, groups)

	registry := newNormaliserRegistry()

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, postprocessors.DefaultOrder, nil)
	if err != nil {
		return nil, fmt.Errorf("building import pipeline: %w", err)
	}

	return &knowledge{
		library:   library,
		retrieval: services.NewRetrievalService(kb, groups),
		importer:  services.NewImportService(registry, pipeline, library, normalisers.DetectMIMEType),
	}, nil
}

func (a *app) openGeneration(ctx context.Context, settings *domain.AppSettings) (*cli.Services, error) {
	provider, err := ai.CreateAndValidateChatProvider(&settings.LLM, settings.Generation.RequestsPerSecond)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, provider)

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	out := &cli.Services{}

	// Content is written without references when the store is unavailable.
	var refs services.ReferenceFinder
	kn, err := a.openKnowledge(ctx, settings)
	switch {
	case err == nil:
		refs = kn.retrieval
		out.Library = kn.library
		out.Retrieval = kn.retrieval
	case errors.Is(err, domain.ErrKnowledgeDisabled):
		logger.Debug("Knowledge store disabled; content will not cite references")
	default:
		fmt.Fprintf(os.Stderr, "Warning: knowledge store unavailable, content will not cite references: %v\n", err)
	}

	out.Outline = services.NewOutlineService(provider, prompts, refs, settings.Generation, nil)
	out.Analysis = services.NewAnalysisService(provider, prompts, newNormaliserRegistry(),
		normalisers.DetectMIMEType, settings.Generation.Temperature)
	return out, nil
}

func newNormaliserRegistry() *normalisers.Registry {
	registry := normalisers.NewRegistry()
	normalisers.RegisterDefaults(registry)
	return registry
}

// Close releases everything opened by Bootstrap in reverse order.
func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	a.closers = nil
}
