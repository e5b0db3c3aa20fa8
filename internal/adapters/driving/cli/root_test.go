package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/core/services"
)

// mockOutlineService implements driving.OutlineService.
type mockOutlineService struct {
	titles   []domain.ChapterTitle
	result   *driving.OutlineResult
	err      error
	lastReq  driving.OutlineRequest
	lastID   string
	lastInst string
	events   []domain.ChapterEvent
}

func (m *mockOutlineService) GenerateTitles(_ context.Context, _, _ string) ([]domain.ChapterTitle, error) {
	return m.titles, m.err
}

func (m *mockOutlineService) Generate(_ context.Context, req driving.OutlineRequest) (*driving.OutlineResult, error) {
	m.lastReq = req
	if req.Observer != nil {
		for _, ev := range m.events {
			req.Observer(ev)
		}
	}
	return m.result, m.err
}

func (m *mockOutlineService) FillContent(_ context.Context, outline *domain.Outline) error {
	if m.err != nil {
		return m.err
	}
	for _, chapter := range outline.Chapters {
		for _, leaf := range chapter.Leaves() {
			leaf.Content = "Written: " + leaf.Title
		}
	}
	return nil
}

func (m *mockOutlineService) RegenerateSection(_ context.Context, outline *domain.Outline, id, instruction string) error {
	m.lastID = id
	m.lastInst = instruction
	if m.err != nil {
		return m.err
	}
	node := outline.Find(id)
	if node == nil {
		return domain.ErrNotFound
	}
	node.Content = "Rewritten: " + instruction
	return nil
}

// mockRetrievalService implements driving.RetrievalService.
type mockRetrievalService struct {
	refs     []domain.Reference
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockRetrievalService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.Reference, error) {
	m.lastOpts = opts
	return m.refs, m.err
}

func (m *mockRetrievalService) ReferenceSections(_ context.Context, _, _ string, _ int) ([]domain.Reference, error) {
	return m.refs, m.err
}

// mockLibraryService implements driving.LibraryService.
type mockLibraryService struct {
	groups     []domain.Group
	docs       []domain.KnowledgeDocument
	doc        *domain.KnowledgeDocument
	report     *domain.ReconcileReport
	stats      *domain.KnowledgeStats
	err        error
	lastFields []domain.DocumentField
	calls      []string
}

func (m *mockLibraryService) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockLibraryService) Ingest(_ context.Context, group string, _ []domain.KnowledgeDocument) ([]string, error) {
	m.record("ingest " + group)
	return nil, m.err
}

func (m *mockLibraryService) Get(_ context.Context, docID string, fields ...domain.DocumentField) (*domain.KnowledgeDocument, error) {
	m.record("get " + docID)
	m.lastFields = fields
	return m.doc, m.err
}

func (m *mockLibraryService) DeleteDocument(_ context.Context, docID string) error {
	m.record("delete " + docID)
	return m.err
}

func (m *mockLibraryService) CreateGroup(_ context.Context, name, description string) error {
	m.record("create " + name + ":" + description)
	return m.err
}

func (m *mockLibraryService) DeleteGroup(_ context.Context, name string) error {
	m.record("delete-group " + name)
	return m.err
}

func (m *mockLibraryService) ListGroups(_ context.Context) ([]domain.Group, error) {
	return m.groups, m.err
}

func (m *mockLibraryService) GroupDocuments(_ context.Context, name string) ([]domain.KnowledgeDocument, error) {
	m.record("group-docs " + name)
	return m.docs, m.err
}

func (m *mockLibraryService) Reconcile(_ context.Context, prune bool) (*domain.ReconcileReport, error) {
	if prune {
		m.record("reconcile prune")
	} else {
		m.record("reconcile")
	}
	if m.err != nil {
		return nil, m.err
	}
	report := *m.report
	report.Pruned = prune
	return &report, nil
}

func (m *mockLibraryService) Clear(_ context.Context) error {
	m.record("clear")
	return m.err
}

func (m *mockLibraryService) Stats(_ context.Context) (*domain.KnowledgeStats, error) {
	return m.stats, m.err
}

// mockImportService implements driving.ImportService.
type mockImportService struct {
	result    *driving.ImportResult
	err       error
	lastGroup string
	lastPaths []string
}

func (m *mockImportService) ImportFiles(_ context.Context, group string, paths []string) (*driving.ImportResult, error) {
	m.lastGroup = group
	m.lastPaths = paths
	return m.result, m.err
}

// mockAnalysisService implements driving.AnalysisService. It streams
// result in two halves.
type mockAnalysisService struct {
	result   string
	err      error
	lastKind domain.AnalysisKind
	lastPath string
}

func (m *mockAnalysisService) AnalyzeFile(_ context.Context, kind domain.AnalysisKind, path string, onToken func(string)) (string, error) {
	m.lastKind = kind
	m.lastPath = path
	if m.err != nil {
		return "", m.err
	}
	if onToken != nil {
		half := len(m.result) / 2
		onToken(m.result[:half])
		onToken(m.result[half:])
	}
	return m.result, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	outline   *mockOutlineService
	retrieval *mockRetrievalService
	library   *mockLibraryService
	importer  *mockImportService
	analysis  *mockAnalysisService
	settings  *services.SettingsService
}

var testMocks *testServices

// setupTestServices installs mock services and returns a cleanup func
// restoring the previous ones.
func setupTestServices() func() {
	prevSettings := settingsService
	prevLibrary := libraryService
	prevRetrieval := retrievalService
	prevOutline := outlineService
	prevImport := importService
	prevAnalysis := analysisService
	prevBootstrap := bootstrap

	testMocks = &testServices{
		outline: &mockOutlineService{},
		retrieval: &mockRetrievalService{refs: []domain.Reference{{
			Document: domain.KnowledgeDocument{
				DocID:        "doc-1",
				SectionTitle: "Quality control",
				TitlePath:    "Plan > Quality control",
				Summary:      "Hold-point inspections.\nSecond line.",
			},
			Score: 0.87,
		}}},
		library: &mockLibraryService{
			groups: []domain.Group{
				{Name: domain.DefaultGroupName, DocIDs: []string{"doc-1"}},
				{Name: "Highways", Description: "Road tenders"},
			},
			docs: []domain.KnowledgeDocument{{DocID: "doc-1", SectionTitle: "Quality control", TitlePath: "Plan > Quality control"}},
			doc: &domain.KnowledgeDocument{
				DocID:        "doc-1",
				SectionTitle: "Quality control",
				TitlePath:    "Plan > Quality control",
				Summary:      "Hold-point inspections.",
			},
			report: &domain.ReconcileReport{},
			stats:  &domain.KnowledgeStats{Rows: 9, Documents: 3, Groups: 2},
		},
		importer: &mockImportService{result: &driving.ImportResult{Files: 2, Records: 5, DocIDs: []string{"a", "b"}}},
		analysis: &mockAnalysisService{result: "Depot extension for the county fleet."},
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
	}

	settingsService = testMocks.settings
	libraryService = testMocks.library
	retrievalService = testMocks.retrieval
	outlineService = testMocks.outline
	importService = testMocks.importer
	analysisService = testMocks.analysis
	bootstrap = nil

	return func() {
		settingsService = prevSettings
		libraryService = prevLibrary
		retrievalService = prevRetrieval
		outlineService = prevOutline
		importService = prevImport
		analysisService = prevAnalysis
		bootstrap = prevBootstrap
		resetFlags(rootCmd)
		rootCmd.SetIn(nil)
		rootCmd.SetErr(nil)
	}
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil) //nolint:errcheck
		} else {
			f.Value.Set(f.DefValue) //nolint:errcheck
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "bidscribe", rootCmd.Use)
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"outline", "knowledge", "group", "settings", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestNeedOf_InheritsFromParent(t *testing.T) {
	assert.Equal(t, NeedGeneration, needOf(outlineGenerateCmd))
	assert.Equal(t, NeedGeneration, needOf(outlineAnalyzeCmd))
	assert.Equal(t, NeedKnowledge, needOf(knowledgeSearchCmd))
	assert.Equal(t, NeedKnowledge, needOf(groupListCmd))
	assert.Equal(t, NeedKnowledge, needOf(mcpServeCmd))
	assert.Equal(t, Need(""), needOf(settingsShowCmd))
	assert.Equal(t, Need(""), needOf(versionCmd))
}

func TestPrepare_RunsBootstrapForAnnotatedCommands(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	libraryService = nil
	library := &mockLibraryService{stats: &domain.KnowledgeStats{Rows: 1, Documents: 1, Groups: 1}}
	var got []Need
	SetBootstrap(func(_ context.Context, need Need) (*Services, error) {
		got = append(got, need)
		return &Services{Library: library}, nil
	})

	out, err := execute(t, "", "knowledge", "count")

	require.NoError(t, err)
	assert.Equal(t, []Need{NeedKnowledge}, got)
	assert.Contains(t, out, "Documents: 1")
}

func TestPrepare_SkipsBootstrapForUnannotatedCommands(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	called := false
	SetBootstrap(func(context.Context, Need) (*Services, error) {
		called = true
		return nil, nil
	})

	_, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestPrepare_PropagatesBootstrapError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	SetBootstrap(func(context.Context, Need) (*Services, error) {
		return nil, domain.ErrLLMUnavailable
	})

	_, err := execute(t, "", "outline", "titles", "--requirements", "x")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLLMUnavailable))
}

func TestSetServices_IgnoresNilFields(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	SetServices(&Services{Outline: &mockOutlineService{}})
	SetServices(nil)

	assert.Same(t, testMocks.library, libraryService)
	assert.NotSame(t, testMocks.outline, outlineService)
}

func TestNotConfigured(t *testing.T) {
	err := notConfigured("outline")
	assert.ErrorIs(t, err, errNotConfigured)
	assert.Equal(t, "outline service not configured", err.Error())
}
