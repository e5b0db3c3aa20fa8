package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
)

func sampleOutline() *domain.Outline {
	return &domain.Outline{
		Overview: "Road resurfacing",
		Chapters: []*domain.OutlineNode{{
			ID:    "1",
			Title: "Quality",
			Children: []*domain.OutlineNode{{
				ID:    "1.1",
				Title: "Controls",
				Children: []*domain.OutlineNode{
					{ID: "1.1.1", Title: "Inspections"},
					{ID: "1.1.2", Title: "Testing"},
				},
			}},
		}},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeOutlineFile(t *testing.T, name string) string {
	t.Helper()
	data, err := json.Marshal(sampleOutline())
	require.NoError(t, err)
	return writeFile(t, name, string(data))
}

func TestOutlineCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range outlineCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["titles"])
	assert.True(t, names["generate"])
	assert.True(t, names["fill"])
	assert.True(t, names["regenerate"])
}

func TestOutlineTitles_PrintsJSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.titles = []domain.ChapterTitle{
		{RatingItem: "Quality plan (10 points)", Title: "Quality Assurance"},
	}

	out, err := execute(t, "", "outline", "titles", "--requirements", "Quality plan (10 points)")

	require.NoError(t, err)
	var got []domain.ChapterTitle
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, testMocks.outline.titles, got)
}

func TestOutlineTitles_RequiresRequirements(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "outline", "titles", "--overview", "project")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirements are required")
}

func TestOutlineTitles_ReadsRequirementsFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, "scoring.txt", "  Safety (5 points)\n")
	testMocks.outline.titles = []domain.ChapterTitle{{RatingItem: "Safety (5 points)", Title: "Safety"}}

	out, err := execute(t, "", "outline", "titles", "--requirements-file", path)

	require.NoError(t, err)
	assert.Contains(t, out, `"new_title": "Safety"`)
}

func TestOutlineTitles_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	outlineService = nil

	_, err := execute(t, "", "outline", "titles", "--requirements", "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, errNotConfigured)
}

func TestOutlineGenerate_WritesJSONToStdout(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.result = &driving.OutlineResult{Outline: sampleOutline()}

	out, err := execute(t, "", "outline", "generate", "--requirements", "Quality", "--leaves", "12", "--content")

	require.NoError(t, err)
	var got domain.Outline
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "Quality", got.Chapters[0].Title)

	req := testMocks.outline.lastReq
	assert.Equal(t, "Quality", req.Requirements)
	assert.Equal(t, 12, req.LeafTarget)
	assert.True(t, req.WithContent)
	assert.Nil(t, req.Observer)
}

func TestOutlineGenerate_ReadsTitlesFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"mapped titles", `[{"rating_item":"a","new_title":"Quality"},{"rating_item":"b","new_title":"Safety"}]`},
		{"string array", `["Quality","Safety"]`},
		{"plain lines", "Quality\n\n  Safety  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()

			testMocks.outline.result = &driving.OutlineResult{Outline: sampleOutline()}
			path := writeFile(t, "titles.txt", tt.content)

			_, err := execute(t, "", "outline", "generate", "--titles", path)

			require.NoError(t, err)
			assert.Equal(t, []string{"Quality", "Safety"}, testMocks.outline.lastReq.Titles)
		})
	}
}

func TestOutlineGenerate_RequiresTitlesOrRequirements(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "outline", "generate", "--overview", "project")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --titles or requirements are required")
}

func TestOutlineGenerate_WarnsOnExhaustedChapters(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.result = &driving.OutlineResult{
		Outline: sampleOutline(),
		Outcomes: []domain.ChapterOutcome{
			{Index: 0, State: domain.ChapterExhausted, Attempts: 4, Err: errors.New("leaf count 3, want 2")},
		},
	}

	out, err := execute(t, "", "outline", "generate", "--requirements", "Quality")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: chapter 1 kept its skeleton after 4 attempt(s): leaf count 3, want 2")
}

func TestOutlineGenerate_WritesYAMLFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.result = &driving.OutlineResult{Outline: sampleOutline()}
	path := filepath.Join(t.TempDir(), "outline.yaml")

	out, err := execute(t, "", "outline", "generate", "--requirements", "Quality", "-o", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Outline written to "+path+" (2 sections)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got domain.Outline
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "1.1.2", got.Chapters[0].Children[0].Children[1].ID)
}

func TestOutlineGenerate_UnknownFormat(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.result = &driving.OutlineResult{Outline: sampleOutline()}

	_, err := execute(t, "", "outline", "generate", "--requirements", "Quality", "--format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestOutlineGenerate_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.outline.err = domain.ErrLLMUnavailable

	_, err := execute(t, "", "outline", "generate", "--requirements", "Quality")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestOutlineGenerate_WritesPartialOutlineOnError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	transport := &domain.ProviderError{Kind: domain.ProviderErrTransport, Provider: "mock", Err: errors.New("connection reset")}
	testMocks.outline.result = &driving.OutlineResult{
		Outline: sampleOutline(),
		Outcomes: []domain.ChapterOutcome{
			{Index: 0, State: domain.ChapterExhausted, Attempts: 1, Err: transport},
		},
	}
	testMocks.outline.err = transport
	path := filepath.Join(t.TempDir(), "partial.json")

	out, err := execute(t, "", "outline", "generate", "--requirements", "Quality", "-o", path)

	require.Error(t, err)
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderErrTransport, pe.Kind)
	assert.Contains(t, err.Error(), "outline is incomplete")
	assert.Contains(t, out, "Outline written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got domain.Outline
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "Quality", got.Chapters[0].Title)
}

func TestOutlineFill_WritesContent(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeOutlineFile(t, "outline.json")

	out, err := execute(t, "", "outline", "fill", path)

	require.NoError(t, err)
	var got domain.Outline
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Written: Inspections", got.Find("1.1.1").Content)
	assert.Equal(t, "Written: Testing", got.Find("1.1.2").Content)
}

func TestOutlineFill_RejectsEmptyOutline(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, "empty.json", `{"outline":[]}`)

	_, err := execute(t, "", "outline", "fill", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOutlineRegenerate_PassesInstruction(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeOutlineFile(t, "outline.json")

	out, err := execute(t, "", "outline", "regenerate", path, "1.1.2", "--prompt", "mention ISO 9001", "-f", "yaml")

	require.NoError(t, err)
	assert.Equal(t, "1.1.2", testMocks.outline.lastID)
	assert.Equal(t, "mention ISO 9001", testMocks.outline.lastInst)

	var got domain.Outline
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Rewritten: mention ISO 9001", got.Find("1.1.2").Content)
}

func TestOutlineRegenerate_UnknownSection(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeOutlineFile(t, "outline.json")

	_, err := execute(t, "", "outline", "regenerate", path, "9.9.9")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "section 9.9.9")
}

func TestReadTitles_MissingFile(t *testing.T) {
	_, err := readTitles(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestIsYAMLPath(t *testing.T) {
	assert.True(t, isYAMLPath("out.yaml"))
	assert.True(t, isYAMLPath("OUT.YML"))
	assert.False(t, isYAMLPath("out.json"))
	assert.False(t, isYAMLPath(""))
}

func TestOutlineAnalyze_StreamsToStdout(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "outline", "analyze", "tender.docx")

	require.NoError(t, err)
	assert.Equal(t, "Depot extension for the county fleet.\n", out)
	assert.Equal(t, domain.AnalysisOverview, testMocks.analysis.lastKind)
	assert.Equal(t, "tender.docx", testMocks.analysis.lastPath)
}

func TestOutlineAnalyze_RequirementsToFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.analysis.result = "Item: Programme\nWeight: 20 points"
	path := filepath.Join(t.TempDir(), "scoring.txt")

	out, err := execute(t, "", "outline", "analyze", "--type", "requirements", "-o", path, "tender.md")

	require.NoError(t, err)
	assert.Equal(t, "Requirements written to "+path+"\n", out)
	assert.Equal(t, domain.AnalysisRequirements, testMocks.analysis.lastKind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Item: Programme\nWeight: 20 points\n", string(data))
}

func TestOutlineAnalyze_Errors(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "", "outline", "analyze", "--type", "pricing", "tender.md")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("service error", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		testMocks.analysis.err = domain.ErrLLMUnavailable

		_, err := execute(t, "", "outline", "analyze", "tender.md")

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		analysisService = nil

		_, err := execute(t, "", "outline", "analyze", "tender.md")

		assert.ErrorIs(t, err, errNotConfigured)
	})

	t.Run("missing file argument", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "", "outline", "analyze")

		assert.Error(t, err)
	})
}
