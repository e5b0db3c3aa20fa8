package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/progress"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	outlineOverview         string
	outlineOverviewFile     string
	outlineRequirements     string
	outlineRequirementsFile string
	outlineTitlesFile       string
	outlineLeaves           int
	outlineWithContent      bool
	outlineProgress         bool
	outlineFormat           string
	outlineOutput           string
	outlinePrompt           string
	analyzeType             string
	analyzeOutput           string
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Generate bid outlines",
	Long: `Generate three-level bid outlines from a project overview and the
scoring requirements of a tender.

Chapter titles map one-to-one to scoring items. Each chapter is generated
concurrently against a skeleton that fixes its number of sections, and the
result can be filled with prose grounded in the knowledge base.`,
	Annotations: needs(NeedGeneration),
}

var outlineTitlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate first-level chapter titles",
	Long: `Map every scoring requirement to one first-level chapter title.

The result is a JSON array of {"rating_item", "new_title"} objects and can be
passed back to 'outline generate --titles'.`,
	Args: cobra.NoArgs,
	RunE: runOutlineTitles,
}

var outlineGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a full outline",
	Long: `Generate the complete outline tree.

Examples:
  bidscribe outline generate --overview-file project.md --requirements-file scoring.txt
  bidscribe outline generate --overview-file project.md --titles titles.json --content -o outline.yaml`,
	Args: cobra.NoArgs,
	RunE: runOutlineGenerate,
}

var outlineFillCmd = &cobra.Command{
	Use:   "fill [outline-file]",
	Short: "Write content for every section of an outline",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutlineFill,
}

var outlineRegenerateCmd = &cobra.Command{
	Use:   "regenerate [outline-file] [section-id]",
	Short: "Rewrite the content of one section",
	Long: `Rewrite the content of a single leaf section, optionally steered by an
extra instruction given with --prompt.`,
	Args: cobra.ExactArgs(2),
	RunE: runOutlineRegenerate,
}

var outlineAnalyzeCmd = &cobra.Command{
	Use:   "analyze [tender-file]",
	Short: "Extract the overview or scoring requirements from a tender",
	Long: `Read a tender document (.md, .html, .docx, .txt) and extract either the
project overview or the technical scoring requirements. The results are the
inputs of 'outline titles' and 'outline generate'.

Examples:
  bidscribe outline analyze --type overview tender.docx -o project.md
  bidscribe outline analyze --type requirements tender.docx -o scoring.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runOutlineAnalyze,
}

func init() {
	for _, c := range []*cobra.Command{outlineTitlesCmd, outlineGenerateCmd} {
		c.Flags().StringVar(&outlineOverview, "overview", "", "project overview text")
		c.Flags().StringVar(&outlineOverviewFile, "overview-file", "", "read the project overview from a file")
		c.Flags().StringVar(&outlineRequirements, "requirements", "", "scoring requirements text")
		c.Flags().StringVar(&outlineRequirementsFile, "requirements-file", "", "read the scoring requirements from a file")
	}
	for _, c := range []*cobra.Command{outlineGenerateCmd, outlineFillCmd, outlineRegenerateCmd} {
		c.Flags().StringVarP(&outlineFormat, "format", "f", "", "output format: json or yaml (default from output extension, else json)")
		c.Flags().StringVarP(&outlineOutput, "output", "o", "", "write the outline to a file instead of stdout")
	}

	outlineGenerateCmd.Flags().StringVar(&outlineTitlesFile, "titles", "", "chapter titles file (JSON from 'outline titles' or one title per line)")
	outlineGenerateCmd.Flags().IntVar(&outlineLeaves, "leaves", 0, "number of leaf sections (default from generation settings)")
	outlineGenerateCmd.Flags().BoolVar(&outlineWithContent, "content", false, "also write content for every section")
	outlineGenerateCmd.Flags().BoolVar(&outlineProgress, "progress", false, "show live chapter progress")

	outlineRegenerateCmd.Flags().StringVarP(&outlinePrompt, "prompt", "p", "", "extra instruction for the rewrite")

	outlineAnalyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", string(domain.AnalysisOverview), "what to extract: overview or requirements")
	outlineAnalyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the result to a file instead of stdout")

	outlineCmd.AddCommand(outlineTitlesCmd)
	outlineCmd.AddCommand(outlineGenerateCmd)
	outlineCmd.AddCommand(outlineFillCmd)
	outlineCmd.AddCommand(outlineRegenerateCmd)
	outlineCmd.AddCommand(outlineAnalyzeCmd)
	rootCmd.AddCommand(outlineCmd)
}

func runOutlineTitles(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return notConfigured("outline")
	}

	overview, err := textInput(outlineOverview, outlineOverviewFile)
	if err != nil {
		return err
	}
	requirements, err := textInput(outlineRequirements, outlineRequirementsFile)
	if err != nil {
		return err
	}
	if requirements == "" {
		return errors.New("requirements are required (--requirements or --requirements-file)")
	}

	titles, err := outlineService.GenerateTitles(commandContext(cmd), overview, requirements)
	if err != nil {
		return fmt.Errorf("failed to generate titles: %w", err)
	}

	data, err := json.MarshalIndent(titles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func runOutlineGenerate(cmd *cobra.Command, _ []string) error {
	if outlineService == nil {
		return notConfigured("outline")
	}

	overview, err := textInput(outlineOverview, outlineOverviewFile)
	if err != nil {
		return err
	}
	requirements, err := textInput(outlineRequirements, outlineRequirementsFile)
	if err != nil {
		return err
	}

	req := driving.OutlineRequest{
		Overview:     overview,
		Requirements: requirements,
		LeafTarget:   outlineLeaves,
		WithContent:  outlineWithContent,
	}
	if outlineTitlesFile != "" {
		req.Titles, err = readTitles(outlineTitlesFile)
		if err != nil {
			return err
		}
	}
	if len(req.Titles) == 0 && requirements == "" {
		return errors.New("either --titles or requirements are required")
	}

	// A provider failure still returns the outline built so far; it is
	// written out before the error is reported.
	result, genErr := generateOutline(cmd, req)
	if result == nil || result.Outline == nil {
		if genErr == nil {
			genErr = errors.New("no outline returned")
		}
		return fmt.Errorf("failed to generate outline: %w", genErr)
	}

	for _, outcome := range result.Outcomes {
		if outcome.State == domain.ChapterExhausted {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: chapter %d kept its skeleton after %d attempt(s): %v\n",
				outcome.Index+1, outcome.Attempts, outcome.Err)
		}
	}

	if err := writeOutline(cmd, result.Outline); err != nil {
		return errors.Join(err, genErr)
	}
	if genErr != nil {
		return fmt.Errorf("outline is incomplete: %w", genErr)
	}
	return nil
}

func generateOutline(cmd *cobra.Command, req driving.OutlineRequest) (*driving.OutlineResult, error) {
	ctx := commandContext(cmd)
	if !outlineProgress {
		return outlineService.Generate(ctx, req)
	}

	var result *driving.OutlineResult
	err := progress.Run(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(),
		func(ctx context.Context, observe func(domain.ChapterEvent)) error {
			req.Observer = observe
			var err error
			result, err = outlineService.Generate(ctx, req)
			return err
		})
	return result, err
}

func runOutlineFill(cmd *cobra.Command, args []string) error {
	if outlineService == nil {
		return notConfigured("outline")
	}

	outline, err := readOutline(args[0])
	if err != nil {
		return err
	}
	if err := outlineService.FillContent(commandContext(cmd), outline); err != nil {
		return fmt.Errorf("failed to fill content: %w", err)
	}
	return writeOutline(cmd, outline)
}

func runOutlineRegenerate(cmd *cobra.Command, args []string) error {
	if outlineService == nil {
		return notConfigured("outline")
	}

	outline, err := readOutline(args[0])
	if err != nil {
		return err
	}
	if err := outlineService.RegenerateSection(commandContext(cmd), outline, args[1], outlinePrompt); err != nil {
		return fmt.Errorf("failed to regenerate section %s: %w", args[1], err)
	}
	return writeOutline(cmd, outline)
}

// textInput returns the inline value, or the trimmed content of path.
func runOutlineAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return notConfigured("analysis")
	}

	kind, err := domain.ParseAnalysisKind(analyzeType)
	if err != nil {
		return err
	}

	// Stream to stdout unless the result goes to a file.
	out := cmd.OutOrStdout()
	var onToken func(string)
	if analyzeOutput == "" {
		onToken = func(token string) {
			fmt.Fprint(out, token)
		}
	}

	result, err := analysisService.AnalyzeFile(commandContext(cmd), kind, args[0], onToken)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", args[0], err)
	}

	if analyzeOutput == "" {
		fmt.Fprintln(out)
		return nil
	}
	if err := os.WriteFile(analyzeOutput, []byte(result+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", analyzeOutput, err)
	}
	cmd.Printf("%s written to %s\n", kindLabel(kind), analyzeOutput)
	return nil
}

func kindLabel(kind domain.AnalysisKind) string {
	if kind == domain.AnalysisRequirements {
		return "Requirements"
	}
	return "Overview"
}

func textInput(value, path string) (string, error) {
	if path == "" {
		return strings.TrimSpace(value), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// readTitles accepts the JSON output of 'outline titles', a JSON array of
// strings, or plain text with one title per line.
func readTitles(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}

	var mapped []domain.ChapterTitle
	if err := json.Unmarshal(data, &mapped); err == nil {
		titles := make([]string, 0, len(mapped))
		for _, t := range mapped {
			if title := strings.TrimSpace(t.Title); title != "" {
				titles = append(titles, title)
			}
		}
		return titles, nil
	}

	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var titles []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			titles = append(titles, line)
		}
	}
	return titles, nil
}

func readOutline(path string) (*domain.Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}

	var outline domain.Outline
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &outline)
	} else {
		err = json.Unmarshal(data, &outline)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse outline %s: %w", path, err)
	}
	if len(outline.Chapters) == 0 {
		return nil, fmt.Errorf("outline %s has no chapters: %w", path, domain.ErrInvalidInput)
	}
	return &outline, nil
}

func writeOutline(cmd *cobra.Command, outline *domain.Outline) error {
	format := outlineFormat
	if format == "" {
		format = formatJSON
		if isYAMLPath(outlineOutput) {
			format = formatYAML
		}
	}

	data, err := encodeOutline(outline, format)
	if err != nil {
		return err
	}

	if outlineOutput == "" {
		return writeAll(cmd.OutOrStdout(), data)
	}
	if err := os.WriteFile(outlineOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write outline: %w", err)
	}
	cmd.Printf("Outline written to %s (%d sections)\n", outlineOutput, outline.LeafCount())
	return nil
}

func encodeOutline(outline *domain.Outline, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		data, err := json.MarshalIndent(outline, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal outline: %w", err)
		}
		return append(data, '\n'), nil
	case formatYAML, "yml":
		data, err := yaml.Marshal(outline)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal outline: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
