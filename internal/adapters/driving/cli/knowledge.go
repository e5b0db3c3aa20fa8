package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

var (
	importGroup    string
	searchTopK     int
	searchTitle    string
	searchGroup    string
	searchJSON     bool
	getFields      []string
	getJSON        bool
	clearYes       bool
	reconcilePrune bool
	reconcileJSON  bool
)

const snippetMaxRunes = 160

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base",
	Long: `Import, search and maintain the knowledge base of past bid sections.

Every stored record is a section of a source document with its heading
breadcrumb and summary text. Records are embedded on import and retrieved by
semantic similarity when outline content is written.`,
	Annotations: needs(NeedKnowledge),
}

var knowledgeImportCmd = &cobra.Command{
	Use:   "import [path...]",
	Short: "Import files or directories",
	Long: `Import documents into the knowledge base.

Markdown, HTML, DOCX and plain text files are split into heading sections.
JSON files are read as records of {"doc_id", "section_title", "summary",
"title_path"}. Directories are walked recursively; hidden entries are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKnowledgeImport,
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Semantic search over stored sections.

--title keeps only sections whose title contains the given text
(case-sensitive). --group limits results to one group's documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runKnowledgeSearch,
}

var knowledgeGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeGet,
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its group references",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeDelete,
}

var knowledgeCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runKnowledgeCount,
}

var knowledgeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every document",
	Long:  `Delete every stored document and empty every group. Groups themselves are kept.`,
	Args:  cobra.NoArgs,
	RunE:  runKnowledgeClear,
}

var knowledgeReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check groups against stored documents",
	Long: `Report group references to documents that no longer exist and stored
documents no group refers to. --prune removes the dangling references.`,
	Args: cobra.NoArgs,
	RunE: runKnowledgeReconcile,
}

func init() {
	knowledgeImportCmd.Flags().StringVarP(&importGroup, "group", "g", domain.DefaultGroupName, "group to add the documents to")

	knowledgeSearchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", domain.DefaultTopK, "maximum number of results")
	knowledgeSearchCmd.Flags().StringVarP(&searchTitle, "title", "t", "", "only sections whose title contains this text")
	knowledgeSearchCmd.Flags().StringVarP(&searchGroup, "group", "g", "", "only documents of this group")
	knowledgeSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")

	knowledgeGetCmd.Flags().StringSliceVar(&getFields, "fields", nil, "fields to show: section_title, summary, title_path, embedding")
	knowledgeGetCmd.Flags().BoolVar(&getJSON, "json", false, "output as JSON")

	knowledgeClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")

	knowledgeReconcileCmd.Flags().BoolVar(&reconcilePrune, "prune", false, "remove dangling group references")
	knowledgeReconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "output the report as JSON")

	knowledgeCmd.AddCommand(knowledgeImportCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeGetCmd)
	knowledgeCmd.AddCommand(knowledgeDeleteCmd)
	knowledgeCmd.AddCommand(knowledgeCountCmd)
	knowledgeCmd.AddCommand(knowledgeClearCmd)
	knowledgeCmd.AddCommand(knowledgeReconcileCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeImport(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return notConfigured("import")
	}

	result, err := importService.ImportFiles(commandContext(cmd), importGroup, args)
	if result != nil {
		cmd.Printf("Imported %d record(s) from %d file(s) into group %q\n", result.Records, result.Files, importGroup)
		for _, path := range result.Skipped {
			cmd.Printf("  skipped: %s\n", path)
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func runKnowledgeSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}

	refs, err := retrievalService.Search(commandContext(cmd), args[0], domain.SearchOptions{
		TopK:        searchTopK,
		TitleFilter: searchTitle,
		Group:       searchGroup,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(refs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(refs) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, ref := range refs {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, ref.Document.SectionTitle, ref.Score)
		if ref.Document.TitlePath != "" {
			cmd.Printf("      Path: %s\n", ref.Document.TitlePath)
		}
		cmd.Printf("      Doc:  %s\n", ref.Document.DocID)
		if text := snippet(ref.Document.Summary); text != "" {
			cmd.Printf("      %s\n", text)
		}
		cmd.Println()
	}
	return nil
}

func runKnowledgeGet(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	fields := make([]domain.DocumentField, 0, len(getFields))
	for _, f := range getFields {
		field := domain.DocumentField(strings.TrimSpace(f))
		if !field.IsValid() {
			return fmt.Errorf("unknown field %q", f)
		}
		fields = append(fields, field)
	}

	doc, err := libraryService.Get(commandContext(cmd), args[0], fields...)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if getJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Document: %s\n", doc.DocID)
	if doc.SectionTitle != "" {
		cmd.Printf("  Title:     %s\n", doc.SectionTitle)
	}
	if doc.TitlePath != "" {
		cmd.Printf("  Path:      %s\n", doc.TitlePath)
	}
	if len(doc.Embedding) > 0 {
		cmd.Printf("  Embedding: %d dimensions\n", len(doc.Embedding))
	}
	if doc.Summary != "" {
		cmd.Println()
		cmd.Println(doc.Summary)
	}
	return nil
}

func runKnowledgeDelete(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	if err := libraryService.DeleteDocument(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runKnowledgeCount(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	stats, err := libraryService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}
	cmd.Printf("Sections:  %d\n", stats.Rows)
	cmd.Printf("Documents: %d\n", stats.Documents)
	cmd.Printf("Groups:    %d\n", stats.Groups)
	return nil
}

func runKnowledgeClear(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	if !clearYes {
		cmd.Print("Delete every document from the knowledge base? [y/N]: ")
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := libraryService.Clear(commandContext(cmd)); err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	cmd.Println("Knowledge base cleared.")
	return nil
}

func runKnowledgeReconcile(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	report, err := libraryService.Reconcile(commandContext(cmd), reconcilePrune)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if reconcileJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if report.DanglingCount() == 0 && len(report.Unreferenced) == 0 {
		cmd.Println("Groups and documents are consistent.")
		return nil
	}

	for group, ids := range report.Dangling {
		for _, id := range ids {
			cmd.Printf("  dangling: %s -> %s\n", group, id)
		}
	}
	for _, id := range report.Unreferenced {
		cmd.Printf("  unreferenced: %s\n", id)
	}
	cmd.Printf("%d dangling reference(s), %d unreferenced document(s)\n",
		report.DanglingCount(), len(report.Unreferenced))

	switch {
	case report.Pruned:
		cmd.Println("Dangling references removed.")
	case report.DanglingCount() > 0:
		cmd.Println("Run 'bidscribe knowledge reconcile --prune' to remove dangling references.")
	}
	return nil
}

// snippet returns the first line of text, shortened for display.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > snippetMaxRunes {
		return string(runes[:snippetMaxRunes]) + "..."
	}
	return text
}
