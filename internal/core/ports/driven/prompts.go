package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
// Templates use text/template syntax; the data passed to each is listed below.
const (
	// PromptOutlineSystem is the system prompt for every outline request.
	// No template data.
	PromptOutlineSystem = "outline_system"

	// PromptOutlineTitles maps scoring requirements to first-level titles.
	// Data: .Overview, .Requirements.
	PromptOutlineTitles = "outline_titles"

	// PromptOutlineChapter fills one chapter mold.
	// Data: .Overview, .Requirements, .Mold (JSON), .OtherChapters.
	PromptOutlineChapter = "outline_chapter"

	// PromptSectionContent writes the prose for one leaf.
	// Data: .Overview, .Ancestors, .Siblings, .Section, .References, .Instruction.
	PromptSectionContent = "section_content"

	// PromptAnalyzeOverview extracts the project overview from a tender.
	// Data: .Document.
	PromptAnalyzeOverview = "analyze_overview"

	// PromptAnalyzeRequirements extracts the technical scoring items from a tender.
	// Data: .Document.
	PromptAnalyzeRequirements = "analyze_requirements"
)

// DefaultPromptTemplates are the built-in templates for every well-known
// prompt. File-backed stores seed user-editable copies from these.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPromptTemplates = map[string]string{
	PromptOutlineSystem: `You are an experienced bid writer who structures technical and commercial proposals so that every scoring criterion is answered. You reply with JSON only, without commentary.`,

	PromptOutlineTitles: `Project overview:
{{.Overview}}

Scoring requirements:
{{.Requirements}}

Write one first-level chapter title for each scoring item above, in the order given. Titles must be specific to this project and read like headings of a formal bid document.

Return a JSON object of the form:
{"chapters": [{"rating_item": "<scoring item>", "new_title": "<chapter title>"}]}`,

	PromptOutlineChapter: `You are completing the structure of one chapter of a bid document.

Project overview:
{{.Overview}}

Scoring requirements:
{{.Requirements}}
{{if .OtherChapters}}
Other chapters of the document (do not repeat their scope):
{{range .OtherChapters}}- {{.}}
{{end}}{{end}}
Fill in every empty "title" and "description" in the JSON below. Second-level titles group related work; third-level titles are concrete sections that will each be written as about a page of prose. Keep the chapter title, every "id", and the exact number and nesting of "children" unchanged.

Return the completed JSON object only:
{{.Mold}}`,

	PromptSectionContent: `Project overview:
{{.Overview}}

Position in the document:
{{range .Ancestors}}- {{.ID}} {{.Title}}{{if .Description}}: {{.Description}}{{end}}
{{end}}
Section to write: {{.Section.ID}} {{.Section.Title}}
Scope: {{.Section.Description}}
{{if .Siblings}}
Neighbouring sections written separately (avoid overlapping them):
{{range .Siblings}}- {{.ID}} {{.Title}}{{if .Description}}: {{.Description}}{{end}}
{{end}}{{end}}{{if .References}}
Reference material from the company knowledge base:
{{range .References}}
### {{.Document.SectionTitle}}
{{.Document.Summary}}
{{end}}{{end}}{{if .Instruction}}
Additional instruction: {{.Instruction}}
{{end}}
Write the body of this section in Markdown. Do not repeat the heading. Be concrete and professional.`,

	PromptAnalyzeOverview: `You are an experienced bid writer. Read the tender document below and summarise the project it describes.

Cover, where the document states them:
1. Project name and basic information
2. Background and purpose
3. Scale and budget
4. Schedule
5. The work to be delivered
6. Main technical characteristics
7. Other key requirements

Rules:
- Stay complete and accurate; reuse the document's own wording instead of inventing content.
- Only include what concerns delivering the project. Leave out commercial terms.
- Return the overview text only, without any preamble.

Tender document:
{{.Document}}`,

	PromptAnalyzeRequirements: `You are a tender analyst. Extract every technical scoring item from the tender document below.

Look for sections on technical scoring, evaluation method, scoring criteria, technical specifications or technical proposal, including scoring tables in annexes. Do not extract commercial, price or qualification items.

For each technical scoring item write:
Item: <name as written in the document>
Weight: <points or percentage; note the original unit if it differs>
Criteria: <the scoring rule in detail>
Source: <where it appears, e.g. clause 5.2.3 or Annex 3 table 2>

Write "not stated" for missing information. If the document has no explicit scoring table, infer the items from context. Mark rows taken from tables with [table]. Show sub-items indented under their parent item.

Before answering, check that no technical item is missing and no commercial item is included. Return the items only, without any preamble.

Tender document:
{{.Document}}`,
}
