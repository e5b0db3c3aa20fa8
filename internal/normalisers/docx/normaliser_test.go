package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML, coreXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	if coreXML != "" {
		core, _ := w.Create("docProps/core.xml")
		core.Write([]byte(coreXML))
	}

	w.Close()
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.Len(t, mimeTypes, 1)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	docs, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestNormalise_InvalidZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "broken.docx",
		Content: []byte("not a zip"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_HeadingStyles(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + wordNS + `>
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Quality</w:t></w:r></w:p>
<w:p><w:r><w:t>We are ISO 9001 </w:t></w:r><w:r><w:t>certified.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Audits</w:t></w:r></w:p>
<w:p><w:r><w:t>Quarterly internal audits.</w:t></w:r></w:p>
</w:body>
</w:document>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "quality.docx",
		Content: createTestDOCX(docXML, ""),
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Quality", docs[0].SectionTitle)
	assert.Equal(t, "We are ISO 9001 certified.", docs[0].Summary)
	assert.Equal(t, "Quality > Audits", docs[1].TitlePath)
	assert.Equal(t, "Quarterly internal audits.", docs[1].Summary)
}

func TestNormalise_CoreTitleNamesPreamble(t *testing.T) {
	docXML := `<w:document ` + wordNS + `><w:body><w:p><w:r><w:t>Body only</w:t></w:r></w:p></w:body></w:document>`
	coreXML := `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Company Profile</dc:title></cp:coreProperties>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "profile.docx",
		Content: createTestDOCX(docXML, coreXML),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Company Profile", docs[0].SectionTitle)
}

func TestNormalise_TitleFallbackToFilename(t *testing.T) {
	docXML := `<w:document ` + wordNS + `><w:body><w:p><w:r><w:t>Text</w:t></w:r></w:p></w:body></w:document>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "/bids/method_statement.docx",
		Content: createTestDOCX(docXML, ""),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "method statement", docs[0].SectionTitle)
}

func TestNormalise_EmptyDocument(t *testing.T) {
	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "empty.docx",
		Content: createTestDOCX("", ""),
	})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Title":     1,
		"Heading1":  1,
		"heading 3": 3,
		"Heading9":  6,
		"Normal":    0,
		"HeadingX":  0,
		"":          0,
	}
	for style, want := range tests {
		assert.Equal(t, want, headingLevel(style), style)
	}
}
