package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/html")
	assert.Contains(t, mimeTypes, "application/xhtml+xml")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	docs, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestNormalise_HeadingSections(t *testing.T) {
	page := `<html>
<head><title>Safety Policy</title></head>
<body>
<h1>Policy</h1>
<p>We keep sites <strong>safe</strong>.</p>
<h2>Training</h2>
<p>Weekly toolbox talks.</p>
</body>
</html>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "policy.html",
		Content: []byte(page),
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Policy", docs[0].SectionTitle)
	assert.Equal(t, "We keep sites safe.", docs[0].Summary)
	assert.Equal(t, "Training", docs[1].SectionTitle)
	assert.Equal(t, "Policy > Training", docs[1].TitlePath)
	assert.Equal(t, "Weekly toolbox talks.", docs[1].Summary)
}

func TestNormalise_TitleNamesPreamble(t *testing.T) {
	page := `<html><head><title>Method Statement</title></head><body><p>Intro only.</p></body></html>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "ms.html",
		Content: []byte(page),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Method Statement", docs[0].SectionTitle)
	assert.Equal(t, "Intro only.", docs[0].Summary)
}

func TestNormalise_PrefersMainElement(t *testing.T) {
	page := `<body><nav><p>Menu</p></nav><main><h2>Scope</h2><p>Scope text.</p></main></body>`

	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "/site/scope-page.html",
		Content: []byte(page),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Scope", docs[0].SectionTitle)
	assert.Equal(t, "Scope text.", docs[0].Summary)
}

func TestNormalise_FileNameFallback(t *testing.T) {
	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "/site/quality_manual.html",
		Content: []byte(`<p>Text.</p>`),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "quality manual", docs[0].SectionTitle)
}
