package limits

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func TestProcess_TruncatesToLimits(t *testing.T) {
	docs := []domain.KnowledgeDocument{{
		DocID:        "d",
		SectionTitle: strings.Repeat("t", domain.MaxSectionTitleLength+10),
		Summary:      strings.Repeat("标", domain.MaxSummaryLength+1),
		TitlePath:    strings.Repeat("p", domain.MaxTitlePathLength*2),
	}}

	out, err := New().Process(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, domain.MaxSectionTitleLength, utf8.RuneCountInString(out[0].SectionTitle))
	assert.Equal(t, domain.MaxSummaryLength, utf8.RuneCountInString(out[0].Summary))
	assert.Equal(t, domain.MaxTitlePathLength, utf8.RuneCountInString(out[0].TitlePath))
	assert.NoError(t, out[0].Validate())
}

func TestProcess_DropsEmptySummaries(t *testing.T) {
	out, err := New().Process(context.Background(), []domain.KnowledgeDocument{
		{DocID: "a", Summary: "  "},
		{DocID: "b", Summary: " kept "},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Summary)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "标准", truncate("标准化", 2))
}
