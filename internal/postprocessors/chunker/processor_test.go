package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestProcessor_Process_SmallContentPassesThrough(t *testing.T) {
	docs := []domain.KnowledgeDocument{{DocID: "d", SectionTitle: "Staff", Summary: "short"}}

	out, err := New().Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || !reflect.DeepEqual(out[0], docs[0]) {
		t.Errorf("expected record unchanged, got %+v", out)
	}
}

func TestProcessor_Process_SplitsAtWhitespace(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))
	docs := []domain.KnowledgeDocument{{DocID: "d", SectionTitle: "Plant", TitlePath: "Co > Plant", Summary: "aaaa bbbb cccc"}}

	out, err := p.Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 parts, got %d: %+v", len(out), out)
	}
	if out[0].Summary != "aaaa bbbb" || out[1].Summary != "cccc" {
		t.Errorf("unexpected parts: %q, %q", out[0].Summary, out[1].Summary)
	}
	for _, part := range out {
		if part.DocID != "d" || part.SectionTitle != "Plant" || part.TitlePath != "Co > Plant" {
			t.Errorf("part lost its identity: %+v", part)
		}
	}
}

func TestProcessor_Process_LargeContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	content := strings.Repeat("x", 450)

	out, err := p.Process(context.Background(), []domain.KnowledgeDocument{{DocID: "d", Summary: content}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// windows start at 0, 80, 160, 240, 320, 400
	if len(out) != 6 {
		t.Fatalf("expected 6 parts, got %d", len(out))
	}
	for i, part := range out {
		if n := utf8.RuneCountInString(part.Summary); n > 100 {
			t.Errorf("part %d has %d characters", i, n)
		}
	}
	if out[0].Summary[80:] != out[1].Summary[:20] {
		t.Error("expected consecutive parts to overlap")
	}
}

func TestProcessor_Process_CountsCharactersNotBytes(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))
	content := strings.Repeat("标", 10)

	out, err := p.Process(context.Background(), []domain.KnowledgeDocument{{DocID: "d", Summary: content}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected 10 characters to fit one part, got %d parts", len(out))
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Process(ctx, []domain.KnowledgeDocument{{Summary: "x"}}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
