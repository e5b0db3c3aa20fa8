package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// ReferenceFinder supplies reference material for a section.
// It is satisfied by RetrievalService.
type ReferenceFinder interface {
	ReferenceSections(ctx context.Context, title, description string, topK int) ([]domain.Reference, error)
}

var _ ReferenceFinder = (driving.RetrievalService)(nil)

// SynthesizerConfig tunes content synthesis.
type SynthesizerConfig struct {
	// Temperature is passed to the provider unchanged.
	Temperature float64

	// References is the number of knowledge hits per leaf (default 3).
	References int
}

// Synthesizer fills outline leaves with generated prose, one leaf at a time
// in document order.
type Synthesizer struct {
	provider driven.ChatProvider
	prompts  driven.PromptStore
	refs     ReferenceFinder
	cfg      SynthesizerConfig
}

// NewSynthesizer creates a synthesizer. refs may be nil, in which case
// sections are written without reference material.
func NewSynthesizer(provider driven.ChatProvider, prompts driven.PromptStore, refs ReferenceFinder, cfg SynthesizerConfig) *Synthesizer {
	if cfg.References <= 0 {
		cfg.References = domain.ReferenceTopK
	}
	return &Synthesizer{provider: provider, prompts: prompts, refs: refs, cfg: cfg}
}

// sectionPromptData feeds the section_content template.
type sectionPromptData struct {
	Overview    string
	Ancestors   []domain.NodeBrief
	Siblings    []domain.NodeBrief
	Section     domain.NodeBrief
	References  []domain.Reference
	Instruction string
}

// leafVisit is one leaf together with its scoping context.
type leafVisit struct {
	node      *domain.OutlineNode
	ancestors []domain.NodeBrief
	siblings  []domain.NodeBrief
}

// Fill writes content for every leaf of the outline, depth-first. A
// provider failure stops the walk and is returned; leaves already written
// keep their content.
func (s *Synthesizer) Fill(ctx context.Context, outline *domain.Outline, progress func(done, total int)) error {
	logger.Section("Content Synthesis")
	visits := collectLeaves(outline)
	logger.Info("Leaves to write: %d", len(visits))

	for i, v := range visits {
		if err := s.writeLeaf(ctx, outline.Overview, v, ""); err != nil {
			return fmt.Errorf("section %s: %w", v.node.ID, err)
		}
		if progress != nil {
			progress(i+1, len(visits))
		}
	}
	return nil
}

// RegenerateLeaf rewrites one leaf, adding the given instruction to its prompt.
func (s *Synthesizer) RegenerateLeaf(ctx context.Context, outline *domain.Outline, id, instruction string) error {
	for _, v := range collectLeaves(outline) {
		if v.node.ID == id {
			return s.writeLeaf(ctx, outline.Overview, v, instruction)
		}
	}
	if node := outline.Find(id); node != nil {
		return fmt.Errorf("section %s is not a leaf: %w", id, domain.ErrInvalidInput)
	}
	return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
}

// collectLeaves walks every chapter depth-first and records, for each leaf,
// the ancestors from chapter to parent and the siblings excluding itself.
func collectLeaves(outline *domain.Outline) []leafVisit {
	var visits []leafVisit
	var walk func(node *domain.OutlineNode, ancestors []domain.NodeBrief, siblings []*domain.OutlineNode)
	walk = func(node *domain.OutlineNode, ancestors []domain.NodeBrief, siblings []*domain.OutlineNode) {
		if node.IsLeaf() {
			v := leafVisit{node: node, ancestors: ancestors}
			for _, sib := range siblings {
				if sib != node {
					v.siblings = append(v.siblings, sib.Brief())
				}
			}
			visits = append(visits, v)
			return
		}
		path := make([]domain.NodeBrief, len(ancestors), len(ancestors)+1)
		copy(path, ancestors)
		path = append(path, node.Brief())
		for _, child := range node.Children {
			walk(child, path, node.Children)
		}
	}
	for _, chapter := range outline.Chapters {
		walk(chapter, nil, outline.Chapters)
	}
	return visits
}

func (s *Synthesizer) writeLeaf(ctx context.Context, overview string, v leafVisit, instruction string) error {
	log := logger.Scope("section " + v.node.ID)

	var refs []domain.Reference
	if s.refs != nil {
		found, err := s.refs.ReferenceSections(ctx, v.node.Title, v.node.Description, s.cfg.References)
		if err != nil {
			log.Warn("Reference lookup failed, writing without references: %v", err)
		} else {
			refs = found
		}
	}
	log.Debug("References: %d", len(refs))

	prompt, err := renderPrompt(s.prompts, driven.PromptSectionContent, sectionPromptData{
		Overview:    overview,
		Ancestors:   v.ancestors,
		Siblings:    v.siblings,
		Section:     v.node.Brief(),
		References:  refs,
		Instruction: instruction,
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	stream := s.provider.Stream(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{
		Temperature: &s.cfg.Temperature,
	})
	for token, err := range stream {
		if err != nil {
			return asProviderError(s.provider.ModelName(), err)
		}
		b.WriteString(token)
	}

	v.node.Content = strings.TrimSpace(b.String())
	log.Debug("Wrote %d characters", len(v.node.Content))
	return nil
}
