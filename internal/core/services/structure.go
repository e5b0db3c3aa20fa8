package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// cleanJSONOutput strips a Markdown code fence wrapped around a JSON reply.
func cleanJSONOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// nodeKeys are the JSON keys of an OutlineNode.
var nodeKeys = map[string]bool{"id": true, "title": true, "description": true, "content": true, "children": true}

// ParseChapter decodes a provider reply into a chapter tree. A single
// wrapping key around the node (e.g. {"outline": {...}}) is tolerated.
func ParseChapter(raw string) (*domain.OutlineNode, error) {
	text := cleanJSONOutput(raw)
	if text == "" {
		return nil, &domain.StructureError{Reason: "empty response"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, &domain.StructureError{Reason: fmt.Sprintf("invalid JSON object: %v", err)}
	}

	body := []byte(text)
	if len(fields) == 1 {
		for key, value := range fields {
			if !nodeKeys[key] {
				body = unwrapSingle(value)
			}
		}
	}

	var node domain.OutlineNode
	if err := json.Unmarshal(body, &node); err != nil {
		return nil, &domain.StructureError{Reason: fmt.Sprintf("invalid node: %v", err)}
	}
	return &node, nil
}

// unwrapSingle returns the element of a one-item array, or the value itself.
func unwrapSingle(value json.RawMessage) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err == nil && len(items) == 1 {
		return items[0]
	}
	return value
}

// ValidateStructure checks that candidate has the mold's shape: the same
// nesting and the same number of children, in order, at every node.
// Text fields and IDs are not compared.
func ValidateStructure(mold, candidate *domain.OutlineNode) error {
	if candidate == nil {
		return &domain.StructureError{Path: mold.ID, Reason: "missing node"}
	}
	if len(candidate.Children) != len(mold.Children) {
		return &domain.StructureError{
			Path:   mold.ID,
			Reason: fmt.Sprintf("expected %d children, got %d", len(mold.Children), len(candidate.Children)),
		}
	}
	for i, child := range mold.Children {
		if err := ValidateStructure(child, candidate.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// PinMold returns a copy of an accepted tree carrying the mold's IDs and
// chapter title. Generated content is dropped.
func PinMold(mold, accepted *domain.OutlineNode) *domain.OutlineNode {
	pinned := pinNode(mold, accepted)
	if mold.Title != "" {
		pinned.Title = mold.Title
	}
	return pinned
}

func pinNode(mold, accepted *domain.OutlineNode) *domain.OutlineNode {
	out := &domain.OutlineNode{
		ID:          mold.ID,
		Title:       strings.TrimSpace(accepted.Title),
		Description: strings.TrimSpace(accepted.Description),
	}
	for i, child := range mold.Children {
		out.Children = append(out.Children, pinNode(child, accepted.Children[i]))
	}
	return out
}
