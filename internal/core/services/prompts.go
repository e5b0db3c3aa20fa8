package services

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// renderPrompt loads a template from the store, falling back to the
// built-in default, and executes it with data.
func renderPrompt(store driven.PromptStore, name string, data any) (string, error) {
	text := loadPrompt(store, name)
	if text == "" {
		return "", fmt.Errorf("prompt %q not found", name)
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt %q: %w", name, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if prompt, err := store.Load(name); err == nil && prompt != "" {
			return prompt
		}
	}
	return driven.DefaultPromptTemplates[name]
}
