package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the generative provider is not configured.
	// Outline and content generation are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Knowledge ingestion and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrKnowledgeDisabled indicates the knowledge store is switched off in settings.
	ErrKnowledgeDisabled = errors.New("knowledge store disabled")

	// ErrStructureMismatch indicates a generated tree does not match its mold.
	ErrStructureMismatch = errors.New("structure mismatch")

	// ErrRetriesExhausted indicates every generation attempt failed validation.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
