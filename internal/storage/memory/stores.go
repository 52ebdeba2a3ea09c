package memory

import "github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"

// NewStores builds the full in-memory store bundle.
func NewStores() *storage.Stores {
	return &storage.Stores{
		Principles: NewPrincipleStore(),
		Tasks:      NewTaskStore(),
		Annotators: NewAnnotatorStore(),
		Feedback:   NewFeedbackStore(),
	}
}
