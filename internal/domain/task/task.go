// Package task defines the Task domain entity.
package task

import "time"

// Task is a proposed unit of work submitted to the council for deliberation.
// It is immutable once submitted to a debate; the caller owns it.
type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Context     string    `json:"context,omitempty"`
	Files       []string  `json:"files,omitempty"`
	Type        string    `json:"type,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// CreateRequest holds the fields needed to submit a task for a debate.
type CreateRequest struct {
	Description string   `json:"description"`
	Context     string   `json:"context,omitempty"`
	Files       []string `json:"files,omitempty"`
	Type        string   `json:"type,omitempty"`
}
