package entity

import "time"

// DocumentHistory is one audit trail record of a document
type DocumentHistory struct {
	ID             int64     `json:"id"`
	DocumentID     string    `json:"document_id"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Comment is a discussion message on a document
type Comment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	Mentions   []string  `json:"mentions"`
	CreatedAt  time.Time `json:"created_at"`
}
