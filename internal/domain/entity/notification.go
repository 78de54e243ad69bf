package entity

import "time"

// Notification is an entry in a user's in-app notification feed
type Notification struct {
	ID              string     `json:"id"`
	RecipientUserID string     `json:"recipient_user_id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Link            string     `json:"link"`
	DocumentID      string     `json:"document_id,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsRead returns true once the recipient has opened the notification
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
