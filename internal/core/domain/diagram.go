package domain

import (
	"encoding/json"
	"time"
)

// MaxDiagramTitleLength bounds Diagram.Title.
const MaxDiagramTitleLength = 200

// Diagram is a user-owned editor document. Content is an opaque JSON
// document produced by the editor.
type Diagram struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// DiagramUpdate is a partial update. Nil fields are left untouched.
type DiagramUpdate struct {
	Title       *string
	Description *string
	Content     json.RawMessage
}
