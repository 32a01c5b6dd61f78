package session

import "time"

// Message persists one turn of a session, from a user or from the spirit.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	IsSpirit  bool      `json:"is_spirit"`
	CreatedAt time.Time `json:"created_at"`
}
