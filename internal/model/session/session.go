package session

import "time"

// Session 表示一个可供多人加入的降灵会话。
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MaxUsers  int       `json:"max_users"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
