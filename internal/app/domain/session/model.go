package session

import "time"

// Session is the top-level owner of a cart and checkout flow. Sessions live
// only in memory; nothing survives a process restart.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Notice is a transient confirmation surfaced after a cart mutation. Notices
// expire on their own and are filtered out of reads once ExpiresAt passes.
type Notice struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
