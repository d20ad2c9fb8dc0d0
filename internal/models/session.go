package models

import "time"

// Session identifies one applicant's wizard on the server. The draft slot of
// the session is namespaced by its ID.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Closed       bool      `json:"closed"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, LastActivity: now}
}

// IsExpired reports whether the session has been idle for longer than idle.
// A zero idle never expires.
func (s *Session) IsExpired(now time.Time, idle time.Duration) bool {
	if idle <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > idle
}

func (s *Session) UpdateActivity(now time.Time) {
	s.LastActivity = now
}
