package conversation

import "context"

// Session pairs the pending dialogue state with its draft.
type Session struct {
	State State  `json:"state"`
	Draft *Draft `json:"draft,omitempty"`
}

// Store keeps one session per administrator. Implementations must treat a
// missing session as idle rather than an error.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Set(ctx context.Context, userID int64, sess *Session) error
	Delete(ctx context.Context, userID int64) error
}
