package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"shopbot/core/logger"

	"log/slog"
)

type postgresStore struct {
	db      *sqlx.DB
	idleTTL time.Duration
}

// NewPostgresStore keeps sessions in the conversation_sessions table so
// in-progress drafts survive restarts and can be shared across instances.
func NewPostgresStore(db *sqlx.DB, idleTTL time.Duration) Store {
	return &postgresStore{db: db, idleTTL: idleTTL}
}

type sessionRow struct {
	State     string    `db:"state"`
	Draft     []byte    `db:"draft"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p *postgresStore) Get(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row,
		`SELECT state, draft, updated_at FROM conversation_sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Session{State: StateIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}

	if p.idleTTL > 0 && time.Since(row.UpdatedAt) > p.idleTTL {
		if err := p.Delete(ctx, userID); err != nil {
			logger.Warn(ctx, "state", "session.expire.failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return &Session{State: StateIdle}, nil
	}

	sess := &Session{State: State(row.State)}
	if len(row.Draft) > 0 {
		var draft Draft
		if err := json.Unmarshal(row.Draft, &draft); err != nil {
			return nil, fmt.Errorf("session decode: %w", err)
		}
		sess.Draft = &draft
	}
	return sess, nil
}

func (p *postgresStore) Set(ctx context.Context, userID int64, sess *Session) error {
	var draft []byte
	if sess.Draft != nil {
		data, err := json.Marshal(sess.Draft)
		if err != nil {
			return fmt.Errorf("session encode: %w", err)
		}
		draft = data
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO conversation_sessions (user_id, state, draft, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET state = EXCLUDED.state, draft = EXCLUDED.draft, updated_at = now()`,
		userID, string(sess.State), draft)
	if err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (p *postgresStore) Delete(ctx context.Context, userID int64) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM conversation_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
