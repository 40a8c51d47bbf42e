package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	session_id    TEXT PRIMARY KEY,
	state         JSONB NOT NULL,
	turn_count    INTEGER NOT NULL DEFAULT 0,
	scam_detected BOOLEAN NOT NULL DEFAULT false,
	report_sent   BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS intelligence_reports (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	delivered_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS intelligence_reports_session_idx ON intelligence_reports (session_id);
`

// Postgres keeps the full state as JSONB alongside a few queryable columns.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Load(ctx context.Context, sessionID string) (*conversation.State, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM conversations WHERE session_id = $1`, sessionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	var s conversation.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) Save(ctx context.Context, s *conversation.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO conversations (session_id, state, turn_count, scam_detected, report_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (session_id)
		DO UPDATE SET
			state = $2,
			turn_count = $3,
			scam_detected = $4,
			report_sent = $5,
			updated_at = now()`,
		s.SessionID, data, s.TurnCount, s.ScamDetected, s.ReportSent,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// RecordReport archives a delivered intelligence report under the delivery's ID.
func (p *Postgres) RecordReport(ctx context.Context, id uuid.UUID, sessionID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO intelligence_reports (id, session_id, payload, delivered_at)
		VALUES ($1, $2, $3, now())`,
		id, sessionID, data,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// RecentReports returns the newest archived report payloads across sessions.
func (p *Postgres) RecentReports(ctx context.Context, limit int) ([]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT payload FROM intelligence_reports
		ORDER BY delivered_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select recent reports: %w", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, json.RawMessage(data))
	}
	return out, rows.Err()
}
