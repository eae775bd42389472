package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlReports = `
CREATE TABLE IF NOT EXISTS dialogue_reports (
    id           UUID         PRIMARY KEY,
    kind         TEXT         NOT NULL,
    reported_at  TIMESTAMPTZ  NOT NULL,
    channel      TEXT         NOT NULL DEFAULT '',
    speaker      TEXT         NOT NULL DEFAULT '',
    sentence     TEXT         NOT NULL DEFAULT '',
    voice_id     TEXT         NOT NULL DEFAULT '',
    npc          JSONB,
    location     TEXT         NOT NULL DEFAULT '',
    coordinates  TEXT         NOT NULL DEFAULT '',
    in_cutscene  BOOLEAN,
    in_duty      BOOLEAN,
    quests       TEXT[],
    reason       TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_dialogue_reports_speaker
    ON dialogue_reports (speaker);

CREATE INDEX IF NOT EXISTS idx_dialogue_reports_reported_at
    ON dialogue_reports (reported_at);
`

// PostgresStore archives reports in a PostgreSQL table for querying across
// sessions and machines. All operations are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Sink = (*PostgresStore)(nil)

// NewPostgresStore establishes a connection pool to dsn and ensures the
// reports table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("report: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlReports); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Name() string { return "postgres" }

func (p *PostgresStore) Emit(ctx context.Context, r *Report) error {
	var (
		voiceID string
		npcJSON []byte
	)
	if r.Message.Npc != nil {
		voiceID = r.Message.Npc.VoiceID
		var err error
		npcJSON, err = json.Marshal(r.Message.Npc)
		if err != nil {
			return fmt.Errorf("report: marshal npc: %w", err)
		}
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO dialogue_reports
		    (id, kind, reported_at, channel, speaker, sentence, voice_id,
		     npc, location, coordinates, in_cutscene, in_duty, quests, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, string(r.Kind), r.Date,
		string(r.Message.Source), r.Message.Speaker, r.Message.Sentence, voiceID,
		npcJSON, r.Location, r.Coordinates, r.InCutscene, r.InDuty, r.Quests, r.Reason,
	)
	if err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}
