package trust

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises concurrent event appends across all engine
// instances sharing one database. The value is arbitrary but must be
// consistent everywhere.
const advisoryLockKey = int64(7_420_133_901)

// PostgresStore persists trust profiles and their event logs to PostgreSQL.
// It implements the Store interface.
//
// Schema:
//
//	CREATE TABLE trust_profiles (
//	    email             TEXT PRIMARY KEY,
//	    score             INT NOT NULL,
//	    verified_identity BOOL NOT NULL DEFAULT FALSE,
//	    verified_phone    BOOL NOT NULL DEFAULT FALSE,
//	    verified_email    BOOL NOT NULL DEFAULT FALSE,
//	    updated_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE trust_events (
//	    id        BIGSERIAL PRIMARY KEY,
//	    email     TEXT NOT NULL REFERENCES trust_profiles(email),
//	    type      TEXT NOT NULL,
//	    delta     INT NOT NULL,
//	    reason    TEXT NOT NULL,
//	    timestamp TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Get implements Store. The event log is read in insertion order; the stored
// score column is the projection maintained by Append.
func (s *PostgresStore) Get(ctx context.Context, email string) (*Profile, error) {
	p := &Profile{Email: email}
	err := s.pool.QueryRow(ctx,
		`SELECT score, verified_identity, verified_phone, verified_email, updated_at
		 FROM trust_profiles WHERE email = $1`, email,
	).Scan(&p.Score, &p.VerifiedIdentity, &p.VerifiedPhone, &p.VerifiedEmail, &p.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trust profile: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT email, type, delta, reason, timestamp
		 FROM trust_events WHERE email = $1 ORDER BY id ASC`, email,
	)
	if err != nil {
		return nil, fmt.Errorf("query trust events: %w", err)
	}
	defer rows.Close()

	p.Events = []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Email, &ev.Type, &ev.Delta, &ev.Reason, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trust event: %w", err)
		}
		p.Events = append(p.Events, ev)
	}
	return p, rows.Err()
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, p *Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trust_profiles (email, score, verified_identity, verified_phone, verified_email, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING`,
		p.Email, p.Score, p.VerifiedIdentity, p.VerifiedPhone, p.VerifiedEmail, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("insert trust profile: %w", err)
	}
	return nil
}

// Append implements Store. It writes the event row and the updated profile
// projection within a single transaction, serialised by an advisory lock so
// the log stays strictly ordered across instances.
func (s *PostgresStore) Append(ctx context.Context, ev Event, p *Profile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_events (email, type, delta, reason, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.Email, ev.Type, ev.Delta, ev.Reason, ev.Timestamp,
	); err != nil {
		return fmt.Errorf("insert trust event: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE trust_profiles
		 SET score = $2, verified_identity = $3, verified_phone = $4, verified_email = $5, updated_at = $6
		 WHERE email = $1`,
		p.Email, p.Score, p.VerifiedIdentity, p.VerifiedPhone, p.VerifiedEmail, p.LastUpdated,
	); err != nil {
		return fmt.Errorf("update trust profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit trust tx: %w", err)
	}

	s.logger.Debug("trust event appended",
		zap.String("email", ev.Email),
		zap.String("type", ev.Type),
		zap.Int("score", p.Score),
	)
	return nil
}

// List implements Store. Event logs are loaded per profile; acceptable for
// the profile counts this engine serves, revisit if it becomes hot.
func (s *PostgresStore) List(ctx context.Context) ([]*Profile, error) {
	rows, err := s.pool.Query(ctx, "SELECT email FROM trust_profiles ORDER BY email ASC")
	if err != nil {
		return nil, fmt.Errorf("query trust profiles: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan profile email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Profile, 0, len(emails))
	for _, email := range emails {
		p, err := s.Get(ctx, email)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
