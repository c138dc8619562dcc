package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

const (
	keyEmail = "email"
	keyTeam  = "team"
)

// SettingChange is one recorded write to a setting.
type SettingChange struct {
	Key       string
	Value     string
	ChangedAt time.Time
}

// IdentityRepository keeps the operator identity in the settings table.
type IdentityRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *IdentityRepository) Load(ctx context.Context) (domain.Identity, error) {
	return withRetry(ctx, streamRetries, func() (domain.Identity, error) {
		return r.load(ctx)
	})
}

func (r *IdentityRepository) load(ctx context.Context) (domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?)`, keyEmail, keyTeam)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}
	defer rows.Close()

	var id domain.Identity
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Identity{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case keyEmail:
			id.Email = value
		case keyTeam:
			id.Team = value
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}
	return id, nil
}

// Save writes both keys in one transaction and records the change.
func (r *IdentityRepository) Save(ctx context.Context, id domain.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now().Format(time.RFC3339Nano)
	for _, kv := range [][2]string{{keyEmail, id.Email}, {keyTeam, id.Team}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, kv[0], kv[1], now); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv[0], err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings_history (key, value, changed_at) VALUES (?, ?, ?)`,
			kv[0], kv[1], now); err != nil {
			return fmt.Errorf("failed to record %s change: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identity: %w", err)
	}
	return nil
}

// History lists identity changes, newest first.
func (r *IdentityRepository) History(ctx context.Context, limit int) ([]SettingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value, changed_at FROM settings_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list identity history: %w", err)
	}
	defer rows.Close()

	var changes []SettingChange
	for rows.Next() {
		var c SettingChange
		var changedAt string
		if err := rows.Scan(&c.Key, &c.Value, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		c.ChangedAt, _ = time.Parse(time.RFC3339Nano, changedAt)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
