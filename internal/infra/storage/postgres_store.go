package storage

import (
	"context"
	"database/sql"
	"fmt"

	pq "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// PostgresStore guarda una fila por guild en guild_dj_configs.
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresStore(db *sql.DB, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) Load(ctx context.Context) (map[string]domain.GuildConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT guild_id, enabled, role_id, skip_mode, vote_threshold, strict_mode
  FROM guild_dj_configs
`)
	if err != nil {
		return nil, fmt.Errorf("select guild_dj_configs: %w", err)
	}
	defer rows.Close()

	out := map[string]domain.GuildConfig{}
	for rows.Next() {
		var (
			guildID string
			role    sql.NullString
			mode    string
			cfg     domain.GuildConfig
		)
		if err := rows.Scan(&guildID, &cfg.Enabled, &role, &mode, &cfg.VoteThreshold, &cfg.StrictMode); err != nil {
			return nil, fmt.Errorf("scan guild_dj_configs: %w", err)
		}
		cfg.RoleID = role.String
		cfg.SkipMode = domain.SkipMode(mode)
		out[guildID] = cfg.Normalize()
	}
	return out, rows.Err()
}

// Save escribe el snapshot en una transacción: upsert de todo y borrado de lo que ya no está.
func (s *PostgresStore) Save(ctx context.Context, configs map[string]domain.GuildConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO guild_dj_configs (guild_id, enabled, role_id, skip_mode, vote_threshold, strict_mode, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (guild_id) DO UPDATE SET
  enabled        = EXCLUDED.enabled,
  role_id        = EXCLUDED.role_id,
  skip_mode      = EXCLUDED.skip_mode,
  vote_threshold = EXCLUDED.vote_threshold,
  strict_mode    = EXCLUDED.strict_mode,
  updated_at     = NOW()
`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(configs))
	for guildID, cfg := range configs {
		cfg = cfg.Normalize()
		role := sql.NullString{String: cfg.RoleID, Valid: cfg.RoleID != ""}
		if _, err := stmt.ExecContext(ctx, guildID, cfg.Enabled, role, string(cfg.SkipMode), cfg.VoteThreshold, cfg.StrictMode); err != nil {
			return fmt.Errorf("upsert guild %s: %w", guildID, err)
		}
		ids = append(ids, guildID)
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM guild_dj_configs WHERE NOT (guild_id = ANY($1))
`, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune guild_dj_configs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("snapshot saved", zap.Int("guilds", len(ids)))
	return nil
}
