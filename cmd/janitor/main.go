// Lambda de mantenimiento: re-normaliza las filas de guild_dj_configs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type row struct {
	GuildID string
	Config  domain.GuildConfig
}

// pendingFixes devuelve sólo las filas que cambian al normalizar.
func pendingFixes(rows []row) []row {
	var out []row
	for _, r := range rows {
		if n := r.Config.Normalize(); n != r.Config {
			out = append(out, row{GuildID: r.GuildID, Config: n})
		}
	}
	return out
}

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rs, err := pool.Query(cctx, `
SELECT guild_id, enabled, COALESCE(role_id, ''), skip_mode, vote_threshold, strict_mode
  FROM guild_dj_configs`)
	if err != nil {
		return "", fmt.Errorf("select: %w", err)
	}
	var rows []row
	for rs.Next() {
		var (
			r    row
			mode string
		)
		if err := rs.Scan(&r.GuildID, &r.Config.Enabled, &r.Config.RoleID, &mode, &r.Config.VoteThreshold, &r.Config.StrictMode); err != nil {
			rs.Close()
			return "", fmt.Errorf("scan: %w", err)
		}
		r.Config.SkipMode = domain.SkipMode(mode)
		rows = append(rows, r)
	}
	rs.Close()
	if err := rs.Err(); err != nil {
		return "", fmt.Errorf("rows: %w", err)
	}

	fixes := pendingFixes(rows)
	for _, f := range fixes {
		var role any
		if f.Config.RoleID != "" {
			role = f.Config.RoleID
		}
		if _, err := pool.Exec(cctx, `
UPDATE guild_dj_configs
   SET role_id = $2, skip_mode = $3, vote_threshold = $4, updated_at = NOW()
 WHERE guild_id = $1`, f.GuildID, role, string(f.Config.SkipMode), f.Config.VoteThreshold); err != nil {
			return "", fmt.Errorf("update %s: %w", f.GuildID, err)
		}
	}
	return fmt.Sprintf("ok: %d rows, %d normalized", len(rows), len(fixes)), nil
}

func main() { lambda.Start(handler) }
