package storage

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// encodeSnapshot: mapa guildID -> config, indentado para que sea legible a mano.
func encodeSnapshot(configs map[string]domain.GuildConfig) ([]byte, error) {
	if configs == nil {
		configs = map[string]domain.GuildConfig{}
	}
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot tolera registros rotos: se reemplazan por defaults.
// Sólo falla si el documento entero no es un objeto JSON.
func decodeSnapshot(data []byte, log *zap.Logger) (map[string]domain.GuildConfig, error) {
	out := map[string]domain.GuildConfig{}
	if len(data) == 0 {
		return out, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %w", domain.ErrCorruptSnapshot, err)
	}
	for guildID, rec := range raw {
		var cfg domain.GuildConfig
		if err := json.Unmarshal(rec, &cfg); err != nil {
			log.Warn("invalid guild config record, using defaults", zap.String("guild_id", guildID), zap.Error(err))
			cfg = domain.DefaultGuildConfig()
		}
		out[guildID] = cfg.Normalize()
	}
	return out, nil
}
