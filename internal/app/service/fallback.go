package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const (
	maxFallbackAttempts   = 1
	maxFallbackCandidates = 5
)

type fallbackCandidate struct {
	query  string
	source domain.SearchSource
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// fallbackCandidates arma las búsquedas alternativas en orden de preferencia,
// sin vacías ni repetidas.
func fallbackCandidates(info domain.TrackInfo) []fallbackCandidate {
	var out []fallbackCandidate
	seen := map[string]bool{}
	add := func(q string, src domain.SearchSource) {
		q = strings.TrimSpace(q)
		key := normalizeQuery(q)
		if key == "" {
			return
		}
		key = string(src) + "|" + key
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, fallbackCandidate{query: q, source: src})
	}

	titleAuthor := strings.TrimSpace(info.Title + " " + info.Author)
	add(titleAuthor, domain.SearchSourceYouTubeMusic)
	add(titleAuthor, domain.SearchSourceYouTube)
	add(info.Identifier, domain.SearchSourceYouTubeMusic)
	add(info.Identifier, domain.SearchSourceYouTube)
	add(info.ISRC, domain.SearchSourceYouTubeMusic)

	if len(out) > maxFallbackCandidates {
		out = out[:maxFallbackCandidates]
	}
	return out
}

// findFallback devuelve el primer resultado distinto del track que falló.
func (m *PlayerService) findFallback(ctx context.Context, guildID string, failed domain.TrackInfo) *domain.Track {
	for _, c := range fallbackCandidates(failed) {
		if ctx.Err() != nil {
			return nil
		}
		res, err := m.node.Search(ctx, c.query, c.source)
		if err != nil {
			m.log.Debug("fallback search failed",
				zap.String("guild_id", guildID),
				zap.String("query", c.query),
				zap.String("source", string(c.source)),
				zap.Error(err),
			)
			continue
		}
		for _, t := range res.Tracks {
			if t != nil && t.Info.Identifier != failed.Identifier {
				return t
			}
		}
	}
	return nil
}

// onTrackError intenta una sola vez reemplazar un track que el nodo no pudo reproducir.
// El sustituto va al frente de la cola; el TrackEnd(loadFailed) que sigue lo arranca.
func (m *PlayerService) onTrackError(ctx context.Context, ev domain.PlayerEvent) {
	m.mu.Lock()
	s, ok := m.sessions[ev.GuildID]
	if !ok {
		m.mu.Unlock()
		return
	}
	failed := ev.Track
	if s.current != nil && (failed == nil || failed.Encoded == s.current.Encoded) {
		failed = s.current
	}
	if failed == nil {
		m.mu.Unlock()
		return
	}
	attempts := failed.FallbackAttempts
	info := failed.Info
	requester := failed.Requester
	origin := failed.FallbackOf
	text := s.textChannelID
	m.mu.Unlock()

	label := failed.Label()
	m.log.Warn("track failed",
		zap.String("guild_id", ev.GuildID),
		zap.String("track", label),
		zap.Int("fallback_attempts", attempts),
		zap.String("detail", ev.Message),
	)

	if attempts >= maxFallbackAttempts {
		m.notifyf(ctx, text, "⚠️ **%s** is unavailable and no alternative could be played.", label)
		return
	}

	sub := m.findFallback(ctx, ev.GuildID, info)
	if sub == nil {
		m.mu.Lock()
		failed.FallbackAttempts++
		m.mu.Unlock()
		m.notifyf(ctx, text, "⚠️ **%s** is unavailable and no alternative was found.", label)
		return
	}

	if origin == "" {
		origin = info.Identifier
	}
	sub.Requester = requester
	sub.FallbackOf = origin
	sub.FallbackAttempts = attempts + 1

	m.mu.Lock()
	s, ok = m.sessions[ev.GuildID]
	if !ok {
		m.mu.Unlock()
		return
	}
	s.queue = append([]*domain.Track{sub}, s.queue...)
	m.cancelIdleLocked(s)
	m.mu.Unlock()

	m.log.Info("fallback queued",
		zap.String("guild_id", ev.GuildID),
		zap.String("failed", label),
		zap.String("substitute", sub.Label()),
	)
	m.notifyf(ctx, text, "🔁 Couldn't play **%s**, trying **%s** instead.", label, sub.Label())
}
