package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// Run consume el stream de eventos del nodo hasta que se cierre o se cancele ctx.
// Un solo consumidor: los eventos de un guild se aplican en orden.
func (m *PlayerService) Run(ctx context.Context, events <-chan domain.PlayerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleEvent(ctx, ev)
		}
	}
}

func (m *PlayerService) HandleEvent(ctx context.Context, ev domain.PlayerEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic handling player event", zap.Any("panic", r), zap.String("type", string(ev.Type)))
		}
	}()

	switch ev.Type {
	case domain.EventTrackStart:
		m.onTrackStart(ev)
	case domain.EventTrackEnd:
		m.onTrackEnd(ctx, ev)
	case domain.EventTrackException:
		m.onTrackError(ctx, ev)
	case domain.EventTrackStuck:
		m.onTrackStuck(ctx, ev)
	case domain.EventQueueEnd:
		m.onQueueEnd(ev)
	case domain.EventVoiceClosed:
		m.onVoiceClosed(ctx, ev)
	default:
		m.log.Debug("ignored player event", zap.String("type", string(ev.Type)))
	}
}

func (m *PlayerService) onTrackStart(ev domain.PlayerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ev.GuildID]
	if !ok {
		return
	}
	m.cancelIdleLocked(s)
	m.log.Info("track started", zap.String("guild_id", ev.GuildID), zap.String("track", ev.Track.Label()))
}

// isCurrentLocked: el evento corresponde al track actual (descarta eventos viejos).
func isCurrentLocked(s *session, t *domain.Track) bool {
	if s.current == nil {
		return false
	}
	return t == nil || t.Encoded == "" || t.Encoded == s.current.Encoded
}

func (m *PlayerService) onTrackEnd(ctx context.Context, ev domain.PlayerEvent) {
	if !ev.Reason.MayStartNext() {
		return
	}

	m.mu.Lock()
	s, ok := m.sessions[ev.GuildID]
	if !ok || !isCurrentLocked(s, ev.Track) {
		m.mu.Unlock()
		return
	}
	cause := advanceFinished
	if ev.Reason == domain.EndLoadFailed {
		cause = advanceFailed
	}
	next := m.advanceLocked(s, cause)
	volume := s.volume
	m.mu.Unlock()

	if next == nil {
		m.log.Info("queue drained", zap.String("guild_id", ev.GuildID))
		return
	}
	if err := m.play(ctx, ev.GuildID, next, volume); err != nil {
		m.log.Warn("advance queue", zap.String("guild_id", ev.GuildID), zap.Error(err))
	}
}

// onTrackStuck: el nodo no avanza solo, saltamos al siguiente.
func (m *PlayerService) onTrackStuck(ctx context.Context, ev domain.PlayerEvent) {
	m.mu.Lock()
	s, ok := m.sessions[ev.GuildID]
	if !ok || !isCurrentLocked(s, ev.Track) {
		m.mu.Unlock()
		return
	}
	label := s.current.Label()
	text := s.textChannelID
	m.mu.Unlock()

	m.log.Warn("track stuck", zap.String("guild_id", ev.GuildID), zap.String("track", label))
	m.notifyf(ctx, text, "⚠️ **%s** got stuck, skipping.", label)
	if _, err := m.Skip(ctx, ev.GuildID); err != nil {
		m.log.Warn("skip stuck track", zap.String("guild_id", ev.GuildID), zap.Error(err))
	}
}

func (m *PlayerService) onQueueEnd(ev domain.PlayerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ev.GuildID]
	if !ok || s.current != nil || len(s.queue) > 0 {
		return
	}
	m.armIdleLocked(s)
}

// onVoiceClosed: se perdió la conexión de voz, la sesión no se puede recuperar.
func (m *PlayerService) onVoiceClosed(ctx context.Context, ev domain.PlayerEvent) {
	m.mu.Lock()
	s, ok := m.detachLocked(ev.GuildID)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.log.Warn("voice connection closed", zap.String("guild_id", ev.GuildID), zap.String("detail", ev.Message))
	m.notifyf(ctx, s.textChannelID, "🔌 Disconnected from voice, the session was closed.")
	m.release(ctx, ev.GuildID)
}

// ---------- watchdog de inactividad ----------

// armIdleLocked deja exactamente un timer vivo por sesión.
func (m *PlayerService) armIdleLocked(s *session) {
	if m.idleTimeout <= 0 {
		return
	}
	m.cancelIdleLocked(s)
	gen := s.idleGen
	guildID := s.guildID
	s.idle = m.after(m.idleTimeout, func() { m.onIdle(guildID, gen) })
}

// cancelIdleLocked también invalida un callback que ya haya disparado.
func (m *PlayerService) cancelIdleLocked(s *session) {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleGen++
}

// restartIdleLocked: la actividad reinicia la cuenta, pero una sesión vacía sigue vigilada.
func (m *PlayerService) restartIdleLocked(s *session) {
	m.cancelIdleLocked(s)
	if s.current == nil && len(s.queue) == 0 {
		m.armIdleLocked(s)
	}
}

func (m *PlayerService) onIdle(guildID string, gen uint64) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok || s.idleGen != gen {
		m.mu.Unlock()
		return
	}
	s.idle = nil
	if s.current != nil || len(s.queue) > 0 {
		m.mu.Unlock()
		return
	}
	m.detachLocked(guildID)
	text := s.textChannelID
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m.log.Info("idle timeout, leaving", zap.String("guild_id", guildID), zap.Duration("after", m.idleTimeout))
	m.notifyf(ctx, text, "👋 Left the voice channel after %s of inactivity.", m.idleTimeout)
	m.release(ctx, guildID)
}

// IdleArmed indica si el watchdog está corriendo para el guild.
func (m *PlayerService) IdleArmed(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return ok && s.idle != nil
}
