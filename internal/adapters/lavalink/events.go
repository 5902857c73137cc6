package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const maxBackoff = 30 * time.Second

// Run mantiene el websocket abierto, reconectando con backoff, hasta que ctx se cancele.
// Es el único emisor de Events(): lo cierra al salir.
func (n *Node) Run(ctx context.Context) {
	defer close(n.events)

	backoff := time.Second
	for {
		ready, err := n.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		if ready {
			backoff = time.Second
		}
		n.log.Warn("lavalink websocket closed, reconnecting", zap.Error(err), zap.Duration("in", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// connect lee mensajes hasta que la conexión se corte. ready=true si llegó el op "ready".
func (n *Node) connect(ctx context.Context) (bool, error) {
	h := http.Header{}
	h.Set("Authorization", n.password)
	h.Set("User-Id", n.userID)
	h.Set("Client-Name", clientName)
	if sid := n.SessionID(); sid != "" && n.resumeTimeout > 0 {
		h.Set("Session-Id", sid)
	}

	conn, _, err := n.dialer.DialContext(ctx, n.wsURL, h)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", n.wsURL, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	gotReady := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return gotReady, err
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			n.log.Debug("bad websocket message", zap.Error(err))
			continue
		}
		if msg.Op == "ready" {
			gotReady = true
		}
		n.handleMessage(ctx, msg)
	}
}

func (n *Node) handleMessage(ctx context.Context, msg wsMessage) {
	switch msg.Op {
	case "ready":
		n.mu.Lock()
		n.sessionID = msg.SessionID
		n.mu.Unlock()
		n.readyOnce.Do(func() { close(n.ready) })
		n.log.Info("lavalink ready", zap.String("session_id", msg.SessionID), zap.Bool("resumed", msg.Resumed))

		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := n.configureResuming(rctx, msg.SessionID); err != nil {
			n.log.Warn("configure resuming", zap.Error(err))
		}
	case "event":
		ev, ok := toPlayerEvent(msg)
		if !ok {
			n.log.Debug("ignored lavalink event", zap.String("type", msg.Type), zap.String("guild_id", msg.GuildID))
			return
		}
		select {
		case n.events <- ev:
		case <-ctx.Done():
		}
	case "playerUpdate", "stats":
	default:
		n.log.Debug("unknown op", zap.String("op", msg.Op))
	}
}

// toPlayerEvent traduce un op "event" al evento de dominio.
func toPlayerEvent(msg wsMessage) (domain.PlayerEvent, bool) {
	ev := domain.PlayerEvent{GuildID: msg.GuildID}
	switch msg.Type {
	case string(domain.EventTrackStart):
		ev.Type = domain.EventTrackStart
	case string(domain.EventTrackEnd):
		ev.Type = domain.EventTrackEnd
		ev.Reason = domain.TrackEndReason(msg.Reason)
	case string(domain.EventTrackException):
		ev.Type = domain.EventTrackException
		if msg.Exception != nil {
			ev.Message = msg.Exception.Message
		}
	case string(domain.EventTrackStuck):
		ev.Type = domain.EventTrackStuck
		ev.Message = fmt.Sprintf("no audio for %dms", msg.Threshold)
	case string(domain.EventVoiceClosed):
		// sólo los cierres de Discord; los nuestros (leave) no cuentan
		if !msg.ByRemote {
			return domain.PlayerEvent{}, false
		}
		ev.Type = domain.EventVoiceClosed
		ev.Message = fmt.Sprintf("%d %s", msg.Code, msg.Reason)
	default:
		return domain.PlayerEvent{}, false
	}
	if msg.Track != nil {
		ev.Track = msg.Track.toDomain()
	}
	return ev, true
}
