package service

import (
	"context"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// Lo implementa internal/adapters/lavalink.Node
type AudioNode interface {
	Search(ctx context.Context, query string, source domain.SearchSource) (domain.SearchResult, error)
	Play(ctx context.Context, guildID string, track *domain.Track, volume int) error
	Stop(ctx context.Context, guildID string) error
	SetPaused(ctx context.Context, guildID string, paused bool) error
	Seek(ctx context.Context, guildID string, position time.Duration) error
	SetVolume(ctx context.Context, guildID string, volume int) error
	Destroy(ctx context.Context, guildID string) error
}

// Lo implementa internal/adapters/discord (op 4 del gateway)
type VoiceGateway interface {
	JoinVoice(guildID, channelID string) error
	LeaveVoice(guildID string) error
}

// Mensajes de texto best-effort al canal de la sesión.
type Notifier interface {
	Notify(ctx context.Context, channelID, message string) error
}

// Edita el mensaje de la propuesta una vez resuelta.
type ProposalMessenger interface {
	ShowResolved(ctx context.Context, p domain.Proposal, actorTag string) error
}

// Lo implementan los stores de internal/infra/storage.
type SnapshotStore interface {
	Load(ctx context.Context) (map[string]domain.GuildConfig, error)
	Save(ctx context.Context, configs map[string]domain.GuildConfig) error
}

// stopper es lo único que necesitamos de un *time.Timer.
type stopper interface {
	Stop() bool
}

// afterFunc permite inyectar timers falsos en tests.
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
