package discord

import (
	"context"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
)

// voiceForwarder recibe los eventos de voz del propio bot (lo implementa lavalink.VoiceBridge).
type voiceForwarder interface {
	OnVoiceState(ctx context.Context, guildID, channelID, sessionID string)
	OnVoiceServer(ctx context.Context, guildID, token, endpoint string)
}

// Deps agrupa los servicios que usa el router.
type Deps struct {
	Configs   *service.DJConfigService
	Player    *service.PlayerService
	Proposals *service.ProposalService
	Votes     *service.SkipVoteService
	Voice     voiceForwarder
}

// atajos de tuning
const (
	slashTimeout     = 12 * time.Second
	componentTimeout = 8 * time.Second
	queuePageSize    = 10
)
