package lavalink

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type voiceUpdater interface {
	UpdateVoice(ctx context.Context, guildID, token, endpoint, sessionID string) error
}

type pendingVoice struct {
	sessionID string
	token     string
	endpoint  string
}

// VoiceBridge junta VOICE_STATE_UPDATE y VOICE_SERVER_UPDATE del bot
// y manda el par completo al nodo.
type VoiceBridge struct {
	mu     sync.Mutex
	guilds map[string]*pendingVoice
	node   voiceUpdater
	log    *zap.Logger
}

func NewVoiceBridge(node voiceUpdater, log *zap.Logger) *VoiceBridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &VoiceBridge{guilds: map[string]*pendingVoice{}, node: node, log: log}
}

// OnVoiceState: channelID vacío = el bot salió del canal.
func (b *VoiceBridge) OnVoiceState(ctx context.Context, guildID, channelID, sessionID string) {
	b.mu.Lock()
	if channelID == "" {
		delete(b.guilds, guildID)
		b.mu.Unlock()
		return
	}
	p := b.entry(guildID)
	p.sessionID = sessionID
	b.mu.Unlock()
	b.flush(ctx, guildID)
}

func (b *VoiceBridge) OnVoiceServer(ctx context.Context, guildID, token, endpoint string) {
	b.mu.Lock()
	p := b.entry(guildID)
	p.token = token
	p.endpoint = endpoint
	b.mu.Unlock()
	b.flush(ctx, guildID)
}

func (b *VoiceBridge) entry(guildID string) *pendingVoice {
	p, ok := b.guilds[guildID]
	if !ok {
		p = &pendingVoice{}
		b.guilds[guildID] = p
	}
	return p
}

func (b *VoiceBridge) flush(ctx context.Context, guildID string) {
	b.mu.Lock()
	p, ok := b.guilds[guildID]
	if !ok || p.sessionID == "" || p.token == "" || p.endpoint == "" {
		b.mu.Unlock()
		return
	}
	v := *p
	b.mu.Unlock()

	if err := b.node.UpdateVoice(ctx, guildID, v.token, v.endpoint, v.sessionID); err != nil {
		b.log.Warn("forward voice update", zap.String("guild_id", guildID), zap.Error(err))
	}
}
