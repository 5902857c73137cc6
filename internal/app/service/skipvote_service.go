package service

import (
	"math"
	"sync"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type SkipDecision int

const (
	SkipDenied SkipDecision = iota
	SkipNow
	SkipVoteRegistered
	SkipVoteDuplicate
)

type SkipVoteResult struct {
	Decision SkipDecision
	Votes    int
	Required int
}

type voteTally struct {
	trackKey string
	voters   map[string]struct{}
}

// SkipVoteService lleva el conteo de votos de skip del track actual de cada guild.
type SkipVoteService struct {
	mu      sync.Mutex
	tallies map[string]*voteTally
}

func NewSkipVoteService() *SkipVoteService {
	return &SkipVoteService{tallies: map[string]*voteTally{}}
}

// RequiredVotes = ceil(listeners * threshold), mínimo 1.
func RequiredVotes(listeners int, threshold float64) int {
	if listeners < 1 {
		return 1
	}
	threshold = domain.NormalizeVoteThreshold(threshold)
	// 1e-9 absorbe errores tipo 10*0.7 = 7.000000000000001
	n := int(math.Ceil(float64(listeners)*threshold - 1e-9))
	return max(1, n)
}

// Vote decide qué pasa con un pedido de skip. listeners = humanos en el canal de voz del bot.
func (v *SkipVoteService) Vote(actor domain.Actor, cfg domain.GuildConfig, guildID, trackKey string, listeners int) SkipVoteResult {
	if !cfg.Enabled {
		return SkipVoteResult{Decision: SkipNow}
	}
	dj := CanControlPlayback(actor, cfg)
	switch cfg.SkipMode {
	case domain.SkipModeDJ:
		if !dj {
			return SkipVoteResult{Decision: SkipDenied}
		}
		v.Reset(guildID)
		return SkipVoteResult{Decision: SkipNow}
	case domain.SkipModeHybrid:
		if dj {
			v.Reset(guildID)
			return SkipVoteResult{Decision: SkipNow}
		}
	}

	required := RequiredVotes(listeners, cfg.VoteThreshold)

	v.mu.Lock()
	defer v.mu.Unlock()

	t, ok := v.tallies[guildID]
	if !ok || t.trackKey != trackKey {
		t = &voteTally{trackKey: trackKey, voters: map[string]struct{}{}}
		v.tallies[guildID] = t
	}
	if _, dup := t.voters[actor.UserID]; dup {
		return SkipVoteResult{Decision: SkipVoteDuplicate, Votes: len(t.voters), Required: required}
	}
	t.voters[actor.UserID] = struct{}{}

	n := len(t.voters)
	if n >= required {
		delete(v.tallies, guildID)
		return SkipVoteResult{Decision: SkipNow, Votes: n, Required: required}
	}
	return SkipVoteResult{Decision: SkipVoteRegistered, Votes: n, Required: required}
}

// Votes devuelve los votos acumulados para trackKey.
func (v *SkipVoteService) Votes(guildID, trackKey string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t, ok := v.tallies[guildID]; ok && t.trackKey == trackKey {
		return len(t.voters)
	}
	return 0
}

func (v *SkipVoteService) Reset(guildID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tallies, guildID)
}
