package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type guildProposals struct {
	seq     uint64
	order   []string
	pending map[string]*domain.Proposal
	claimed map[string]bool
}

// ProposalRegistry guarda las propuestas pendientes por guild, sólo en memoria.
type ProposalRegistry struct {
	mu     sync.Mutex
	guilds map[string]*guildProposals
	now    func() time.Time
}

func NewProposalRegistry() *ProposalRegistry {
	return &ProposalRegistry{guilds: map[string]*guildProposals{}, now: time.Now}
}

func (r *ProposalRegistry) guild(guildID string) *guildProposals {
	g, ok := r.guilds[guildID]
	if !ok {
		g = &guildProposals{pending: map[string]*domain.Proposal{}, claimed: map[string]bool{}}
		r.guilds[guildID] = g
	}
	return g
}

// Create asigna el siguiente id del guild y guarda una copia del payload.
func (r *ProposalRegistry) Create(guildID string, payload domain.ProposalPayload) domain.Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.guild(guildID)
	g.seq++
	p := &domain.Proposal{
		ID:              strconv.FormatUint(g.seq, 10),
		GuildID:         guildID,
		Status:          domain.ProposalPending,
		CreatedAt:       r.now(),
		ProposalPayload: payload,
	}
	g.pending[p.ID] = p
	g.order = append(g.order, p.ID)
	return *p
}

func (r *ProposalRegistry) Get(guildID, id string) (domain.Proposal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guilds[guildID]
	if !ok {
		return domain.Proposal{}, false
	}
	p, ok := g.pending[id]
	if !ok {
		return domain.Proposal{}, false
	}
	return *p, true
}

// List devuelve las pendientes en orden de creación.
func (r *ProposalRegistry) List(guildID string) []domain.Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guilds[guildID]
	if !ok {
		return nil
	}
	out := make([]domain.Proposal, 0, len(g.order))
	for _, id := range g.order {
		if p, ok := g.pending[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// AttachMessageRef es no-op si la propuesta ya no existe.
func (r *ProposalRegistry) AttachMessageRef(guildID, id, messageID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guilds[guildID]
	if !ok {
		return
	}
	if p, ok := g.pending[id]; ok {
		p.MessageID = messageID
		p.ChannelID = channelID
	}
}

// Claim marca la propuesta como "en curso" para que otra interacción no la procese
// en paralelo. Devuelve false si no existe o ya está tomada.
func (r *ProposalRegistry) Claim(guildID, id string) (domain.Proposal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guilds[guildID]
	if !ok {
		return domain.Proposal{}, false
	}
	p, ok := g.pending[id]
	if !ok || g.claimed[id] {
		return domain.Proposal{}, false
	}
	g.claimed[id] = true
	return *p, true
}

// Release libera un Claim sin resolver (p.ej. falló el enqueue).
func (r *ProposalRegistry) Release(guildID, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guilds[guildID]; ok {
		delete(g.claimed, id)
	}
}

// Resolve lee y saca la propuesta en un solo paso: el primero gana, el resto recibe false.
func (r *ProposalRegistry) Resolve(guildID, id string, status domain.ProposalStatus) (domain.Proposal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guilds[guildID]
	if !ok {
		return domain.Proposal{}, false
	}
	p, ok := g.pending[id]
	if !ok {
		return domain.Proposal{}, false
	}
	delete(g.pending, id)
	delete(g.claimed, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	p.Status = status
	p.ResolvedAt = r.now()
	return *p, true
}

// Clear borra propuestas y contador del guild (teardown de la sesión).
func (r *ProposalRegistry) Clear(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guilds, guildID)
}

// Count es el total pendiente del guild.
func (r *ProposalRegistry) Count(guildID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guilds[guildID]; ok {
		return len(g.pending)
	}
	return 0
}
