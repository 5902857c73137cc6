package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

func payload(query string) domain.ProposalPayload {
	return domain.ProposalPayload{
		Query:          query,
		Preview:        domain.ProposalPreview{Title: query},
		Requester:      domain.Requester{ID: "u1", Tag: "alice"},
		VoiceChannelID: "v1",
		TextChannelID:  "t1",
	}
}

func TestProposalRegistry_CreateAssignsSequentialIDs(t *testing.T) {
	r := NewProposalRegistry()

	a := r.Create("g1", payload("a"))
	b := r.Create("g1", payload("b"))
	other := r.Create("g2", payload("c"))

	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "2", b.ID)
	assert.Equal(t, "1", other.ID, "ids are scoped per guild")
	assert.Equal(t, domain.ProposalPending, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestProposalRegistry_IDsAreNotReused(t *testing.T) {
	r := NewProposalRegistry()

	a := r.Create("g1", payload("a"))
	_, ok := r.Resolve("g1", a.ID, domain.ProposalRejected)
	require.True(t, ok)

	b := r.Create("g1", payload("b"))
	assert.Equal(t, "2", b.ID)
}

func TestProposalRegistry_StoredCopyIsIsolated(t *testing.T) {
	r := NewProposalRegistry()

	in := payload("song")
	p := r.Create("g1", in)
	in.Query = "mutated"
	p.Preview.Title = "mutated too"

	got, ok := r.Get("g1", p.ID)
	require.True(t, ok)
	assert.Equal(t, "song", got.Query)
	assert.Equal(t, "song", got.Preview.Title)
}

func TestProposalRegistry_ListInCreationOrder(t *testing.T) {
	r := NewProposalRegistry()
	for _, q := range []string{"a", "b", "c", "d"} {
		r.Create("g1", payload(q))
	}
	_, ok := r.Resolve("g1", "2", domain.ProposalApproved)
	require.True(t, ok)

	var queries []string
	for _, p := range r.List("g1") {
		queries = append(queries, p.Query)
	}
	assert.Equal(t, []string{"a", "c", "d"}, queries)
	assert.Empty(t, r.List("nope"))
}

func TestProposalRegistry_ResolveThenGetIsGone(t *testing.T) {
	r := NewProposalRegistry()
	p := r.Create("g1", payload("a"))

	resolved, ok := r.Resolve("g1", p.ID, domain.ProposalApproved)
	require.True(t, ok)
	assert.Equal(t, domain.ProposalApproved, resolved.Status)
	assert.False(t, resolved.ResolvedAt.IsZero())

	_, ok = r.Get("g1", p.ID)
	assert.False(t, ok)

	_, ok = r.Resolve("g1", p.ID, domain.ProposalRejected)
	assert.False(t, ok, "second resolve is a no-op")
}

func TestProposalRegistry_AttachMessageRef(t *testing.T) {
	r := NewProposalRegistry()
	p := r.Create("g1", payload("a"))

	r.AttachMessageRef("g1", p.ID, "m1", "c1")
	r.AttachMessageRef("g1", "99", "m2", "c2")
	r.AttachMessageRef("nope", "1", "m3", "c3")

	got, _ := r.Get("g1", p.ID)
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, "c1", got.ChannelID)
}

func TestProposalRegistry_ClaimIsExclusive(t *testing.T) {
	r := NewProposalRegistry()
	p := r.Create("g1", payload("a"))

	_, ok := r.Claim("g1", p.ID)
	require.True(t, ok)
	_, ok = r.Claim("g1", p.ID)
	assert.False(t, ok)

	r.Release("g1", p.ID)
	_, ok = r.Claim("g1", p.ID)
	assert.True(t, ok)
}

func TestProposalRegistry_ClearResetsCounter(t *testing.T) {
	r := NewProposalRegistry()
	r.Create("g1", payload("a"))
	r.Create("g1", payload("b"))
	r.Create("g2", payload("x"))

	r.Clear("g1")

	assert.Zero(t, r.Count("g1"))
	assert.Equal(t, 1, r.Count("g2"))
	assert.Equal(t, "1", r.Create("g1", payload("c")).ID)
}

func TestProposalRegistry_ConcurrentResolveHasOneWinner(t *testing.T) {
	r := NewProposalRegistry()
	p := r.Create("g1", payload("a"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 16 {
		status := domain.ProposalApproved
		if i%2 == 0 {
			status = domain.ProposalRejected
		}
		wg.Go(func() {
			if _, ok := r.Resolve("g1", p.ID, status); ok {
				wins.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Zero(t, r.Count("g1"))
}

func TestProperty_RegistryResolveExactlyOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("n concurrent resolvers on one proposal yield one winner", prop.ForAll(
		func(created, resolvers int) bool {
			r := NewProposalRegistry()
			var last domain.Proposal
			for range created {
				last = r.Create("g", payload("q"))
			}

			var wins atomic.Int32
			var wg sync.WaitGroup
			for range resolvers {
				wg.Go(func() {
					if _, ok := r.Resolve("g", last.ID, domain.ProposalApproved); ok {
						wins.Add(1)
					}
				})
			}
			wg.Wait()

			_, stillThere := r.Get("g", last.ID)
			return wins.Load() == 1 && !stillThere && r.Count("g") == created-1
		},
		gen.IntRange(1, 10),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
