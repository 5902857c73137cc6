package service

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// ---------- timers manuales ----------

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (m *manualTimers) after(d time.Duration, f func()) stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualTimers) live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *manualTimers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// fireLast dispara el último timer creado, aunque haya sido detenido.
func (m *manualTimers) fireLast() {
	m.mu.Lock()
	t := m.timers[len(m.timers)-1]
	m.mu.Unlock()
	t.f()
}

func (m *manualTimers) fire(i int) {
	m.mu.Lock()
	t := m.timers[i]
	m.mu.Unlock()
	t.f()
}

// ---------- nodo de audio ----------

type fakeNode struct {
	mu sync.Mutex

	results   map[string]domain.SearchResult
	searchErr error
	playErr   error
	failIDs   map[string]bool // Play falla sólo para estos identifiers

	searches []string
	played   []*domain.Track
	stops    int
	destroys []string
	paused   []bool
	seeks    []time.Duration
	volumes  []int
}

func newFakeNode() *fakeNode {
	return &fakeNode{results: map[string]domain.SearchResult{}}
}

func (n *fakeNode) add(src domain.SearchSource, query string, r domain.SearchResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[src.Apply(query)] = r
}

func (n *fakeNode) Search(_ context.Context, query string, src domain.SearchSource) (domain.SearchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := src.Apply(query)
	n.searches = append(n.searches, key)
	if n.searchErr != nil {
		return domain.SearchResult{}, n.searchErr
	}
	r, ok := n.results[key]
	if !ok {
		return domain.SearchResult{}, nil
	}
	out := r
	out.Tracks = make([]*domain.Track, len(r.Tracks))
	for i, t := range r.Tracks {
		out.Tracks[i] = t.Clone()
	}
	return out, nil
}

func (n *fakeNode) Play(_ context.Context, _ string, track *domain.Track, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.playErr != nil {
		return n.playErr
	}
	if n.failIDs[track.Info.Identifier] {
		return errors.New("track rejected by node")
	}
	n.played = append(n.played, track)
	return nil
}

func (n *fakeNode) Stop(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops++
	return nil
}

func (n *fakeNode) SetPaused(_ context.Context, _ string, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = append(n.paused, paused)
	return nil
}

func (n *fakeNode) Seek(_ context.Context, _ string, pos time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seeks = append(n.seeks, pos)
	return nil
}

func (n *fakeNode) SetVolume(_ context.Context, _ string, v int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.volumes = append(n.volumes, v)
	return nil
}

func (n *fakeNode) Destroy(_ context.Context, guildID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.destroys = append(n.destroys, guildID)
	return nil
}

func (n *fakeNode) searchCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.searches)
}

func (n *fakeNode) playedIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.played))
	for i, t := range n.played {
		out[i] = t.Info.Identifier
	}
	return out
}

// ---------- voz / notificaciones / mensajes ----------

type fakeVoice struct {
	mu      sync.Mutex
	joinErr error
	joins   []string
	leaves  []string
}

func (v *fakeVoice) JoinVoice(guildID, channelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.joinErr != nil {
		return v.joinErr
	}
	v.joins = append(v.joins, guildID+"/"+channelID)
	return nil
}

func (v *fakeVoice) LeaveVoice(guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves = append(v.leaves, guildID)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
	return nil
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type fakeMessenger struct {
	mu       sync.Mutex
	err      error
	resolved []domain.Proposal
	actors   []string
}

func (m *fakeMessenger) ShowResolved(_ context.Context, p domain.Proposal, actorTag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, p)
	m.actors = append(m.actors, actorTag)
	return m.err
}

// ---------- snapshot store ----------

type memStore struct {
	mu      sync.Mutex
	initial map[string]domain.GuildConfig
	loadErr error
	saveErr error
	saves   []map[string]domain.GuildConfig
}

func (s *memStore) Load(context.Context) (map[string]domain.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return maps.Clone(s.initial), nil
}

func (s *memStore) Save(_ context.Context, configs map[string]domain.GuildConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, maps.Clone(configs))
	return nil
}

func (s *memStore) setLoadErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *memStore) last() map[string]domain.GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1]
}

// ---------- helpers ----------

func testTrack(id string) *domain.Track {
	return &domain.Track{
		Encoded: "enc-" + id,
		Info: domain.TrackInfo{
			Identifier: id,
			Title:      "Title " + id,
			Author:     "Artist",
			SourceName: "youtube",
			Length:     3 * time.Minute,
			IsSeekable: true,
		},
	}
}

func single(t *domain.Track) domain.SearchResult {
	return domain.SearchResult{Tracks: []*domain.Track{t}, SelectedIndex: -1}
}

type playerFixture struct {
	player *PlayerService
	node   *fakeNode
	voice  *fakeVoice
	notes  *fakeNotifier
	timers *manualTimers
}

func newPlayerFixture(opts ...PlayerOption) *playerFixture {
	f := &playerFixture{
		node:   newFakeNode(),
		voice:  &fakeVoice{},
		notes:  &fakeNotifier{},
		timers: &manualTimers{},
	}
	base := []PlayerOption{
		WithNotifier(f.notes),
		withPlayerTimers(f.timers.after),
		WithIdleTimeout(time.Minute),
	}
	f.player = NewPlayerService(f.node, f.voice, append(base, opts...)...)
	return f
}

// enqueue registra un resultado para query y lo encola.
func (f *playerFixture) enqueue(guildID, query string, prepend bool, tracks ...*domain.Track) (EnqueueResult, error) {
	r := domain.SearchResult{Tracks: tracks, SelectedIndex: -1}
	if len(tracks) == 1 {
		r = single(tracks[0])
	}
	f.node.add(domain.SearchSourceYouTube, query, r)
	return f.player.Enqueue(context.Background(), EnqueueRequest{
		GuildID:        guildID,
		VoiceChannelID: "voice-1",
		TextChannelID:  "text-1",
		Query:          query,
		Requester:      domain.Requester{ID: "u1", Tag: "alice"},
		Prepend:        prepend,
	})
}
