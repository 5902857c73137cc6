package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

var (
	ErrNoResults = errors.New("no results found for that query")
	ErrNoSession = errors.New("no active playback session")
)

const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultSessionVolume = 80
	maxSessionVolume     = 1000
	maxUserVolume        = 100
)

type session struct {
	guildID        string
	voiceChannelID string
	textChannelID  string

	current *domain.Track
	queue   []*domain.Track
	volume  int
	loop    domain.LoopMode
	paused  bool

	createdAt time.Time
	idle      stopper
	idleGen   uint64
}

// SessionSnapshot es una copia de sólo lectura del estado de la sesión.
type SessionSnapshot struct {
	GuildID        string          `json:"guildId"`
	VoiceChannelID string          `json:"voiceChannelId"`
	TextChannelID  string          `json:"textChannelId"`
	Current        *domain.Track   `json:"current"`
	Queue          []*domain.Track `json:"queue"`
	Volume         int             `json:"volume"`
	Loop           domain.LoopMode `json:"loop"`
	Paused         bool            `json:"paused"`
	IdleArmed      bool            `json:"idleArmed"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (s *session) snapshot() SessionSnapshot {
	q := make([]*domain.Track, len(s.queue))
	for i, t := range s.queue {
		q[i] = t.Clone()
	}
	return SessionSnapshot{
		GuildID:        s.guildID,
		VoiceChannelID: s.voiceChannelID,
		TextChannelID:  s.textChannelID,
		Current:        s.current.Clone(),
		Queue:          q,
		Volume:         s.volume,
		Loop:           s.loop,
		Paused:         s.paused,
		IdleArmed:      s.idle != nil,
		CreatedAt:      s.createdAt,
	}
}

type EnqueueRequest struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	Query          string
	Requester      domain.Requester
	Prepend        bool
}

type EnqueueResult struct {
	Track              *domain.Track
	Added              int
	IsPlaylist         bool
	StartedImmediately bool
}

// PlayerService es dueño de una sesión de reproducción por guild.
type PlayerService struct {
	mu       sync.Mutex
	sessions map[string]*session

	node   AudioNode
	voice  VoiceGateway
	notify Notifier
	log    *zap.Logger

	idleTimeout   time.Duration
	defaultVolume int
	searchSource  domain.SearchSource
	after         afterFunc

	teardownHooks []func(guildID string)
}

type PlayerOption func(*PlayerService)

// WithIdleTimeout: <= 0 desactiva el watchdog.
func WithIdleTimeout(d time.Duration) PlayerOption {
	return func(m *PlayerService) { m.idleTimeout = d }
}

func WithDefaultVolume(v int) PlayerOption {
	return func(m *PlayerService) { m.defaultVolume = clamp(v, 0, maxSessionVolume) }
}

func WithSearchSource(src domain.SearchSource) PlayerOption {
	return func(m *PlayerService) {
		if src != domain.SearchSourceNone {
			m.searchSource = src
		}
	}
}

func WithNotifier(n Notifier) PlayerOption {
	return func(m *PlayerService) { m.notify = n }
}

func WithPlayerLogger(l *zap.Logger) PlayerOption {
	return func(m *PlayerService) { m.log = l }
}

// OnTeardown registra un callback que corre cuando la sesión de un guild se destruye.
func OnTeardown(f func(guildID string)) PlayerOption {
	return func(m *PlayerService) { m.teardownHooks = append(m.teardownHooks, f) }
}

func withPlayerTimers(f afterFunc) PlayerOption {
	return func(m *PlayerService) { m.after = f }
}

func NewPlayerService(node AudioNode, voice VoiceGateway, opts ...PlayerOption) *PlayerService {
	m := &PlayerService{
		sessions:      map[string]*session{},
		node:          node,
		voice:         voice,
		log:           zap.NewNop(),
		idleTimeout:   DefaultIdleTimeout,
		defaultVolume: DefaultSessionVolume,
		searchSource:  domain.SearchSourceYouTube,
		after:         realAfterFunc,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// EnsureSession devuelve la sesión existente o crea una ligada al par voz/texto.
func (m *PlayerService) EnsureSession(guildID, voiceChannelID, textChannelID string) (SessionSnapshot, error) {
	m.mu.Lock()
	if s, ok := m.sessions[guildID]; ok {
		snap := s.snapshot()
		m.mu.Unlock()
		return snap, nil
	}
	s := &session{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		volume:         clamp(m.defaultVolume, 0, maxSessionVolume),
		loop:           domain.LoopNone,
		createdAt:      time.Now(),
	}
	m.sessions[guildID] = s
	snap := s.snapshot()
	m.mu.Unlock()

	if m.voice != nil {
		if err := m.voice.JoinVoice(guildID, voiceChannelID); err != nil {
			m.mu.Lock()
			if m.sessions[guildID] == s {
				delete(m.sessions, guildID)
			}
			m.mu.Unlock()
			return SessionSnapshot{}, fmt.Errorf("join voice channel: %w", err)
		}
	}
	m.log.Info("session created", zap.String("guild_id", guildID), zap.String("voice_channel_id", voiceChannelID))
	return snap, nil
}

// resolveQuery: URLs van tal cual, el resto se busca con la fuente por defecto.
func (m *PlayerService) resolveQuery(query string) (string, domain.SearchSource) {
	q := strings.TrimSpace(query)
	if strings.Contains(q, "://") {
		return q, domain.SearchSourceNone
	}
	return q, m.searchSource
}

// Preview busca la query sin tocar ninguna sesión (para propuestas).
func (m *PlayerService) Preview(ctx context.Context, query string) (domain.ProposalPreview, error) {
	q, src := m.resolveQuery(query)
	if q == "" {
		return domain.ProposalPreview{}, ErrNoResults
	}
	res, err := m.node.Search(ctx, q, src)
	if err != nil {
		return domain.ProposalPreview{}, fmt.Errorf("search %q: %w", q, err)
	}
	if res.Empty() {
		return domain.ProposalPreview{}, ErrNoResults
	}
	return domain.PreviewFromResult(res), nil
}

// Enqueue busca la query, agrega lo encontrado y arranca si no había nada sonando.
func (m *PlayerService) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	q, src := m.resolveQuery(req.Query)
	if q == "" {
		return EnqueueResult{}, ErrNoResults
	}
	res, err := m.node.Search(ctx, q, src)
	if err != nil {
		m.log.Warn("search failed", zap.String("guild_id", req.GuildID), zap.String("query", q), zap.Error(err))
		return EnqueueResult{}, fmt.Errorf("search %q: %w", q, err)
	}
	if res.Empty() {
		return EnqueueResult{}, ErrNoResults
	}

	if _, err := m.EnsureSession(req.GuildID, req.VoiceChannelID, req.TextChannelID); err != nil {
		return EnqueueResult{}, err
	}

	selected, idx := res.Selected()
	for _, t := range res.Tracks {
		t.Requester = req.Requester
		t.FallbackAttempts = 0
		t.FallbackOf = ""
	}

	m.mu.Lock()
	s, ok := m.sessions[req.GuildID]
	if !ok {
		// un /stop ganó la carrera
		m.mu.Unlock()
		return EnqueueResult{}, ErrNoSession
	}
	m.cancelIdleLocked(s)

	start := s.current == nil
	added := res.Tracks
	if start && len(s.queue) == 0 {
		s.current = selected
		added = slices.Delete(slices.Clone(res.Tracks), idx, idx+1)
	}
	if req.Prepend {
		s.queue = append(slices.Clone(added), s.queue...)
	} else {
		s.queue = append(s.queue, added...)
	}
	if start && s.current == nil {
		// cola detenida: se retoma en orden
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	}
	playing := s.current
	if start {
		s.paused = false
	}
	volume := s.volume
	m.mu.Unlock()

	if start {
		if err := m.node.Play(ctx, req.GuildID, playing, volume); err != nil {
			m.rollback(req.GuildID, playing, append(slices.Clone(added), selected))
			m.log.Warn("start playback failed", zap.String("guild_id", req.GuildID), zap.String("track", playing.Label()), zap.Error(err))
			return EnqueueResult{}, fmt.Errorf("start playback: %w", err)
		}
	}

	m.log.Info("enqueued",
		zap.String("guild_id", req.GuildID),
		zap.String("track", selected.Label()),
		zap.Int("tracks", len(res.Tracks)),
		zap.Bool("prepend", req.Prepend),
		zap.Bool("started", start),
	)
	return EnqueueResult{
		Track:              selected.Clone(),
		Added:              len(res.Tracks),
		IsPlaylist:         res.IsPlaylist,
		StartedImmediately: start && playing == selected,
	}, nil
}

// rollback deshace lo que agregó un Enqueue cuyo arranque falló.
// Un current que no era del Enqueue vuelve a la cabeza de la cola.
func (m *PlayerService) rollback(guildID string, current *domain.Track, added []*domain.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok {
		return
	}
	if s.current == current {
		s.current = nil
		if !slices.Contains(added, current) {
			s.queue = append([]*domain.Track{current}, s.queue...)
		}
	}
	s.queue = slices.DeleteFunc(s.queue, func(t *domain.Track) bool { return slices.Contains(added, t) })
	if s.current == nil && len(s.queue) == 0 {
		m.armIdleLocked(s)
	}
}

// play arranca track. Si el nodo lo rechaza se descarta y sigue con el próximo de la cola;
// cuando no queda nada la sesión vacía arma el watchdog.
func (m *PlayerService) play(ctx context.Context, guildID string, track *domain.Track, volume int) error {
	var lastErr error
	for track != nil {
		err := m.node.Play(ctx, guildID, track, volume)
		if err == nil {
			return nil
		}
		m.log.Warn("play failed", zap.String("guild_id", guildID), zap.String("track", track.Label()), zap.Error(err))
		lastErr = fmt.Errorf("play %q: %w", track.Info.Title, err)

		m.mu.Lock()
		s, ok := m.sessions[guildID]
		if !ok || s.current != track {
			// stop u otro avance ganó la carrera
			m.mu.Unlock()
			return lastErr
		}
		next := m.advanceLocked(s, advanceFailed)
		volume = s.volume
		text := s.textChannelID
		m.mu.Unlock()

		m.notifyf(ctx, text, "⚠️ Couldn't play **%s**, skipping.", track.Label())
		track = next
	}
	return lastErr
}

// Stop vacía la cola y destruye la sesión.
func (m *PlayerService) Stop(ctx context.Context, guildID string) bool {
	m.mu.Lock()
	_, ok := m.detachLocked(guildID)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.release(ctx, guildID)
	return true
}

// detachLocked saca la sesión del mapa; la liberación externa la hace release.
func (m *PlayerService) detachLocked(guildID string) (*session, bool) {
	s, ok := m.sessions[guildID]
	if !ok {
		return nil, false
	}
	m.cancelIdleLocked(s)
	delete(m.sessions, guildID)
	s.queue = nil
	s.current = nil
	return s, true
}

func (m *PlayerService) release(ctx context.Context, guildID string) {
	if err := m.node.Destroy(ctx, guildID); err != nil {
		m.log.Warn("destroy player", zap.String("guild_id", guildID), zap.Error(err))
	}
	if m.voice != nil {
		if err := m.voice.LeaveVoice(guildID); err != nil {
			m.log.Warn("leave voice", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	for _, h := range m.teardownHooks {
		h(guildID)
	}
	m.log.Info("session destroyed", zap.String("guild_id", guildID))
}

func (m *PlayerService) Pause(ctx context.Context, guildID string) (bool, error) {
	return m.setPaused(ctx, guildID, true)
}

func (m *PlayerService) Resume(ctx context.Context, guildID string) (bool, error) {
	return m.setPaused(ctx, guildID, false)
}

func (m *PlayerService) setPaused(ctx context.Context, guildID string, paused bool) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok || s.current == nil || s.paused == paused {
		m.mu.Unlock()
		return false, nil
	}
	s.paused = paused
	m.cancelIdleLocked(s)
	m.mu.Unlock()

	if err := m.node.SetPaused(ctx, guildID, paused); err != nil {
		m.mu.Lock()
		if cur, ok := m.sessions[guildID]; ok && cur == s {
			s.paused = !paused
		}
		m.mu.Unlock()
		return false, fmt.Errorf("set paused: %w", err)
	}
	return true, nil
}

// Skip avanza al siguiente; si la sesión queda vacía arma el watchdog.
func (m *PlayerService) Skip(ctx context.Context, guildID string) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok || (s.current == nil && len(s.queue) == 0) {
		m.mu.Unlock()
		return false, nil
	}
	next := m.advanceLocked(s, advanceSkip)
	volume := s.volume
	m.mu.Unlock()

	if next == nil {
		if err := m.node.Stop(ctx, guildID); err != nil {
			return true, fmt.Errorf("stop track: %w", err)
		}
		return true, nil
	}
	return true, m.play(ctx, guildID, next, volume)
}

type advanceCause int

const (
	advanceSkip advanceCause = iota
	advanceFinished
	advanceFailed
)

// advanceLocked elige el próximo track según el loop. Un track que falló no vuelve a la cola.
func (m *PlayerService) advanceLocked(s *session, cause advanceCause) *domain.Track {
	prev := s.current
	var next *domain.Track
	switch {
	case cause == advanceFinished && s.loop == domain.LoopTrack && prev != nil:
		next = prev
	default:
		if cause != advanceFailed && s.loop == domain.LoopQueue && prev != nil {
			s.queue = append(s.queue, prev)
		}
		if len(s.queue) > 0 {
			next = s.queue[0]
			s.queue = s.queue[1:]
		}
	}
	s.current = next
	s.paused = false
	if next == nil {
		m.armIdleLocked(s)
	} else {
		m.cancelIdleLocked(s)
	}
	return next
}

func (m *PlayerService) SeekToStart(ctx context.Context, guildID string) (bool, error) {
	return m.SeekTo(ctx, guildID, 0)
}

// SeekTo no hace nada si no hay track o el track no admite seek.
func (m *PlayerService) SeekTo(ctx context.Context, guildID string, position time.Duration) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok || s.current == nil || !s.current.Info.IsSeekable {
		m.mu.Unlock()
		return false, nil
	}
	if length := s.current.Info.Length; length > 0 && position > length {
		position = length
	}
	if position < 0 {
		position = 0
	}
	m.cancelIdleLocked(s)
	m.mu.Unlock()

	if err := m.node.Seek(ctx, guildID, position); err != nil {
		return false, fmt.Errorf("seek: %w", err)
	}
	return true, nil
}

// ToggleLoop aplica el modo si es válido; si no, cicla none -> track -> queue -> none.
func (m *PlayerService) ToggleLoop(guildID, mode string) (domain.LoopMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok {
		return "", false
	}
	if lm, ok := domain.ParseLoopMode(mode); ok {
		s.loop = lm
	} else {
		s.loop = s.loop.Next()
	}
	m.restartIdleLocked(s)
	return s.loop, true
}

func (m *PlayerService) Shuffle(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok || len(s.queue) == 0 {
		return false
	}
	rand.Shuffle(len(s.queue), func(i, j int) { s.queue[i], s.queue[j] = s.queue[j], s.queue[i] })
	m.cancelIdleLocked(s)
	return true
}

func (m *PlayerService) ClearQueue(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok || len(s.queue) == 0 {
		return false
	}
	s.queue = nil
	m.restartIdleLocked(s)
	return true
}

// SetVolume recorta a [0, 100].
func (m *PlayerService) SetVolume(ctx context.Context, guildID string, volume int) (int, bool, error) {
	volume = clamp(volume, 0, maxUserVolume)

	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok {
		m.mu.Unlock()
		return 0, false, nil
	}
	prev := s.volume
	s.volume = volume
	m.mu.Unlock()

	if err := m.node.SetVolume(ctx, guildID, volume); err != nil {
		m.mu.Lock()
		if cur, ok := m.sessions[guildID]; ok && cur == s {
			s.volume = prev
		}
		m.mu.Unlock()
		return prev, true, fmt.Errorf("set volume: %w", err)
	}
	return volume, true, nil
}

func (m *PlayerService) GetVolume(guildID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok {
		return 0, false
	}
	return clamp(s.volume, 0, maxUserVolume), true
}

// GetDuration devuelve la duración del track actual.
func (m *PlayerService) GetDuration(guildID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.current == nil {
		return 0, false
	}
	return s.current.Info.Length, true
}

func (m *PlayerService) Snapshot(guildID string) (SessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok {
		return SessionSnapshot{}, false
	}
	return s.snapshot(), true
}

// CurrentTrackKey identifica el track actual (lo usa el conteo de votos).
func (m *PlayerService) CurrentTrackKey(guildID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.current == nil {
		return "", false
	}
	return s.current.Encoded, true
}

func (m *PlayerService) notifyf(ctx context.Context, channelID, format string, args ...any) {
	if m.notify == nil || channelID == "" {
		return
	}
	if err := m.notify.Notify(ctx, channelID, fmt.Sprintf(format, args...)); err != nil {
		m.log.Debug("notify failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
