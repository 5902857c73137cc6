package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const DefaultConfigDebounce = 2 * time.Second

// DJConfigService guarda la config DJ por guild en memoria y la persiste con debounce.
type DJConfigService struct {
	mu      sync.Mutex
	configs map[string]domain.GuildConfig

	store    SnapshotStore
	log      *zap.Logger
	debounce time.Duration
	after    afterFunc

	dirty bool
	timer stopper

	// loaded=false tras un Load fallido: no se escribe nada hasta releer lo persistido.
	// touched son los guilds modificados mientras tanto; ganan sobre lo releído.
	loaded  bool
	touched map[string]struct{}

	// serializa escrituras para no pisar un snapshot nuevo con uno viejo
	flushMu sync.Mutex
}

type DJConfigOption func(*DJConfigService)

func WithConfigDebounce(d time.Duration) DJConfigOption {
	return func(s *DJConfigService) {
		if d > 0 {
			s.debounce = d
		}
	}
}

func WithConfigLogger(l *zap.Logger) DJConfigOption {
	return func(s *DJConfigService) { s.log = l }
}

func withConfigTimers(f afterFunc) DJConfigOption {
	return func(s *DJConfigService) { s.after = f }
}

// NewDJConfigService carga el snapshot. Un store caído o un snapshot corrupto no impiden arrancar.
func NewDJConfigService(ctx context.Context, store SnapshotStore, opts ...DJConfigOption) *DJConfigService {
	s := &DJConfigService{
		configs:  map[string]domain.GuildConfig{},
		store:    store,
		log:      zap.NewNop(),
		debounce: DefaultConfigDebounce,
		after:    realAfterFunc,
	}
	for _, o := range opts {
		o(s)
	}

	if store == nil {
		s.loaded = true
		return s
	}
	loaded, err := store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptSnapshot):
		// no hay nada recuperable: el próximo flush lo reemplaza
		s.log.Error("guild config snapshot is corrupt, starting empty", zap.Error(err))
		s.loaded = true
		return s
	case err != nil:
		s.log.Error("load guild configs, starting empty until the store answers", zap.Error(err))
		s.touched = map[string]struct{}{}
		return s
	}
	for guildID, cfg := range loaded {
		s.configs[guildID] = cfg.Normalize()
	}
	s.loaded = true
	s.log.Info("guild configs loaded", zap.Int("guilds", len(s.configs)))
	return s
}

// Get nunca falla: materializa defaults si el guild no existe.
func (s *DJConfigService) Get(guildID string) domain.GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(guildID)
}

func (s *DJConfigService) getLocked(guildID string) domain.GuildConfig {
	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = domain.DefaultGuildConfig()
		s.configs[guildID] = cfg
	}
	return cfg
}

// Set mezcla el patch, agenda la persistencia y devuelve la config resultante.
func (s *DJConfigService) Set(guildID string, patch domain.GuildConfigPatch) domain.GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := patch.Apply(s.getLocked(guildID))
	s.configs[guildID] = cur
	if !s.loaded {
		s.touched[guildID] = struct{}{}
	}
	s.scheduleFlushLocked()
	return cur
}

func (s *DJConfigService) Disable(guildID string) domain.GuildConfig {
	off := false
	return s.Set(guildID, domain.GuildConfigPatch{Enabled: &off})
}

// SetRole con "" limpia el rol.
func (s *DJConfigService) SetRole(guildID, roleID string) domain.GuildConfig {
	return s.Set(guildID, domain.GuildConfigPatch{RoleID: &roleID})
}

func (s *DJConfigService) SetStrict(guildID string, strict bool) domain.GuildConfig {
	return s.Set(guildID, domain.GuildConfigPatch{StrictMode: &strict})
}

// Snapshot copia todas las configs conocidas.
func (s *DJConfigService) Snapshot() map[string]domain.GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.configs)
}

// ---------- persistencia ----------

// dirty + timer: cada mutación reinicia la ventana de debounce.
func (s *DJConfigService) scheduleFlushLocked() {
	s.dirty = true
	if s.store == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.after(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			s.log.Error("persist guild configs", zap.Error(err))
		}
	})
}

// Flush escribe el snapshot ahora si hay cambios pendientes.
func (s *DJConfigService) Flush(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	dirty, loaded := s.dirty, s.loaded
	s.mu.Unlock()
	if !dirty {
		return nil
	}
	if !loaded {
		// un snapshot parcial pisaría (o borraría) los guilds que no pudimos leer
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("reload before save: %w", err)
		}
	}

	s.mu.Lock()
	snap := maps.Clone(s.configs)
	s.dirty = false
	s.timer = nil
	s.mu.Unlock()

	if err := s.store.Save(ctx, snap); err != nil {
		// la memoria sigue siendo la verdad; el próximo flush reintenta
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.log.Debug("guild configs persisted", zap.Int("guilds", len(snap)))
	return nil
}

// reload reintenta el Load inicial y mezcla: lo persistido reemplaza a los defaults
// materializados, salvo en los guilds que ya se modificaron en memoria.
func (s *DJConfigService) reload(ctx context.Context) error {
	persisted, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for guildID, cfg := range persisted {
		if _, ok := s.touched[guildID]; !ok {
			s.configs[guildID] = cfg.Normalize()
		}
	}
	s.loaded = true
	s.touched = nil
	s.log.Info("guild configs recovered", zap.Int("guilds", len(persisted)))
	return nil
}

// Close cancela el timer pendiente y fuerza el flush final.
func (s *DJConfigService) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Describe arma el texto de /dj show.
func Describe(cfg domain.GuildConfig) string {
	role := "—"
	if cfg.HasRole() {
		role = "<@&" + cfg.RoleID + ">"
	}
	return fmt.Sprintf(
		"**DJ mode**\n• enabled: **%v**\n• role: %s\n• skip_mode: **%s**\n• vote_threshold: **%.0f%%**\n• strict: **%v**",
		cfg.Enabled, role, cfg.SkipMode, cfg.VoteThreshold*100, cfg.StrictMode,
	)
}
