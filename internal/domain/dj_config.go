package domain

import (
	"errors"
	"math"
	"strings"
)

// SkipMode define cómo se resuelve un /skip cuando el modo DJ está activo.
type SkipMode string

const (
	SkipModeDJ     SkipMode = "dj"
	SkipModeVote   SkipMode = "vote"
	SkipModeHybrid SkipMode = "hybrid"
)

const (
	DefaultVoteThreshold = 0.5
	MinVoteThreshold     = 0.1
	MaxVoteThreshold     = 1.0
)

// ErrCorruptSnapshot: el registro persistido existe pero no se puede decodificar.
var ErrCorruptSnapshot = errors.New("corrupt guild config snapshot")

// ParseSkipMode acepta solo los tres valores conocidos (case-insensitive).
func ParseSkipMode(raw string) (SkipMode, bool) {
	switch SkipMode(strings.ToLower(strings.TrimSpace(raw))) {
	case SkipModeDJ:
		return SkipModeDJ, true
	case SkipModeVote:
		return SkipModeVote, true
	case SkipModeHybrid:
		return SkipModeHybrid, true
	}
	return "", false
}

// GuildConfig es la configuración DJ de un guild.
type GuildConfig struct {
	Enabled       bool     `json:"enabled"`
	RoleID        string   `json:"roleId,omitempty"` // vacío = sin rol
	SkipMode      SkipMode `json:"skipMode"`
	VoteThreshold float64  `json:"voteThreshold"`
	StrictMode    bool     `json:"strictMode"`
}

// DefaultGuildConfig es lo que ve un guild que nunca configuró nada.
func DefaultGuildConfig() GuildConfig {
	return GuildConfig{
		Enabled:       false,
		SkipMode:      SkipModeVote,
		VoteThreshold: DefaultVoteThreshold,
	}
}

// HasRole indica si hay un rol DJ designado.
func (c GuildConfig) HasRole() bool { return c.RoleID != "" }

// NormalizeVoteThreshold aplica la regla de clamp: no finito -> default, luego [0.1, 1.0].
func NormalizeVoteThreshold(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultVoteThreshold
	}
	if v < MinVoteThreshold {
		return MinVoteThreshold
	}
	if v > MaxVoteThreshold {
		return MaxVoteThreshold
	}
	return v
}

// Normalize repara un registro leído de almacenamiento.
func (c GuildConfig) Normalize() GuildConfig {
	if m, ok := ParseSkipMode(string(c.SkipMode)); ok {
		c.SkipMode = m
	} else {
		c.SkipMode = SkipModeVote
	}
	// 0 = campo ausente en el registro
	if c.VoteThreshold == 0 {
		c.VoteThreshold = DefaultVoteThreshold
	}
	c.VoteThreshold = NormalizeVoteThreshold(c.VoteThreshold)
	c.RoleID = strings.TrimSpace(c.RoleID)
	return c
}

// GuildConfigPatch: sólo se aplican los campos no-nil.
type GuildConfigPatch struct {
	Enabled       *bool
	RoleID        *string // "" limpia el rol
	SkipMode      *string
	VoteThreshold *float64
	StrictMode    *bool
}

// Apply mezcla el patch sobre c. Un skip mode desconocido se ignora en silencio.
func (p GuildConfigPatch) Apply(c GuildConfig) GuildConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.RoleID != nil {
		c.RoleID = strings.TrimSpace(*p.RoleID)
	}
	if p.SkipMode != nil {
		if m, ok := ParseSkipMode(*p.SkipMode); ok {
			c.SkipMode = m
		}
	}
	if p.VoteThreshold != nil {
		c.VoteThreshold = NormalizeVoteThreshold(*p.VoteThreshold)
	}
	if p.StrictMode != nil {
		c.StrictMode = *p.StrictMode
	}
	return c
}

// Empty indica que el patch no toca ningún campo.
func (p GuildConfigPatch) Empty() bool {
	return p.Enabled == nil && p.RoleID == nil && p.SkipMode == nil && p.VoteThreshold == nil && p.StrictMode == nil
}
