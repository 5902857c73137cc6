package service

import "github.com/jose-valero/dj-session-bot/internal/domain"

// CanManageDJSettings decide quién puede tocar la config DJ.
// En strict con rol: sólo el rol o el owner. Si no: admins/gestión o el owner.
func CanManageDJSettings(actor domain.Actor, cfg domain.GuildConfig) bool {
	if cfg.StrictMode && cfg.HasRole() {
		return actor.HasRole(cfg.RoleID) || actor.Owner
	}
	return actor.Privileged() || actor.Owner
}

// CanControlPlayback decide quién usa los controles directamente.
// Con el modo DJ apagado el control es abierto; si no, rol DJ, owner o admins/gestión.
func CanControlPlayback(actor domain.Actor, cfg domain.GuildConfig) bool {
	if !cfg.Enabled {
		return true
	}
	return actor.HasRole(cfg.RoleID) || actor.Owner || actor.Privileged()
}
