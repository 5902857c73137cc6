package domain

import "slices"

// Actor es el miembro que dispara una interacción, ya resuelto por el adapter de Discord.
type Actor struct {
	UserID      string
	Tag         string
	RoleIDs     []string
	Owner       bool
	Admin       bool
	ManageGuild bool
}

func (a Actor) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(a.RoleIDs, roleID)
}

// Privileged = administrador o gestión del servidor.
func (a Actor) Privileged() bool { return a.Admin || a.ManageGuild }

func (a Actor) Requester() Requester { return Requester{ID: a.UserID, Tag: a.Tag} }
