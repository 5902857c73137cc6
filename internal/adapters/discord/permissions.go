package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

// actorFromMember traduce el miembro de la interacción.
// Permissions ya viene calculado por Discord para el canal.
func actorFromMember(m *discordgo.Member, ownerID string) domain.Actor {
	if m == nil || m.User == nil {
		return domain.Actor{}
	}
	return domain.Actor{
		UserID:      m.User.ID,
		Tag:         userTag(m.User),
		RoleIDs:     slices.Clone(m.Roles),
		Owner:       ownerID != "" && m.User.ID == ownerID,
		Admin:       m.Permissions&discordgo.PermissionAdministrator != 0,
		ManageGuild: m.Permissions&discordgo.PermissionManageGuild != 0,
	}
}

func userTag(u *discordgo.User) string {
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

func (r *Router) actor(ic *discordgo.InteractionCreate) domain.Actor {
	return actorFromMember(ic.Member, r.guildOwner(ic.GuildID))
}

func (r *Router) guildOwner(guildID string) string {
	if g, err := r.s.State.Guild(guildID); err == nil && g != nil {
		return g.OwnerID
	}
	g, err := r.s.Guild(guildID)
	if err != nil {
		return ""
	}
	return g.OwnerID
}
