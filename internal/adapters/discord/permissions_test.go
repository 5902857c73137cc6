package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestActorFromMember(t *testing.T) {
	m := &discordgo.Member{
		User:        &discordgo.User{ID: "u1", Username: "alice", Discriminator: "0"},
		Roles:       []string{"dj"},
		Permissions: discordgo.PermissionManageGuild,
	}

	a := actorFromMember(m, "owner")
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "alice", a.Tag)
	assert.True(t, a.HasRole("dj"))
	assert.True(t, a.ManageGuild)
	assert.False(t, a.Admin)
	assert.False(t, a.Owner)

	m.Roles[0] = "changed"
	assert.True(t, a.HasRole("dj"), "roles are copied")
}

func TestActorFromMember_OwnerAndAdmin(t *testing.T) {
	m := &discordgo.Member{
		User:        &discordgo.User{ID: "u9", Username: "old", Discriminator: "1234"},
		Permissions: discordgo.PermissionAdministrator,
	}
	a := actorFromMember(m, "u9")
	assert.True(t, a.Owner)
	assert.True(t, a.Admin)
	assert.Equal(t, "old#1234", a.Tag)

	assert.Equal(t, "", actorFromMember(nil, "u9").UserID)
}
