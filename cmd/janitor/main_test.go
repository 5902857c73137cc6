package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

func TestPendingFixes(t *testing.T) {
	ok := domain.DefaultGuildConfig()
	rows := []row{
		{GuildID: "fine", Config: ok},
		{GuildID: "mode", Config: domain.GuildConfig{SkipMode: "everyone", VoteThreshold: 0.5}},
		{GuildID: "threshold", Config: domain.GuildConfig{SkipMode: domain.SkipModeDJ, VoteThreshold: 7}},
		{GuildID: "role", Config: domain.GuildConfig{SkipMode: domain.SkipModeVote, VoteThreshold: 0.5, RoleID: "  R  "}},
	}

	fixes := pendingFixes(rows)
	require.Len(t, fixes, 3)
	assert.Equal(t, "mode", fixes[0].GuildID)
	assert.Equal(t, domain.SkipModeVote, fixes[0].Config.SkipMode)
	assert.Equal(t, 1.0, fixes[1].Config.VoteThreshold)
	assert.Equal(t, "R", fixes[2].Config.RoleID)

	assert.Empty(t, pendingFixes([]row{{GuildID: "fine", Config: ok}}))
}
