package discord

import "github.com/bwmarrin/discordgo"

var (
	minVolume    = 0.0
	minThreshold = 0.1
	minSeconds   = 0.0
)

var loopChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "none", Value: "none"},
	{Name: "track", Value: "track"},
	{Name: "queue", Value: "queue"},
}

var skipModeChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "dj", Value: "dj"},
	{Name: "vote", Value: "vote"},
	{Name: "hybrid", Value: "hybrid"},
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Play a song or playlist (URL or search)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "query", Description: "URL or search terms", Required: true},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "next", Description: "Put it at the front of the queue"},
		},
	},
	{Name: "pause", Description: "Pause playback"},
	{Name: "resume", Description: "Resume playback"},
	{Name: "skip", Description: "Skip the current track (or vote to skip)"},
	{Name: "stop", Description: "Stop, clear the queue and leave voice"},
	{
		Name:        "seek",
		Description: "Jump to a position in the current track",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "seconds", Description: "Position in seconds", Required: true, MinValue: &minSeconds},
		},
	},
	{Name: "replay", Description: "Restart the current track"},
	{
		Name:        "loop",
		Description: "Set or cycle the loop mode",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "mode", Description: "none, track or queue", Choices: loopChoices},
		},
	},
	{Name: "shuffle", Description: "Shuffle the queue"},
	{Name: "clear", Description: "Clear the queue"},
	{
		Name:        "volume",
		Description: "Show or set the volume",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "value", Description: "0-100", MinValue: &minVolume, MaxValue: 100},
		},
	},
	{Name: "nowplaying", Description: "Show the current track"},
	{Name: "queue", Description: "Show the queue"},
	{
		Name:        "dj",
		Description: "DJ mode settings",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show the DJ settings"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "enable", Description: "Enable DJ mode"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "disable", Description: "Disable DJ mode"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "role",
				Description: "Set the DJ role (omit to clear it)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "DJ role"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "strict",
				Description: "Only the DJ role (or the owner) may change DJ settings",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "value", Description: "on/off", Required: true},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skipmode",
				Description: "How /skip works in DJ mode",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "mode", Description: "dj, vote or hybrid", Required: true, Choices: skipModeChoices},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "threshold",
				Description: "Share of listeners needed to vote-skip",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionNumber, Name: "value", Description: "0.1 - 1.0", Required: true, MinValue: &minThreshold, MaxValue: 1},
				},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "proposals", Description: "List pending suggestions"},
		},
	},
}
