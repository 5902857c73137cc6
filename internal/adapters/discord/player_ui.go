package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const embedColor = 0x1DB954

func trackLine(t *domain.Track) string {
	label := truncate(t.Label(), 80)
	if t.Info.URI != "" {
		label = fmt.Sprintf("[%s](%s)", label, t.Info.URI)
	}
	length := "live"
	if !t.Info.IsStream {
		length = fmtDuration(t.Info.Length)
	}
	line := fmt.Sprintf("%s `%s`", label, length)
	if t.Requester.ID != "" {
		line += fmt.Sprintf(" · <@%s>", t.Requester.ID)
	}
	return line
}

func enqueueMessage(res service.EnqueueResult) string {
	title := "**" + truncate(res.Track.Label(), 80) + "**"
	switch {
	case res.IsPlaylist && res.StartedImmediately:
		return fmt.Sprintf("▶️ Playing %s (+%d tracks from the playlist).", title, res.Added-1)
	case res.IsPlaylist:
		return fmt.Sprintf("➕ Queued %d tracks, starting with %s.", res.Added, title)
	case res.StartedImmediately:
		return "▶️ Playing " + title + "."
	}
	return "➕ Queued " + title + "."
}

func nowPlayingEmbed(snap service.SessionSnapshot) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: "Now playing", Color: embedColor}
	if snap.Current == nil {
		e.Description = "Nothing is playing."
		return e
	}
	e.Description = trackLine(snap.Current)
	state := "▶️ playing"
	if snap.Paused {
		state = "⏸️ paused"
	}
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "State", Value: state, Inline: true},
		{Name: "Volume", Value: fmt.Sprintf("%d%%", snap.Volume), Inline: true},
		{Name: "Loop", Value: string(snap.Loop), Inline: true},
	}
	if snap.Current.FallbackOf != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Alternative for an unavailable track"}
	}
	return e
}

// queueEmbed muestra los primeros limit tracks y el total.
func queueEmbed(snap service.SessionSnapshot, limit int) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: "Queue", Color: embedColor}
	var b strings.Builder
	if snap.Current != nil {
		b.WriteString("**Now:** " + trackLine(snap.Current) + "\n\n")
	}
	if len(snap.Queue) == 0 {
		b.WriteString("The queue is empty.")
	}
	for i, t := range snap.Queue {
		if i == limit {
			fmt.Fprintf(&b, "…and %d more", len(snap.Queue)-limit)
			break
		}
		fmt.Fprintf(&b, "`%02d` %s\n", i+1, trackLine(t))
	}
	e.Description = b.String()
	e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d in queue · loop: %s", len(snap.Queue), snap.Loop)}
	return e
}
