package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
)

func proposalEmbed(p domain.Proposal) *discordgo.MessageEmbed {
	title := p.Preview.Title
	if title == "" {
		title = p.Query
	}
	desc := "**" + truncate(title, 200) + "**"
	if p.Preview.URL != "" {
		desc = fmt.Sprintf("[%s](%s)", desc, p.Preview.URL)
	}
	if p.Preview.IsPlaylist {
		desc += fmt.Sprintf("\nPlaylist · %d tracks", p.Preview.TrackCount)
	}
	if p.Prepend {
		desc += "\nRequested to play next"
	}

	e := &discordgo.MessageEmbed{
		Title:       "🎵 Song suggestion #" + p.ID,
		Description: desc,
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Suggested by", Value: "<@" + p.Requester.ID + ">", Inline: true},
		},
	}
	if p.Preview.Source != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Source", Value: p.Preview.Source, Inline: true})
	}
	return e
}

// proposalControls: disabled=true deja los botones grises tras resolver.
func proposalControls(p domain.Proposal, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: service.ActionID(service.ActionApprove, p.GuildID, p.ID),
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: service.ActionID(service.ActionReject, p.GuildID, p.ID),
					Disabled: disabled,
				},
			},
		},
	}
}

func resolvedEmbed(p domain.Proposal, actorTag string) *discordgo.MessageEmbed {
	e := proposalEmbed(p)
	switch p.Status {
	case domain.ProposalApproved:
		e.Color = 0x2ECC71
		e.Footer = &discordgo.MessageEmbedFooter{Text: "✅ Approved by " + actorTag}
	case domain.ProposalRejected:
		e.Color = 0xE74C3C
		e.Footer = &discordgo.MessageEmbedFooter{Text: "❌ Rejected by " + actorTag}
	}
	return e
}

func pendingList(ps []domain.Proposal) string {
	if len(ps) == 0 {
		return "No pending suggestions."
	}
	var b strings.Builder
	b.WriteString("**Pending suggestions**\n")
	for _, p := range ps {
		title := p.Preview.Title
		if title == "" {
			title = p.Query
		}
		fmt.Fprintf(&b, "`#%s` %s · <@%s> · <t:%d:R>\n", p.ID, truncate(title, 80), p.Requester.ID, p.CreatedAt.Unix())
	}
	return b.String()
}

// Messenger implementa service.ProposalMessenger editando el mensaje original.
type Messenger struct {
	s *discordgo.Session
}

func NewMessenger(s *discordgo.Session) *Messenger { return &Messenger{s: s} }

func (m *Messenger) ShowResolved(_ context.Context, p domain.Proposal, actorTag string) error {
	embeds := []*discordgo.MessageEmbed{resolvedEmbed(p, actorTag)}
	comps := proposalControls(p, true)
	_, err := m.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    p.ChannelID,
		ID:         p.MessageID,
		Embeds:     &embeds,
		Components: &comps,
	})
	return err
}
