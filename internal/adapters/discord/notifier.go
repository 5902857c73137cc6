package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Notifier implementa service.Notifier con mensajes simples al canal.
type Notifier struct {
	s *discordgo.Session
}

func NewNotifier(s *discordgo.Session) *Notifier { return &Notifier{s: s} }

func (n *Notifier) Notify(_ context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, err := n.s.ChannelMessageSend(channelID, message)
	return err
}
