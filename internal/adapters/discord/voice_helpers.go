package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Voice implementa service.VoiceGateway: sólo el op 4, el audio lo manda el nodo.
type Voice struct {
	s *discordgo.Session
}

func NewVoice(s *discordgo.Session) *Voice { return &Voice{s: s} }

func (v *Voice) JoinVoice(guildID, channelID string) error {
	return v.s.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

// LeaveVoice: canal vacío = desconectar.
func (v *Voice) LeaveVoice(guildID string) error {
	return v.s.ChannelVoiceJoinManual(guildID, "", false, false)
}

func (r *Router) userVoiceChannel(guildID, userID string) string {
	vs, err := r.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// listenerCount cuenta humanos en el canal, sin el bot.
func (r *Router) listenerCount(guildID, channelID string) int {
	g, err := r.s.State.Guild(guildID)
	if err != nil || g == nil {
		return 0
	}
	r.s.State.RLock()
	states := make([]*discordgo.VoiceState, len(g.VoiceStates))
	copy(states, g.VoiceStates)
	r.s.State.RUnlock()

	return countListeners(states, channelID, r.botID(), func(userID string) bool {
		m, err := r.s.State.Member(guildID, userID)
		return err == nil && m != nil && m.User != nil && m.User.Bot
	})
}

func countListeners(states []*discordgo.VoiceState, channelID, botID string, isBot func(userID string) bool) int {
	n := 0
	for _, vs := range states {
		if vs == nil || vs.ChannelID != channelID || vs.UserID == botID {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil {
			if vs.Member.User.Bot {
				continue
			}
		} else if isBot != nil && isBot(vs.UserID) {
			continue
		}
		n++
	}
	return n
}

func (r *Router) botID() string {
	if r.s.State == nil || r.s.State.User == nil {
		return ""
	}
	return r.s.State.User.ID
}

// onVoiceStateUpdate: sólo interesa el estado del propio bot, para el nodo de audio.
func (r *Router) onVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if r.guildID != "" && vs.GuildID != r.guildID {
		return
	}
	if vs.UserID != r.botID() || r.voice == nil {
		return
	}
	r.voice.OnVoiceState(context.Background(), vs.GuildID, vs.ChannelID, vs.SessionID)
}

func (r *Router) onVoiceServerUpdate(_ *discordgo.Session, vs *discordgo.VoiceServerUpdate) {
	if r.guildID != "" && vs.GuildID != r.guildID {
		return
	}
	if r.voice == nil {
		return
	}
	r.voice.OnVoiceServer(context.Background(), vs.GuildID, vs.Token, vs.Endpoint)
}
