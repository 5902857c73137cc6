package discord

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
)

type Router struct {
	s       *discordgo.Session
	guildID string // vacío = comandos globales
	log     *zap.Logger

	configs   *service.DJConfigService
	player    *service.PlayerService
	proposals *service.ProposalService
	votes     *service.SkipVoteService
	voice     voiceForwarder

	clickLimiter *userLimiter
}

// NewRouter: componentRate = clicks por segundo permitidos por usuario.
func NewRouter(s *discordgo.Session, guildID string, deps Deps, componentRate float64, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		s:            s,
		guildID:      guildID,
		log:          log,
		configs:      deps.Configs,
		player:       deps.Player,
		proposals:    deps.Proposals,
		votes:        deps.Votes,
		voice:        deps.Voice,
		clickLimiter: newUserLimiter(componentRate, 2),
	}
}

// Register pisa los comandos del guild (o globales) con los actuales.
func (r *Router) Register() error {
	_, err := r.s.ApplicationCommandBulkOverwrite(r.s.State.User.ID, r.guildID, Commands)
	return err
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if r.guildID != "" && ic.GuildID != "" && ic.GuildID != r.guildID {
			return
		}
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})
	r.s.AddHandler(r.onVoiceStateUpdate)
	r.s.AddHandler(r.onVoiceServerUpdate)
}
