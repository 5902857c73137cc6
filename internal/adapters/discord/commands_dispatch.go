// lógica de InteractionApplicationCommand: validar la interacción y despachar a los servicios
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/adapters/lavalink"
	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
	"github.com/jose-valero/dj-session-bot/internal/infra/logging"
)

const (
	msgNothingPlaying = "Nothing is playing."
	msgNoPermission   = "🔒 Only DJs can do that. Use `/play` to suggest a song."
	msgUnexpected     = "❌ Something went wrong processing the command."
)

func (r *Router) handleSlashCommand(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	cmd := ic.ApplicationCommandData()
	if ic.Member == nil || ic.Member.User == nil {
		r.respondEphemeral(ic, "Commands only work inside a server.")
		return
	}

	log := r.traceLogger(ic, "/"+cmd.Name)
	defer step(log, "slash")()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in slash command", zap.Any("panic", rec), zap.Stack("stack"))
			r.replyEphemeral(ic, msgUnexpected)
		}
	}()

	_ = r.deferEphemeral(ic)
	ctx, cancel := context.WithTimeout(context.Background(), slashTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, log)

	actor := r.actor(ic)
	cfg := r.configs.Get(ic.GuildID)
	guildID := ic.GuildID

	switch cmd.Name {
	case "play":
		r.replyEphemeral(ic, r.cmdPlay(ctx, ic, actor, cfg))

	case "skip":
		r.replyEphemeral(ic, r.cmdSkip(ctx, ic, actor, cfg))

	case "nowplaying":
		snap, ok := r.player.Snapshot(guildID)
		if !ok || snap.Current == nil {
			r.replyEphemeral(ic, msgNothingPlaying)
			return
		}
		r.replyEphemeral(ic, "", nowPlayingEmbed(snap))

	case "queue":
		snap, ok := r.player.Snapshot(guildID)
		if !ok {
			r.replyEphemeral(ic, msgNothingPlaying)
			return
		}
		r.replyEphemeral(ic, "", queueEmbed(snap, queuePageSize))

	case "volume":
		v, set := optInt(ic, "value")
		if !set {
			cur, ok := r.player.GetVolume(guildID)
			if !ok {
				r.replyEphemeral(ic, msgNothingPlaying)
				return
			}
			r.replyEphemeral(ic, fmt.Sprintf("🔊 Volume: **%d%%**", cur))
			return
		}
		if !service.CanControlPlayback(actor, cfg) {
			r.replyEphemeral(ic, msgNoPermission)
			return
		}
		got, ok, err := r.player.SetVolume(ctx, guildID, v)
		r.replyEphemeral(ic, r.controlReply(ctx, ok, err, fmt.Sprintf("🔊 Volume set to **%d%%**.", got), msgNothingPlaying))

	case "dj":
		r.replyEphemeral(ic, r.cmdDJ(ctx, ic, actor))

	default:
		if !service.CanControlPlayback(actor, cfg) {
			log.Info("playback control denied")
			r.replyEphemeral(ic, msgNoPermission)
			return
		}
		r.replyEphemeral(ic, r.cmdControl(ctx, ic, cmd.Name))
	}
}

// cmdControl: comandos que sólo usan los DJs (o todos con el modo apagado).
func (r *Router) cmdControl(ctx context.Context, ic *discordgo.InteractionCreate, name string) string {
	guildID := ic.GuildID
	switch name {
	case "pause":
		ok, err := r.player.Pause(ctx, guildID)
		return r.controlReply(ctx, ok, err, "⏸️ Paused.", "Already paused, or nothing is playing.")
	case "resume":
		ok, err := r.player.Resume(ctx, guildID)
		return r.controlReply(ctx, ok, err, "▶️ Resumed.", "Not paused, or nothing is playing.")
	case "stop":
		if !r.player.Stop(ctx, guildID) {
			return msgNothingPlaying
		}
		return "⏹️ Stopped and left the voice channel."
	case "seek":
		secs, _ := optInt(ic, "seconds")
		ok, err := r.player.SeekTo(ctx, guildID, time.Duration(secs)*time.Second)
		return r.controlReply(ctx, ok, err, "⏩ Jumped to "+fmtDuration(time.Duration(secs)*time.Second)+".", "Nothing seekable is playing.")
	case "replay":
		ok, err := r.player.SeekToStart(ctx, guildID)
		return r.controlReply(ctx, ok, err, "⏮️ Restarted the track.", "Nothing seekable is playing.")
	case "loop":
		mode, _ := optStr(ic, "mode")
		got, ok := r.player.ToggleLoop(guildID, mode)
		if !ok {
			return msgNothingPlaying
		}
		return "🔁 Loop: **" + string(got) + "**"
	case "shuffle":
		if !r.player.Shuffle(guildID) {
			return "The queue is empty."
		}
		return "🔀 Shuffled."
	case "clear":
		if !r.player.ClearQueue(guildID) {
			return "The queue is already empty."
		}
		return "🧹 Queue cleared."
	}
	return "Unknown command."
}

func (r *Router) controlReply(ctx context.Context, ok bool, err error, done, noop string) string {
	if err != nil {
		logging.FromContext(ctx, r.log).Warn("audio node call failed", zap.Error(err))
		return "⚠️ The audio node didn't respond, try again."
	}
	if !ok {
		return noop
	}
	return done
}

// ---------- /play ----------

func (r *Router) cmdPlay(ctx context.Context, ic *discordgo.InteractionCreate, actor domain.Actor, cfg domain.GuildConfig) string {
	query, _ := optStr(ic, "query")
	query = strings.TrimSpace(query)
	if query == "" {
		return "Give me a link or something to search for."
	}
	prepend, _ := optBool(ic, "next")

	vc := r.userVoiceChannel(ic.GuildID, actor.UserID)
	if vc == "" {
		return "🎧 Join a voice channel first."
	}
	if snap, ok := r.player.Snapshot(ic.GuildID); ok && snap.VoiceChannelID != vc {
		return fmt.Sprintf("🎧 I'm already playing in <#%s>.", snap.VoiceChannelID)
	}

	if !service.CanControlPlayback(actor, cfg) {
		return r.submitProposal(ctx, ic, actor, service.SubmitRequest{
			Query:          query,
			VoiceChannelID: vc,
			TextChannelID:  ic.ChannelID,
			Prepend:        prepend,
		})
	}

	res, err := r.player.Enqueue(ctx, service.EnqueueRequest{
		GuildID:        ic.GuildID,
		VoiceChannelID: vc,
		TextChannelID:  ic.ChannelID,
		Query:          query,
		Requester:      actor.Requester(),
		Prepend:        prepend,
	})
	if err != nil {
		return playError(ctx, query, err)
	}
	return enqueueMessage(res)
}

func (r *Router) submitProposal(ctx context.Context, ic *discordgo.InteractionCreate, actor domain.Actor, req service.SubmitRequest) string {
	log := logging.FromContext(ctx, r.log)
	p, err := r.proposals.Submit(ctx, actor, ic.GuildID, req)
	if err != nil {
		return playError(ctx, req.Query, err)
	}

	msg, err := r.s.ChannelMessageSendComplex(ic.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{proposalEmbed(p)},
		Components: proposalControls(p, false),
	})
	if err != nil {
		log.Warn("post proposal", zap.String("proposal_id", p.ID), zap.Error(err))
		return fmt.Sprintf("📨 Suggestion #%s saved, but I couldn't post it here. A DJ can see it with `/dj proposals`.", p.ID)
	}
	r.proposals.AttachMessage(ic.GuildID, p.ID, msg.ID, msg.ChannelID)
	return "📨 DJ mode is on: your suggestion was sent to the DJs."
}

func playError(ctx context.Context, query string, err error) string {
	if errors.Is(err, service.ErrNoResults) {
		return "🔍 No results for **" + truncate(query, 100) + "**."
	}
	var le *lavalink.LoadError
	if errors.As(err, &le) {
		return "⚠️ Couldn't load that: " + le.Message
	}
	logging.FromContext(ctx, nil).Error("play failed", zap.String("query", query), zap.Error(err))
	return "⚠️ Couldn't play that right now."
}

// ---------- /skip ----------

func (r *Router) cmdSkip(ctx context.Context, ic *discordgo.InteractionCreate, actor domain.Actor, cfg domain.GuildConfig) string {
	guildID := ic.GuildID
	snap, ok := r.player.Snapshot(guildID)
	if !ok {
		return msgNothingPlaying
	}
	key, playing := r.player.CurrentTrackKey(guildID)
	if !playing {
		// nada sonando: skip arranca la cola si hay algo
		if !service.CanControlPlayback(actor, cfg) {
			return msgNoPermission
		}
		done, err := r.player.Skip(ctx, guildID)
		return r.controlReply(ctx, done, err, "⏭️ Skipped.", msgNothingPlaying)
	}

	if cfg.Enabled && !service.CanControlPlayback(actor, cfg) && r.userVoiceChannel(guildID, actor.UserID) != snap.VoiceChannelID {
		return fmt.Sprintf("🎧 You need to be in <#%s> to vote.", snap.VoiceChannelID)
	}

	res := r.votes.Vote(actor, cfg, guildID, key, r.listenerCount(guildID, snap.VoiceChannelID))
	switch res.Decision {
	case service.SkipDenied:
		return "🔒 Only DJs can skip in this server."
	case service.SkipVoteDuplicate:
		return fmt.Sprintf("You already voted (%d/%d).", res.Votes, res.Required)
	case service.SkipVoteRegistered:
		r.notifyVote(ctx, snap.TextChannelID, actor, res)
		return fmt.Sprintf("🗳️ Vote registered (%d/%d).", res.Votes, res.Required)
	}

	done, err := r.player.Skip(ctx, guildID)
	return r.controlReply(ctx, done, err, "⏭️ Skipped.", msgNothingPlaying)
}

// notifyVote avisa en el canal de la sesión; best-effort.
func (r *Router) notifyVote(ctx context.Context, channelID string, actor domain.Actor, res service.SkipVoteResult) {
	if channelID == "" {
		return
	}
	if _, err := r.s.ChannelMessageSend(channelID, fmt.Sprintf("🗳️ <@%s> voted to skip (%d/%d).", actor.UserID, res.Votes, res.Required)); err != nil {
		logging.FromContext(ctx, r.log).Debug("vote notice", zap.Error(err))
	}
}

// ---------- /dj ----------

func (r *Router) cmdDJ(ctx context.Context, ic *discordgo.InteractionCreate, actor domain.Actor) string {
	guildID := ic.GuildID
	sub, _ := subcmdName(ic)
	cfg := r.configs.Get(guildID)

	switch sub {
	case "show":
		return service.Describe(cfg)
	case "proposals":
		if !service.CanControlPlayback(actor, cfg) {
			return msgNoPermission
		}
		return pendingList(r.proposals.Pending(guildID))
	}

	if !service.CanManageDJSettings(actor, cfg) {
		logging.FromContext(ctx, r.log).Info("dj settings denied", zap.String("sub", sub))
		return "🔒 You can't change the DJ settings."
	}

	var patch domain.GuildConfigPatch
	switch sub {
	case "enable":
		on := true
		patch.Enabled = &on
	case "disable":
		return "✅ DJ mode disabled.\n" + service.Describe(r.configs.Disable(guildID))
	case "role":
		role, _ := optRole(ic, "role")
		return "✅ DJ role updated.\n" + service.Describe(r.configs.SetRole(guildID, role))
	case "strict":
		v, _ := optBool(ic, "value")
		return "✅ Strict mode updated.\n" + service.Describe(r.configs.SetStrict(guildID, v))
	case "skipmode":
		mode, _ := optStr(ic, "mode")
		if _, ok := domain.ParseSkipMode(mode); !ok {
			return "Unknown skip mode. Use dj, vote or hybrid."
		}
		patch.SkipMode = &mode
	case "threshold":
		v, _ := optNumber(ic, "value")
		patch.VoteThreshold = &v
	default:
		return "Use `/dj show`, `/dj enable`, `/dj disable`, `/dj role`, `/dj strict`, `/dj skipmode`, `/dj threshold` or `/dj proposals`."
	}

	next := r.configs.Set(guildID, patch)
	logging.FromContext(ctx, r.log).Info("dj settings updated", zap.String("sub", sub))
	return "✅ DJ settings updated.\n" + service.Describe(next)
}
