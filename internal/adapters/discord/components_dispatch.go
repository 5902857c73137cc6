package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/infra/logging"
)

func (r *Router) handleMessageComponent(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	if !service.IsProposalAction(data.CustomID) || ic.Member == nil || ic.Member.User == nil {
		return
	}

	log := r.traceLogger(ic, data.CustomID)
	defer step(log, "component")()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in component", zap.Any("panic", rec), zap.Stack("stack"))
			r.replyEphemeral(ic, msgUnexpected)
		}
	}()

	if !r.clickLimiter.Allow(ic.Member.User.ID) {
		r.respondEphemeral(ic, "⏳ Slow down a second…")
		return
	}

	_ = r.deferEphemeral(ic)
	ctx, cancel := context.WithTimeout(context.Background(), componentTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, log)

	res, err := r.proposals.HandleAction(ctx, r.actor(ic), ic.GuildID, data.CustomID)
	r.replyEphemeral(ic, proposalReply(ctx, res, err))
}

func proposalReply(ctx context.Context, res service.ProposalResolution, err error) string {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return "🔒 Only DJs can approve or reject suggestions."
	case errors.Is(err, service.ErrInvalidAction):
		return "⚠️ That button isn't valid here."
	case err != nil:
		return playError(ctx, res.Proposal.Query, err)
	}

	switch res.Outcome {
	case service.OutcomeApproved:
		return "✅ Approved. " + enqueueMessage(res.Enqueued)
	case service.OutcomeRejected:
		return "❌ Suggestion rejected."
	}
	return "ℹ️ That suggestion was already handled."
}
