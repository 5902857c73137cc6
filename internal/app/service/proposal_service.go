package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

var (
	ErrPermissionDenied = errors.New("you are not allowed to do that")
	ErrInvalidAction    = errors.New("invalid proposal action")
)

type ProposalAction string

const (
	ActionApprove ProposalAction = "approve"
	ActionReject  ProposalAction = "reject"

	actionPrefix = "dj"
)

// ActionID arma el CustomID de los botones: dj:<accion>:<guild>:<propuesta>.
func ActionID(action ProposalAction, guildID, proposalID string) string {
	return strings.Join([]string{actionPrefix, string(action), guildID, proposalID}, ":")
}

// IsProposalAction indica si el CustomID es de este flujo (para el router de componentes).
func IsProposalAction(customID string) bool {
	return strings.HasPrefix(customID, actionPrefix+":")
}

func ParseActionID(customID string) (ProposalAction, string, string, error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 4 || parts[0] != actionPrefix {
		return "", "", "", ErrInvalidAction
	}
	action := ProposalAction(parts[1])
	if action != ActionApprove && action != ActionReject {
		return "", "", "", ErrInvalidAction
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", "", ErrInvalidAction
	}
	return action, parts[2], parts[3], nil
}

// Lo implementa PlayerService.
type TrackEnqueuer interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error)
	Preview(ctx context.Context, query string) (domain.ProposalPreview, error)
}

type ConfigReader interface {
	Get(guildID string) domain.GuildConfig
}

type ProposalOutcome int

const (
	OutcomeApproved ProposalOutcome = iota
	OutcomeRejected
	OutcomeAlreadyHandled
)

type ProposalResolution struct {
	Outcome  ProposalOutcome
	Proposal domain.Proposal
	Enqueued EnqueueResult
}

type SubmitRequest struct {
	Query          string
	VoiceChannelID string
	TextChannelID  string
	Prepend        bool
}

// ProposalService orquesta sugerencias: crear, aprobar, rechazar.
type ProposalService struct {
	configs   ConfigReader
	registry  *ProposalRegistry
	player    TrackEnqueuer
	messenger ProposalMessenger
	log       *zap.Logger
}

func NewProposalService(configs ConfigReader, registry *ProposalRegistry, player TrackEnqueuer, messenger ProposalMessenger, log *zap.Logger) *ProposalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProposalService{configs: configs, registry: registry, player: player, messenger: messenger, log: log}
}

// Submit resuelve un preview de la query y deja la propuesta pendiente.
func (s *ProposalService) Submit(ctx context.Context, actor domain.Actor, guildID string, req SubmitRequest) (domain.Proposal, error) {
	preview, err := s.player.Preview(ctx, req.Query)
	if err != nil {
		return domain.Proposal{}, err
	}
	p := s.registry.Create(guildID, domain.ProposalPayload{
		Query:          req.Query,
		Preview:        preview,
		Requester:      actor.Requester(),
		VoiceChannelID: req.VoiceChannelID,
		TextChannelID:  req.TextChannelID,
		Prepend:        req.Prepend,
	})
	s.log.Info("proposal created",
		zap.String("guild_id", guildID),
		zap.String("proposal_id", p.ID),
		zap.String("user_id", actor.UserID),
		zap.String("query", req.Query),
	)
	return p, nil
}

func (s *ProposalService) AttachMessage(guildID, proposalID, messageID, channelID string) {
	s.registry.AttachMessageRef(guildID, proposalID, messageID, channelID)
}

func (s *ProposalService) Pending(guildID string) []domain.Proposal {
	return s.registry.List(guildID)
}

// HandleAction procesa un click de Approve/Reject.
// El guild del CustomID tiene que coincidir con el de la interacción.
func (s *ProposalService) HandleAction(ctx context.Context, actor domain.Actor, guildID, customID string) (ProposalResolution, error) {
	action, idGuild, proposalID, err := ParseActionID(customID)
	if err != nil {
		return ProposalResolution{}, err
	}
	if idGuild != guildID {
		s.log.Info("proposal action for another guild",
			zap.String("guild_id", guildID), zap.String("target_guild_id", idGuild), zap.String("user_id", actor.UserID))
		return ProposalResolution{}, ErrInvalidAction
	}
	if action == ActionApprove {
		return s.Approve(ctx, actor, guildID, proposalID)
	}
	return s.Reject(ctx, actor, guildID, proposalID)
}

// Approve encola el pedido y recién después resuelve la propuesta.
// Si el enqueue falla la propuesta sigue pendiente y se puede reintentar.
func (s *ProposalService) Approve(ctx context.Context, actor domain.Actor, guildID, proposalID string) (ProposalResolution, error) {
	if err := s.authorize(actor, guildID, proposalID, ActionApprove); err != nil {
		return ProposalResolution{}, err
	}

	p, ok := s.registry.Claim(guildID, proposalID)
	if !ok {
		return ProposalResolution{Outcome: OutcomeAlreadyHandled}, nil
	}

	res, err := s.player.Enqueue(ctx, EnqueueRequest{
		GuildID:        guildID,
		VoiceChannelID: p.VoiceChannelID,
		TextChannelID:  p.TextChannelID,
		Query:          p.Query,
		Requester:      p.Requester,
		Prepend:        p.Prepend,
	})
	if err != nil {
		s.registry.Release(guildID, proposalID)
		s.log.Warn("approve: enqueue failed",
			zap.String("guild_id", guildID), zap.String("proposal_id", proposalID), zap.Error(err))
		return ProposalResolution{}, fmt.Errorf("enqueue proposal %s: %w", proposalID, err)
	}

	resolved, ok := s.registry.Resolve(guildID, proposalID, domain.ProposalApproved)
	if !ok {
		// un teardown limpió el registro mientras encolábamos
		return ProposalResolution{Outcome: OutcomeAlreadyHandled, Enqueued: res}, nil
	}
	s.log.Info("proposal approved",
		zap.String("guild_id", guildID), zap.String("proposal_id", proposalID), zap.String("user_id", actor.UserID))
	s.showResolved(ctx, resolved, actor.Tag)
	return ProposalResolution{Outcome: OutcomeApproved, Proposal: resolved, Enqueued: res}, nil
}

func (s *ProposalService) Reject(ctx context.Context, actor domain.Actor, guildID, proposalID string) (ProposalResolution, error) {
	if err := s.authorize(actor, guildID, proposalID, ActionReject); err != nil {
		return ProposalResolution{}, err
	}
	if _, ok := s.registry.Claim(guildID, proposalID); !ok {
		return ProposalResolution{Outcome: OutcomeAlreadyHandled}, nil
	}
	resolved, ok := s.registry.Resolve(guildID, proposalID, domain.ProposalRejected)
	if !ok {
		return ProposalResolution{Outcome: OutcomeAlreadyHandled}, nil
	}
	s.log.Info("proposal rejected",
		zap.String("guild_id", guildID), zap.String("proposal_id", proposalID), zap.String("user_id", actor.UserID))
	s.showResolved(ctx, resolved, actor.Tag)
	return ProposalResolution{Outcome: OutcomeRejected, Proposal: resolved}, nil
}

func (s *ProposalService) authorize(actor domain.Actor, guildID, proposalID string, action ProposalAction) error {
	if CanControlPlayback(actor, s.configs.Get(guildID)) {
		return nil
	}
	s.log.Info("proposal action denied",
		zap.String("guild_id", guildID),
		zap.String("proposal_id", proposalID),
		zap.String("user_id", actor.UserID),
		zap.String("action", string(action)),
	)
	return ErrPermissionDenied
}

// showResolved es best-effort: el registro es la verdad, el mensaje un reflejo.
func (s *ProposalService) showResolved(ctx context.Context, p domain.Proposal, actorTag string) {
	if s.messenger == nil || p.MessageID == "" {
		return
	}
	if err := s.messenger.ShowResolved(ctx, p, actorTag); err != nil {
		s.log.Warn("update proposal message",
			zap.String("guild_id", p.GuildID), zap.String("proposal_id", p.ID), zap.Error(err))
	}
}
