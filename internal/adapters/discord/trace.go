package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// traceLogger etiqueta todo lo que pase en una interacción con un trace_id.
func (r *Router) traceLogger(ic *discordgo.InteractionCreate, name string) *zap.Logger {
	fields := []zap.Field{
		zap.String("trace_id", uuid.NewString()),
		zap.String("interaction", name),
		zap.String("guild_id", ic.GuildID),
	}
	if ic.Member != nil && ic.Member.User != nil {
		fields = append(fields, zap.String("user_id", ic.Member.User.ID))
	}
	return r.log.With(fields...)
}

func step(log *zap.Logger, label string) func() {
	start := time.Now()
	return func() { log.Debug("trace", zap.String("step", label), zap.Duration("took", time.Since(start))) }
}
