package httpstatus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
)

type configSource interface {
	Snapshot() map[string]domain.GuildConfig
}

type sessionSource interface {
	Snapshot(guildID string) (service.SessionSnapshot, bool)
}

type proposalCounter interface {
	Count(guildID string) int
}

// GuildStatus es la respuesta de GET /v1/guilds/:guildID.
type GuildStatus struct {
	GuildID          string                   `json:"guildId"`
	Configured       bool                     `json:"configured"`
	Config           domain.GuildConfig       `json:"config"`
	Session          *service.SessionSnapshot `json:"session"`
	PendingProposals int                      `json:"pendingProposals"`
}

// Server expone el estado de sólo lectura del bot.
type Server struct {
	engine    *gin.Engine
	srv       *http.Server
	log       *zap.Logger
	configs   configSource
	sessions  sessionSource
	proposals proposalCounter
}

func New(addr string, configs configSource, sessions sessionSource, proposals proposalCounter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(log))

	s := &Server{
		engine:    r,
		log:       log,
		configs:   configs,
		sessions:  sessions,
		proposals: proposals,
	}
	s.srv = &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/v1/guilds/:guildID", s.handleGuild)
}

func (s *Server) Handler() http.Handler { return s.engine }

// Start bloquea hasta Shutdown.
func (s *Server) Start() error {
	s.log.Info("status api listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGuild no materializa defaults: un guild desconocido no crea entrada.
func (s *Server) handleGuild(c *gin.Context) {
	guildID := c.Param("guildID")

	cfg, ok := s.configs.Snapshot()[guildID]
	if !ok {
		cfg = domain.DefaultGuildConfig()
	}
	out := GuildStatus{
		GuildID:          guildID,
		Configured:       ok,
		Config:           cfg,
		PendingProposals: s.proposals.Count(guildID),
	}
	if snap, live := s.sessions.Snapshot(guildID); live {
		out.Session = &snap
	}
	c.JSON(http.StatusOK, out)
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
