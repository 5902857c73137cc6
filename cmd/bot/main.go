package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/adapters/discord"
	"github.com/jose-valero/dj-session-bot/internal/adapters/httpstatus"
	"github.com/jose-valero/dj-session-bot/internal/adapters/lavalink"
	"github.com/jose-valero/dj-session-bot/internal/app/service"
	"github.com/jose-valero/dj-session-bot/internal/domain"
	"github.com/jose-valero/dj-session-bot/internal/infra/config"
	"github.com/jose-valero/dj-session-bot/internal/infra/logging"
	"github.com/jose-valero/dj-session-bot/internal/infra/storage"
)

const (
	lavalinkResume  = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("bot stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	// Store de la config DJ
	store, closeStore, err := openStore(ctx, cfg, log.Named("storage"))
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("✅ store listo", zap.String("driver", string(cfg.StoreDriver)))

	configs := service.NewDJConfigService(ctx, store,
		service.WithConfigDebounce(cfg.ConfigDebounce),
		service.WithConfigLogger(log.Named("djconfig")),
	)

	// Discord
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()
	log.Info("✅ conectado a Discord", zap.String("user", s.State.User.Username), zap.String("user_id", s.State.User.ID))

	// Lavalink (necesita el id del bot)
	node := lavalink.New(cfg.Lavalink.Addr(), cfg.Lavalink.Password, s.State.User.ID,
		lavalink.WithSecure(cfg.Lavalink.Secure),
		lavalink.WithLogger(log.Named("lavalink")),
		lavalink.WithResumeTimeout(lavalinkResume),
	)
	go node.Run(ctx)

	// Services
	registry := service.NewProposalRegistry()
	votes := service.NewSkipVoteService()
	player := service.NewPlayerService(node, discord.NewVoice(s),
		service.WithIdleTimeout(cfg.InactivityTimeout),
		service.WithDefaultVolume(cfg.DefaultVolume),
		service.WithSearchSource(domain.SearchSource(cfg.SearchSource)),
		service.WithNotifier(discord.NewNotifier(s)),
		service.WithPlayerLogger(log.Named("player")),
		service.OnTeardown(registry.Clear),
		service.OnTeardown(votes.Reset),
	)
	go player.Run(ctx, node.Events())

	proposals := service.NewProposalService(configs, registry, player, discord.NewMessenger(s), log.Named("proposals"))

	// Router
	r := discord.NewRouter(s, cfg.DiscordGuild, discord.Deps{
		Configs:   configs,
		Player:    player,
		Proposals: proposals,
		Votes:     votes,
		Voice:     lavalink.NewVoiceBridge(node, log.Named("voice")),
	}, cfg.ComponentRate, log.Named("discord"))
	r.Handlers()
	if err := r.Register(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	log.Info("✅ comandos registrados", zap.String("guild_id", cfg.DiscordGuild))

	// Status API
	status := httpstatus.New(cfg.HTTPAddr, configs, player, registry, log.Named("http"))
	go func() {
		if err := status.Start(); err != nil {
			log.Error("status api", zap.Error(err))
		}
	}()

	readyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if err := node.WaitReady(readyCtx); err != nil {
		log.Warn("lavalink not ready yet, will keep retrying", zap.Error(err))
	}
	cancel()

	<-ctx.Done()
	log.Info("apagando…")

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := status.Shutdown(sctx); err != nil {
		log.Warn("status api shutdown", zap.Error(err))
	}
	if err := configs.Close(sctx); err != nil {
		log.Error("final config flush", zap.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (service.SnapshotStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return storage.NewPostgresStore(db, log), func() { _ = db.Close() }, nil

	case config.StoreRedis:
		rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStore(rdb, cfg.RedisKey, log), func() { _ = rdb.Close() }, nil
	}
	return storage.NewFileStore(cfg.StoragePath, log), func() {}, nil
}
