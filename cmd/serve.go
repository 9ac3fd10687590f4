package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tickforge/internal/config"
	"github.com/nextlevelbuilder/tickforge/internal/demo/chat"
	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/server"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
	"github.com/nextlevelbuilder/tickforge/internal/store/pg"
	"github.com/nextlevelbuilder/tickforge/internal/store/sqlite"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the server (accept loop, tick loop, world-frame loop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := server.InitTracing(ctx, cfg.Trace.OTLPEndpoint, cfg.Trace.Protocol, cfg.Trace.ServiceName)
	if err != nil {
		log.Warn("tracing init failed, continuing without export", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	engine, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer engine.Close()

	registry := packet.NewRegistry()
	chat.Register(registry)

	srvCfg := server.Config{
		Host:                cfg.Server.Host,
		Port:                cfg.Server.Port,
		AcceptRatePerSecond: cfg.Server.AcceptRatePerSecond,
	}

	var reloader *server.CertReloader
	if cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != "" {
		reloader, err = server.NewCertReloader(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load TLS keypair: %w", err)
		}
		srvCfg.TLS = &tls.Config{GetCertificate: reloader.GetCertificate}
	}

	srv := server.New(srvCfg, registry, engine, log)

	if reloader != nil {
		stopWatch, err := config.Watch(cfgPath, func(next *config.Config) {
			if next.Server.TLSCertFile == "" || next.Server.TLSKeyFile == "" {
				return
			}
			if err := reloader.Reload(next.Server.TLSCertFile, next.Server.TLSKeyFile); err != nil {
				log.Error("TLS hot-reload failed, keeping previous certificate", "error", err)
				return
			}
			log.Info("TLS certificate reloaded")
		})
		if err != nil {
			log.Warn("config hot-reload watch failed, continuing without it", "error", err)
		} else {
			defer stopWatch()
		}
	}

	npcID := packet.NewPID()
	wanderer := chat.NewWanderer(npcID, srv.EnqueuePeerPacket)
	srv.AddWorldObject(wanderer)
	if _, err := srv.AddNPC(ctx, chat.NewWanderState); err != nil {
		log.Warn("failed to start wanderer NPC endpoint", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("graceful shutdown initiated", "signal", sig)
		cancel()
	}()

	log.Info("tickforge serving", "host", cfg.Server.Host, "port", cfg.Server.Port, "tick_per_second", cfg.Tick.PerSecond, "world_fps", cfg.World.FPS)

	var initial state.Factory = chat.NewEntryState
	return srv.Serve(ctx, initial, cfg.Tick.PerSecond, cfg.World.FPS)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Engine, error) {
	if cfg.Store.PostgresDSN != "" {
		return pg.Open(ctx, cfg.Store.PostgresDSN)
	}
	return sqlite.Open(ctx, cfg.Store.SQLitePath)
}
