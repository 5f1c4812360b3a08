// Package main provides the entry point for the Yuna assistant server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuna-ai/yuna-server/api"
	"github.com/yuna-ai/yuna-server/pkg/config"
	"github.com/yuna-ai/yuna-server/pkg/credstore"
	"github.com/yuna-ai/yuna-server/pkg/identity"
	"github.com/yuna-ai/yuna-server/pkg/logger"
	"github.com/yuna-ai/yuna-server/pkg/services"
	"github.com/yuna-ai/yuna-server/pkg/workspace"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("yuna-server %s (built %s)\n", Version, BuildTime)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logger.NewConsoleLogger(cfg.LogLevel)

	server, cleanup, err := buildServer(cfg, log)
	if err != nil {
		log.Fatal("failed to build server", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatal("server failed", err)
	}
}

// buildServer wires the stores, the identity provider and the service
// collaborators into an API server
func buildServer(cfg *config.Config, log logger.Logger) (*api.Server, func(), error) {
	creds := credstore.New(cfg.UsersFilePath())
	workspaces := workspace.NewManager(cfg.HistoryRoot(), log)

	sessions, err := identity.NewSessionStore(cfg.SessionsDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	cleanup := func() {
		if err := sessions.Close(); err != nil {
			log.Warn("failed to close session store", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := sessions.CleanupExpired(); err != nil {
		log.Warn("failed to cleanup expired sessions", map[string]interface{}{"error": err.Error()})
	}

	tokens := identity.NewTokenManager(cfg.Security.SecretKey)
	provider := identity.NewProvider(
		creds, workspaces, sessions, tokens,
		cfg.Security.BcryptCost, cfg.Security.SessionExpiry, log)

	chat := services.NewOpenAIChatService(cfg.Services.Chat)
	svcCfg := cfg.Services
	svcs := api.Services{
		Chat:      chat,
		Image:     services.NewRestyUpstream("image", svcCfg.ImageURL, svcCfg.RequestTimeout, svcCfg.RetryCount),
		Audio:     services.NewRestyUpstream("audio", svcCfg.AudioURL, svcCfg.RequestTimeout, svcCfg.RetryCount),
		Audiobook: services.NewRestyUpstream("audiobook", svcCfg.AudiobookURL, svcCfg.RequestTimeout, svcCfg.RetryCount),
		Search:    services.NewRestyUpstream("search", svcCfg.SearchURL, svcCfg.RequestTimeout, svcCfg.RetryCount),
		Analyzer:  services.NewAnalyzer(chat),
		History:   services.NewHistoryService(workspaces),
	}

	return api.NewServer(cfg, provider, svcs, log), cleanup, nil
}
