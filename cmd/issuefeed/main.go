package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/issuefeed/internal/auth"
	"reddot-watch/issuefeed/internal/config"
	"reddot-watch/issuefeed/internal/database"
	importer "reddot-watch/issuefeed/internal/import"
	"reddot-watch/issuefeed/internal/metrics"
	"reddot-watch/issuefeed/internal/server"
	"reddot-watch/issuefeed/internal/server/storage"
	"reddot-watch/issuefeed/internal/webhook"
)

const usage = `Usage: issuefeed [command] [options]
Commands: server, import, token

For command-specific options, use: issuefeed [command] -h`

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	cfg := config.DefaultConfig()

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: "+config.EnvDBPath+")")
	serverCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: "+config.EnvServerHost+")")
	serverCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: "+config.EnvServerPort+")")
	serverCmd.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret,
		"Shared secret for webhook signatures, empty disables verification (env: "+config.EnvWebhookSecret+")")
	serverCmd.StringVar(&cfg.OwnLogin, "own-login", cfg.OwnLogin,
		"Login whose activity is flagged as own (env: "+config.EnvOwnLogin+")")
	serverCmd.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret,
		"Signing secret for bearer tokens, empty disables /api/events (env: "+config.EnvTokenSecret+")")
	serverCmd.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes,
		"Maximum webhook body size in bytes (env: "+config.EnvMaxBodyBytes+")")
	serverLogLevel := logLevelFlag(serverCmd)

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: "+config.EnvDBPath+")")
	importCmd.StringVar(&cfg.ImportPath, "file", "",
		"Path or http(s) URL of a JSON-lines deliveries file")
	importCmd.StringVar(&cfg.OwnLogin, "own-login", cfg.OwnLogin,
		"Login whose activity is flagged as own (env: "+config.EnvOwnLogin+")")
	importLogLevel := logLevelFlag(importCmd)

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenCmd.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret,
		"Signing secret for bearer tokens (env: "+config.EnvTokenSecret+")")
	tokenCmd.DurationVar(&cfg.TokenTTL, "ttl", cfg.TokenTTL,
		"Token lifetime (env: "+config.EnvTokenTTL+")")
	var login string
	tokenCmd.StringVar(&login, "login", "", "Login the token is issued to")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "server":
		serverCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *serverLogLevel)

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "import":
		importCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, *importLogLevel)

		if err := runImport(cfg); err != nil {
			log.Error().Err(err).Msg("Import failed")
			os.Exit(1)
		}

	case "token":
		tokenCmd.Parse(os.Args[2:])

		if err := runToken(cfg, login); err != nil {
			log.Error().Err(err).Msg("Token issue failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func logLevelFlag(fs *flag.FlagSet) *string {
	return fs.String("log-level", config.GetEnvString(config.EnvLogLevel, config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: "+config.EnvLogLevel+")")
}

// applyLogLevel parses the flag value separately since it needs conversion.
func applyLogLevel(cfg *config.Config, levelStr string) {
	if level, err := zerolog.ParseLevel(levelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

func openStore(cfg *config.Config) (*database.DB, storage.FeedRecordRepository, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, storage.NewRepository(db), nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := server.Deps{
		Repo:          repo,
		Normalizer:    webhook.NewNormalizer(cfg.OwnLogin),
		Metrics:       metrics.New(),
		Pinger:        db,
		WebhookSecret: cfg.WebhookSecret,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	}
	if cfg.TokenSecret != "" {
		tokens, err := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("failed to configure bearer tokens: %w", err)
		}
		deps.Tokens = tokens
	}

	logger := log.Logger.With().Str("service", "issuefeed").Logger()
	return server.RunServer(cfg.ListenAddr(), server.NewHandler(deps, logger), logger)
}

// runImport replays recorded deliveries into the database.
func runImport(cfg *config.Config) error {
	if cfg.ImportPath == "" {
		return errors.New("missing -file")
	}

	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := importer.NewImporter(webhook.NewNormalizer(cfg.OwnLogin), repo).ImportDeliveries(ctx, cfg.ImportPath)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d deliveries in %s: %d stored, %d ignored, %d failed\n",
		stats.Total, time.Since(start).Round(time.Millisecond), stats.Stored, stats.Ignored, stats.Failed)
	return nil
}

// runToken prints a bearer token for login.
func runToken(cfg *config.Config, login string) error {
	issuer, err := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	token, expiresAt, err := issuer.Issue(login)
	if err != nil {
		return err
	}

	log.Info().Str("login", login).Time("expires_at", expiresAt).Msg("Issued bearer token")
	fmt.Println(token)
	return nil
}
