package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"siteboard/config"
	"siteboard/notify"
	"siteboard/storage"
	"siteboard/tui"
	"siteboard/views"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so that deferred cleanup always happens.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	pflag.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "base URL of the console API")
	pflag.StringVar(&cfg.Site, "site", cfg.Site, "site whose board to open")
	pflag.StringVar(&cfg.Board, "board", cfg.Board, "board to open (issues or tasks)")
	pflag.StringVar(&cfg.Token, "token", cfg.Token, "bearer token of the signed-in user")
	pflag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "file that receives the log")
	pflag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	pflag.Parse()

	if cfg.Site == "" {
		return errors.New("missing site: set SITEBOARD_SITE or --site")
	}
	if cfg.Token == "" {
		return errors.New("missing token: set SITEBOARD_TOKEN or --token")
	}
	def, ok := views.Lookup(cfg.Board)
	if !ok {
		return fmt.Errorf("unknown board %q", cfg.Board)
	}

	// the terminal belongs to the board, so the log goes to a file
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer logFile.Close()
	logger := log.New()
	logger.SetOutput(logFile)
	logger.SetFormatter(&log.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	auth, err := cfg.Authenticator()
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	identity, err := auth.Identity(cfg.Token)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp := cfg.TracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	client := storage.New(cfg.APIBaseURL, cfg.Token,
		storage.WithLogger(logger),
		storage.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	var dir storage.Directory = storage.NewRemoteDirectory(client)

	var events chan notify.Event
	if cfg.RedisConn != "" {
		opts, err := config.RedisOptions(cfg.RedisConn)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rc := redis.NewClient(opts)
		defer rc.Close()
		dir = storage.NewDirectoryCache(dir, rc, cfg.APIBaseURL, cfg.DirectoryTTL)
		events = make(chan notify.Event, 16)
		go notify.Subscribe(ctx, logger, rc, cfg.NotifyChannel, func(ev notify.Event) {
			// a refresh already queued covers this one
			select {
			case events <- ev:
			default:
			}
		})
	}

	source := views.NewSource(client, dir, def, cfg.Site, logger)
	view := views.New(def, identity, source, logger)
	model := tui.NewModel(view, tui.Options{
		Site:               cfg.Site,
		ActivationDistance: float64(cfg.ActivationDistance),
		Events:             events,
		Logger:             logger,
		Context:            ctx,
	})

	logger.WithFields(log.Fields{"board": def.Name, "site": cfg.Site, "user": identity.UserID, "role": identity.Role}).Info("console started")
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
