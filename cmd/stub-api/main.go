package main

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"siteboard/config"
	"siteboard/domain"
	"siteboard/notify"
	"siteboard/session"
	"siteboard/stubapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	var mintRole, mintUser string
	pflag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "listen address")
	pflag.StringVar(&cfg.FixturesPath, "fixtures", cfg.FixturesPath, "YAML fixture file; a demo site is used when empty")
	pflag.StringVar(&mintRole, "mint-token", "", "print an HS256 token for this role and exit")
	pflag.StringVar(&mintUser, "user", "u1", "user id of a minted token")
	pflag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	pflag.Parse()

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if mintRole != "" {
		if cfg.SharedSecret == "" {
			log.Fatal("LOCAL_AUTH_SHARED_SECRET must be set to mint tokens")
		}
		tok, err := session.Sign([]byte(cfg.SharedSecret), session.Identity{UserID: mintUser, Role: domain.Role(mintRole)}, 24*time.Hour)
		if err != nil {
			log.Fatalf("sign: %v", err)
		}
		fmt.Println(tok)
		return
	}

	fixtures := stubapi.DefaultFixtures()
	if cfg.FixturesPath != "" {
		if fixtures, err = stubapi.LoadFixtures(cfg.FixturesPath); err != nil {
			log.Fatalf("fixtures: %v", err)
		}
	}
	store := stubapi.NewStore()
	fixtures.Seed(store)

	auth, err := cfg.Authenticator()
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	logger := log.New()
	logger.SetLevel(log.GetLevel())
	srv := &stubapi.Server{Store: store, Auth: auth, Logger: logger}
	if cfg.RedisConn != "" {
		opts, err := config.RedisOptions(cfg.RedisConn)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rc := redis.NewClient(opts)
		defer rc.Close()
		srv.Deduper = stubapi.NewRedisDeduper(rc, 24*time.Hour)
		srv.Notifier = notify.NewPublisher(rc, cfg.NotifyChannel)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Debug("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))

	stubapi.Register(e, srv)

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
