package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa/schema"
	"github.com/urmzd/homai-alexa/pkg/api"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/config"
	"github.com/urmzd/homai-alexa/pkg/db"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
	"github.com/urmzd/homai-alexa/pkg/directive"
	"github.com/urmzd/homai-alexa/pkg/events"
	"github.com/urmzd/homai-alexa/pkg/identity"
	"github.com/urmzd/homai-alexa/pkg/telemetry"
	"golang.org/x/sync/errgroup"

	_ "github.com/urmzd/homai-alexa/docs"
)

// @title           Homai Alexa Adapter API
// @version         1.0
// @description     Smart home directive endpoint and device directory for broker-connected devices

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dbPath := flag.String("db", cfg.DBPath, "Path to database file, or \"memory\" (default: ~/.config/homai-alexa/directory.db)")
	seedFile := flag.String("seed", cfg.SeedFile, "YAML fixture of users and devices to preload")
	flag.Parse()
	cfg.DBPath = *dbPath
	cfg.SeedFile = *seedFile
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	directory, closeDirectory, err := openDirectory(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open device directory")
	}
	defer closeDirectory()

	recorder := diag.NewRecorder(200)
	sink := diag.Multi(diag.LogSink{}, recorder)
	validator := schema.NewValidator()
	subjects := broker.Subjects{Prefix: cfg.SubjectPrefix}

	var (
		conn         broker.Conn
		brokerStatus interface{ IsConnected() bool }
	)
	if cfg.NATSURL != "" {
		nc, err := broker.Connect(cfg.NATSURL, "homai-alexa")
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("Failed to connect to broker")
		}
		defer nc.Close()
		conn = nc
	} else {
		log.Warn().Msg("NATS_URL is empty, device commands and telemetry are disabled")
	}

	publisher := broker.NewPublisher(conn, subjects, validator, sink)
	if conn != nil {
		brokerStatus = publisher
	}

	var strategies []identity.Strategy
	if cfg.JWTSecret != "" {
		strategies = append(strategies, identity.JWTStrategy([]byte(cfg.JWTSecret)))
	} else {
		log.Warn().Msg("JWT_SECRET is empty, only legacy account-linking codes are accepted")
	}
	strategies = append(strategies, identity.OpaqueStrategy(directory))
	resolver := identity.NewResolver(strategies...)
	dispatcher := directive.NewDispatcher(resolver, directory, publisher,
		directive.WithTimeout(cfg.DirectiveTimeoutDuration()))

	forwarder := events.NewForwarder(cfg.EventEndpoint, cfg.ForwardTimeoutDuration())
	listener := telemetry.NewListener(directory, forwarder, sink, telemetry.WithWorkers(cfg.TelemetryWorkers))

	router := api.NewRouter(api.Dependencies{
		Dispatcher: dispatcher,
		Validator:  validator,
		Resolver:   resolver,
		Directory:  directory,
		Broker:     brokerStatus,
		Recorder:   recorder,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", cfg.HTTPAddr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if conn != nil {
		g.Go(func() error {
			return listener.Run(gctx, func(h broker.StateHandler) (broker.Subscription, error) {
				return broker.SubscribeStates(conn, subjects, h)
			})
		})
	} else {
		defer listener.Close()
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server failed")
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// openDirectory returns the configured directory, seeded from SEED_FILE when set.
func openDirectory(ctx context.Context, cfg *config.Config) (device.Directory, func(), error) {
	var fixture *db.Fixture
	if cfg.SeedFile != "" {
		f, err := db.LoadFixture(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		fixture = f
	}

	if cfg.InMemory() {
		mem := device.NewMemoryDirectory()
		if fixture != nil {
			for _, u := range fixture.Users {
				mem.PutUser(u)
			}
			for _, d := range fixture.Devices {
				d.Type = device.ParseType(string(d.Type))
				mem.PutDevice(d)
			}
		}
		log.Info().Msg("Using in-memory device directory")
		return mem, func() {}, nil
	}

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := database.Seed(ctx, fixture); err != nil {
		_ = database.Close()
		return nil, nil, err
	}

	return database.Directory(), func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}, nil
}
