package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa/schema"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/config"
	"github.com/urmzd/homai-alexa/pkg/db"
	"github.com/urmzd/homai-alexa/pkg/diag"
	"github.com/urmzd/homai-alexa/pkg/directive"
	"github.com/urmzd/homai-alexa/pkg/identity"
	homaimcp "github.com/urmzd/homai-alexa/pkg/mcp"
)

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dbPath := flag.String("db", cfg.DBPath, "Path to database file, or \"memory\" (default: ~/.config/homai-alexa/directory.db)")
	seedFile := flag.String("seed", cfg.SeedFile, "YAML fixture of users and devices to preload")
	flag.Parse()
	cfg.DBPath = *dbPath
	cfg.SeedFile = *seedFile

	ctx := context.Background()

	path := cfg.DBPath
	if cfg.InMemory() {
		path = ":memory:"
	}
	database, err := db.Open(ctx, path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if cfg.SeedFile != "" {
		fixture, err := db.LoadFixture(cfg.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load seed fixture")
		}
		if err := database.Seed(ctx, fixture); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
	}
	directory := database.Directory()

	recorder := diag.NewRecorder(100)
	sink := diag.Multi(diag.LogSink{}, recorder)

	var (
		conn         broker.Conn
		brokerStatus homaimcp.BrokerStatus
	)
	if cfg.NATSURL != "" {
		nc, err := broker.Connect(cfg.NATSURL, "homai-alexa-mcp")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to broker")
		}
		defer nc.Close()
		conn = nc
	}
	publisher := broker.NewPublisher(conn, broker.Subjects{Prefix: cfg.SubjectPrefix}, schema.NewValidator(), sink)
	if conn != nil {
		brokerStatus = publisher
	}

	strategies := []identity.Strategy{identity.OpaqueStrategy(directory)}
	if cfg.JWTSecret != "" {
		strategies = append([]identity.Strategy{identity.JWTStrategy([]byte(cfg.JWTSecret))}, strategies...)
	}
	dispatcher := directive.NewDispatcher(identity.NewResolver(strategies...), directory, publisher,
		directive.WithTimeout(cfg.DirectiveTimeoutDuration()))

	mcpServer := homaimcp.NewServer(directory, dispatcher, brokerStatus, recorder)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
