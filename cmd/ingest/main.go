// Command ingest runs one ingestion pass over the configured tournament
// searches and writes the snapshot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"smashrank/internal/client"
	"smashrank/internal/config"
	"smashrank/internal/ingest"
	"smashrank/internal/logging"
	"smashrank/internal/pipeline"
	"smashrank/internal/snapshot"
	"smashrank/internal/trueskill"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tournament sources")
	}

	api, closeAPI, err := client.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize start.gg client")
	}
	defer closeAPI()

	store, err := snapshot.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}

	ingestor := ingest.NewIngestor(api, sources, cfg.SetsPerPage, cfg.TournamentsPerPage)
	p := pipeline.New(ingestor, store, trueskill.DefaultEnv())

	snap, err := p.Ingest(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Ingestion failed")
		closeAPI()
		os.Exit(1)
	}

	log.Info().
		Str("run_id", snap.Meta.RunID).
		Int("tournaments", len(snap.Tournaments)).
		Int("sets", len(snap.Sets)).
		Msg("Snapshot saved")
}
