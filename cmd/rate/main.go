// Command rate replays the stored snapshot and prints the leaderboard.
package main

import (
	"context"
	"os"

	"smashrank/internal/config"
	"smashrank/internal/leaderboard"
	"smashrank/internal/logging"
	"smashrank/internal/pipeline"
	"smashrank/internal/snapshot"
	"smashrank/internal/trueskill"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()

	store, err := snapshot.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}

	p := pipeline.New(nil, store, trueskill.DefaultEnv())
	result, err := p.Rate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Rating run failed")
	}

	if err := leaderboard.Render(os.Stdout, result.Rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to print leaderboard")
	}
}
