// Command probe resolves an event slug to its id and name, for curating the
// event whitelist.
//
//	probe tournament/the-nightclub-s9e15-os-nyc/event/melee-singles
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"smashrank/internal/client"
	"smashrank/internal/config"
	"smashrank/internal/logging"
	"smashrank/internal/models"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: probe <event slug>")
		os.Exit(2)
	}
	slug := os.Args[1]

	ctx := context.Background()
	api, closeAPI, err := client.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize start.gg client")
	}
	defer closeAPI()

	data, err := api.Call(ctx, client.QueryEventBySlug, map[string]any{"slug": slug})
	if err != nil {
		log.Fatal().Err(err).Str("slug", slug).Msg("Event lookup failed")
	}

	var resp struct {
		Event *models.Event `json:"event"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode event")
	}
	if resp.Event == nil {
		log.Fatal().Str("slug", slug).Msg("No event with that slug")
	}

	fmt.Printf("%s\t%s\n", resp.Event.ID, resp.Event.Name)
}
