package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/config"
	"github.com/travigo/stopdensity/pkg/stations"
	"github.com/travigo/stopdensity/pkg/stopcount"
	"github.com/travigo/stopdensity/pkg/transforms"
	"github.com/travigo/stopdensity/pkg/visualizer"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("STOPDENSITY_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("STOPDENSITY_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "stopdensity",
		Description: "Count the daily stop times of Czech public transport stations from the Golemio API and map their density",

		Flags: config.Flags(),
		Before: func(c *cli.Context) error {
			cfg, err := config.FromCLI(c)
			if err != nil {
				return err
			}

			return transforms.SetupClient(cfg.TransformsFile)
		},

		Commands: []*cli.Command{
			stations.RegisterCLI(),
			stopcount.RegisterCLI(),
			visualizer.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
