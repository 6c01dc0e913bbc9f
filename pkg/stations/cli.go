package stations

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/travigo/stopdensity/pkg/config"
	"github.com/travigo/stopdensity/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stations",
		Usage: "Discover stations and build the parent/child station index",
		Subcommands: []*cli.Command{
			{
				Name:  "download",
				Usage: "download every stop from the Golemio API",
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					client, err := cfg.GolemioClient()
					if err != nil {
						return err
					}
					if err := database.Connect(false); err != nil {
						return err
					}
					defer database.Disconnect()

					downloader := Downloader{
						Source:        client,
						DataDirectory: cfg.DataDirectory,
					}

					return downloader.DownloadAllStations(c.Context)
				},
			},
			{
				Name:  "filter",
				Usage: "reduce the downloaded stops to parent stations with their children",
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					if err := database.Connect(false); err != nil {
						return err
					}
					defer database.Disconnect()

					downloader := Downloader{
						DataDirectory: cfg.DataDirectory,
					}

					_, err = downloader.FilterStationIDs(c.Context)
					return err
				},
			},
			{
				Name:      "show",
				Usage:     "print a parent station from the index",
				ArgsUsage: "<parent station id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one parent station id")
					}

					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}

					index, err := LoadIndex(cfg.DataDirectory)
					if err != nil {
						return err
					}

					station, exists := index[c.Args().First()]
					if !exists {
						return fmt.Errorf("station %s is not a parent station", c.Args().First())
					}

					pretty.Println(station)

					return nil
				},
			},
		},
	}
}
