package visualizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/config"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/urfave/cli/v2"
)

func mapOptionsFromConfig(cfg config.MapConfig) MapOptions {
	return MapOptions{
		Radius:          cfg.Radius,
		Zoom:            cfg.Zoom,
		CenterLatitude:  cfg.CenterLatitude,
		CenterLongitude: cfg.CenterLongitude,
		MidpointDivisor: cfg.MidpointDivisor,
		ColourScale:     cfg.ColourScale,
	}
}

// writeOutput writes to the file at path, or stdout when path is empty or "-"
func writeOutput(path string, write func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		file.Close()
		return err
	}

	log.Info().Str("file", path).Msg("Written")

	return file.Close()
}

func pointFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "date",
			Usage:    "date to draw in YYYY-MM-DD format",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "expression the points must match, e.g. 'StopCount > 100'",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "file to write, stdout when not set",
		},
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "visualizer",
		Usage: "Explore the final dataset as density maps",
		Subcommands: []*cli.Command{
			{
				Name:  "dates",
				Usage: "list the dates with stop counts",
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}

					data, err := Load(filepath.Join(cfg.DataDirectory, dataset.FileName))
					if err != nil {
						return err
					}

					for _, date := range PossibleDates(data) {
						fmt.Println(date)
					}

					return nil
				},
			},
			{
				Name:  "plot",
				Usage: "render the density map of a date as HTML",
				Flags: pointFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}

					data, err := Load(filepath.Join(cfg.DataDirectory, dataset.FileName))
					if err != nil {
						return err
					}

					return writeOutput(c.String("output"), func(w io.Writer) error {
						return Plot(w, data, c.String("date"), c.String("filter"), mapOptionsFromConfig(cfg.Map))
					})
				},
			},
			{
				Name:  "export",
				Usage: "export the points of a date as CSV",
				Flags: pointFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}

					data, err := Load(filepath.Join(cfg.DataDirectory, dataset.FileName))
					if err != nil {
						return err
					}

					points, err := PointsForDate(data, c.String("date"), c.String("filter"))
					if err != nil {
						return err
					}

					return writeOutput(c.String("output"), func(w io.Writer) error {
						return ExportCSV(w, points)
					})
				},
			},
			{
				Name:  "serve",
				Usage: "serve the density API and maps over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}

					return SetupServer(c.String("listen"), filepath.Join(cfg.DataDirectory, dataset.FileName), mapOptionsFromConfig(cfg.Map))
				},
			},
		},
	}
}
