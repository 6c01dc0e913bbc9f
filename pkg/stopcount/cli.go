package stopcount

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/config"
	"github.com/travigo/stopdensity/pkg/database"
	"github.com/travigo/stopdensity/pkg/elastic_client"
	"github.com/travigo/stopdensity/pkg/redis_client"
	"github.com/travigo/stopdensity/pkg/stations"
	"github.com/travigo/stopdensity/pkg/util"
	"github.com/urfave/cli/v2"
)

func dateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "date",
			Usage: "day to count in YYYY-MM-DD format, defaults to today",
		},
		&cli.StringFlag{
			Name:  "range",
			Usage: "ISO-8601 period (e.g. P7D) of consecutive days starting at --date",
		},
	}
}

func datesFromCLI(c *cli.Context) ([]string, error) {
	date := c.String("date")
	if date == "" {
		date = time.Now().Format(util.DateFormat)
	}

	if c.String("range") == "" {
		if _, err := util.ParseDate(date); err != nil {
			return nil, err
		}
		return []string{date}, nil
	}

	return util.DatesInRange(date, c.String("range"))
}

func newFetcher(cfg config.Config) (*Fetcher, error) {
	client, err := cfg.GolemioClient()
	if err != nil {
		return nil, err
	}

	if err := redis_client.Connect(false); err != nil {
		return nil, err
	}

	fetcher := &Fetcher{
		Counter:       client,
		DataDirectory: cfg.DataDirectory,
		ChunkSize:     cfg.StopCount.ChunkSize,
		ChunkPause:    cfg.StopCount.ChunkPause.Duration,
		ProgressEvery: cfg.StopCount.ProgressEvery,
	}
	if redis_client.Enabled() {
		fetcher.Cache = NewCountCache(redis_client.Client, cfg.StopCount.CacheExpiration.Duration)
	}

	return fetcher, nil
}

func connectExports() (func(), error) {
	if err := database.Connect(false); err != nil {
		return nil, err
	}
	if err := elastic_client.Connect(false); err != nil {
		database.Disconnect()
		return nil, err
	}

	return func() {
		elastic_client.WaitUntilQueueEmpty()
		database.Disconnect()
	}, nil
}

// warnIncomplete reports the days whose partial files are missing some stops
func warnIncomplete(summaries []*Summary) {
	for _, summary := range summaries {
		if summary.Failed == 0 {
			continue
		}

		log.Warn().
			Str("date", summary.Date).
			Int("failed", summary.Failed).
			Msg("Day counted with failed stops, rerun fetch for this date before relying on it")
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stop-count",
		Usage: "Count the daily stop times of every station and build the final dataset",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "count the stop times of every stop for the given days",
				Flags: dateFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					dates, err := datesFromCLI(c)
					if err != nil {
						return err
					}

					fetcher, err := newFetcher(cfg)
					if err != nil {
						return err
					}

					summaries, err := fetcher.CountStopTimesForDates(c.Context, dates)
					warnIncomplete(summaries)
					return err
				},
			},
			{
				Name:  "assign",
				Usage: "aggregate the fetched counts onto parent stations and save the final dataset",
				Flags: append(dateFlags(), &cli.BoolFlag{
					Name:  "initial",
					Usage: "start a new dataset instead of extending the existing one",
				}),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					dates, err := datesFromCLI(c)
					if err != nil {
						return err
					}

					disconnect, err := connectExports()
					if err != nil {
						return err
					}
					defer disconnect()

					aggregator := Aggregator{DataDirectory: cfg.DataDirectory}
					for i, date := range dates {
						initial := c.Bool("initial") && i == 0
						if _, err := aggregator.AssignStopCount(c.Context, date, initial); err != nil {
							return err
						}
					}

					return nil
				},
			},
			{
				Name:  "run",
				Usage: "fetch and assign the given days in one go",
				Flags: append(dateFlags(),
					&cli.BoolFlag{
						Name:  "initial",
						Usage: "start a new dataset instead of extending the existing one",
					},
					&cli.BoolFlag{
						Name:  "refresh-stations",
						Usage: "download and filter the stations before counting",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					dates, err := datesFromCLI(c)
					if err != nil {
						return err
					}

					disconnect, err := connectExports()
					if err != nil {
						return err
					}
					defer disconnect()

					fetcher, err := newFetcher(cfg)
					if err != nil {
						return err
					}

					if c.Bool("refresh-stations") {
						client, err := cfg.GolemioClient()
						if err != nil {
							return err
						}

						downloader := stations.Downloader{
							Source:        client,
							DataDirectory: cfg.DataDirectory,
						}
						if err := downloader.DownloadAllStations(c.Context); err != nil {
							return err
						}
						if _, err := downloader.FilterStationIDs(c.Context); err != nil {
							return err
						}
					}

					summaries, err := fetcher.CountStopTimesForDates(c.Context, dates)
					warnIncomplete(summaries)
					if err != nil {
						return err
					}

					aggregator := Aggregator{DataDirectory: cfg.DataDirectory}
					for i, date := range dates {
						initial := c.Bool("initial") && i == 0
						if _, err := aggregator.AssignStopCount(c.Context, date, initial); err != nil {
							return err
						}
					}

					log.Info().Strs("dates", dates).Msg("Stop count run complete")

					return nil
				},
			},
		},
	}
}
