package stopcount

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/golemio"
	"github.com/travigo/stopdensity/pkg/stations"
	"github.com/travigo/stopdensity/pkg/util"
)

const defaultChunkSize = 4000
const defaultProgressEvery = 100

type StopTimeCounter interface {
	CountStopTimes(ctx context.Context, stopID string, date string) (int, error)
}

type Fetcher struct {
	Counter       StopTimeCounter
	DataDirectory string

	// ChunkSize parent stations are counted between each ChunkPause
	ChunkSize     int
	ChunkPause    time.Duration
	ProgressEvery int

	Cache *CountCache

	Sleep func(ctx context.Context, duration time.Duration) error
}

type Summary struct {
	Date    string
	Parents int
	Stops   int
	Failed  int
	Files   []string

	FailedStops []string
}

func (f *Fetcher) chunkSize() int {
	if f.ChunkSize <= 0 {
		return defaultChunkSize
	}
	return f.ChunkSize
}

func (f *Fetcher) progressEvery() int {
	if f.ProgressEvery <= 0 {
		return defaultProgressEvery
	}
	return f.ProgressEvery
}

func (f *Fetcher) sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	if f.Sleep != nil {
		return f.Sleep(ctx, duration)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CountStopTimesPerDay counts the stop times of every parent station and its children on
// the date, one stop at a time, writing a partial file after each chunk of parents.
func (f *Fetcher) CountStopTimesPerDay(ctx context.Context, date string) (*Summary, error) {
	if _, err := util.ParseDate(date); err != nil {
		return nil, err
	}

	index, err := stations.LoadIndex(f.DataDirectory)
	if err != nil {
		return nil, err
	}

	staleFiles, err := listStalePartialFiles(f.DataDirectory, date)
	if err != nil {
		return nil, err
	}

	parentIDs := index.ParentIDs()
	summary := &Summary{Date: date}
	chunkSize := f.chunkSize()
	numberChunks := (len(parentIDs) + chunkSize - 1) / chunkSize

	log.Info().
		Str("date", date).
		Int("parents", len(parentIDs)).
		Int("stops", index.StopCount()).
		Int("chunks", numberChunks).
		Msg("Counting stop times")

	if numberChunks == 0 {
		if err := removePartialFiles(staleFiles, ""); err != nil {
			return summary, err
		}
	}

	for chunkNumber := 1; chunkNumber <= numberChunks; chunkNumber++ {
		start := (chunkNumber - 1) * chunkSize
		end := start + chunkSize
		if end > len(parentIDs) {
			end = len(parentIDs)
		}

		countedStops := map[string]int{}

		for _, parentID := range parentIDs[start:end] {
			stopIDs := append([]string{parentID}, index[parentID].Children...)

			for _, stopID := range stopIDs {
				count, err := f.countStop(ctx, stopID, date)
				if err != nil {
					if errors.Is(err, golemio.ErrUnauthorized) || ctx.Err() != nil {
						return summary, err
					}

					log.Error().Err(err).Str("stop", stopID).Str("date", date).Msg("Failed to count stop times")
					summary.Failed++
					summary.FailedStops = append(summary.FailedStops, stopID)
					continue
				}

				summary.Stops++
				if count > 0 {
					countedStops[stopID] = count
				}
			}

			summary.Parents++
			if summary.Parents%f.progressEvery() == 0 {
				log.Info().Str("date", date).Msgf("Stops counted for %d stations out of %d", summary.Parents, len(parentIDs))
			}
		}

		path := PartialFilePath(f.DataDirectory, date, chunkNumber)
		if err := dataset.WriteJSON(path, countedStops); err != nil {
			return summary, err
		}
		summary.Files = append(summary.Files, path)

		// Earlier chunks of the date are only dropped once this run has produced data
		if chunkNumber == 1 {
			if err := removePartialFiles(staleFiles, path); err != nil {
				return summary, err
			}
		}

		log.Info().Str("date", date).Int("chunk", chunkNumber).Int("counted", len(countedStops)).Str("file", path).Msg("Saved chunk")

		if chunkNumber < numberChunks {
			log.Info().Str("pause", f.ChunkPause.String()).Msg("Sleeping")
			if err := f.sleep(ctx, f.ChunkPause); err != nil {
				return summary, err
			}
			log.Info().Msg("Sleeping done")
		}
	}

	log.Info().
		Str("date", date).
		Int("parents", summary.Parents).
		Int("stops", summary.Stops).
		Int("failed", summary.Failed).
		Msg("Stop times counted")

	if summary.Failed > 0 {
		log.Warn().
			Str("date", date).
			Strs("stops", summary.FailedStops).
			Msg("Some stops could not be counted and will aggregate as zero")
	}

	return summary, nil
}

// CountStopTimesForRange runs CountStopTimesPerDay for each day in the ISO-8601 period from start
func (f *Fetcher) CountStopTimesForRange(ctx context.Context, start string, period string) ([]*Summary, error) {
	dates, err := util.DatesInRange(start, period)
	if err != nil {
		return nil, err
	}

	return f.CountStopTimesForDates(ctx, dates)
}

// CountStopTimesForDates counts each date in turn, pausing between days like between chunks
func (f *Fetcher) CountStopTimesForDates(ctx context.Context, dates []string) ([]*Summary, error) {
	var summaries []*Summary
	for i, date := range dates {
		if i > 0 {
			if err := f.sleep(ctx, f.ChunkPause); err != nil {
				return summaries, err
			}
		}

		summary, err := f.CountStopTimesPerDay(ctx, date)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (f *Fetcher) countStop(ctx context.Context, stopID string, date string) (int, error) {
	if count, exists := f.Cache.Get(ctx, stopID, date); exists {
		return count, nil
	}

	count, err := f.Counter.CountStopTimes(ctx, stopID, date)
	if err != nil {
		return 0, err
	}

	f.Cache.Set(ctx, stopID, date, count)

	return count, nil
}
