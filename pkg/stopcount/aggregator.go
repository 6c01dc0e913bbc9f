package stopcount

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/stations"
	"github.com/travigo/stopdensity/pkg/util"
)

var ErrNoStopCounts = errors.New("no stop count files found")

type Aggregator struct {
	DataDirectory string
}

func (a *Aggregator) DatasetPath() string {
	return filepath.Join(a.DataDirectory, dataset.FileName)
}

// AggregateStopCount sums the counts in the partial files of the date onto their parent stations
func (a *Aggregator) AggregateStopCount(date string) (map[string]int, stations.Index, error) {
	if _, err := util.ParseDate(date); err != nil {
		return nil, nil, err
	}

	index, err := stations.LoadIndex(a.DataDirectory)
	if err != nil {
		return nil, nil, err
	}

	files, err := ListPartialFiles(a.DataDirectory, date)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoStopCounts, date)
	}

	childParent := index.ChildParent()
	totals := map[string]int{}
	unknownStops := 0

	for _, file := range files {
		counts := map[string]int{}
		if err := dataset.ReadJSON(file, &counts); err != nil {
			return nil, nil, err
		}

		for stopID, count := range counts {
			parentID := stopID
			if _, isParent := index[stopID]; !isParent {
				var exists bool
				parentID, exists = childParent[stopID]
				if !exists {
					log.Warn().Str("stop", stopID).Str("file", file).Msg("Stop not present in station index")
					unknownStops++
					continue
				}
			}

			totals[parentID] += count
		}
	}

	log.Info().
		Str("date", date).
		Int("files", len(files)).
		Int("stations", len(totals)).
		Int("unknown", unknownStops).
		Msg("Aggregated stop counts")

	return totals, index, nil
}

// AssignStopCount writes the aggregated counts of the date into the final dataset. An
// initial run starts a fresh dataset from the station index, otherwise the existing one
// is extended and stations new to the index are added with zero for earlier dates.
func (a *Aggregator) AssignStopCount(ctx context.Context, date string, initial bool) (dataset.Dataset, error) {
	totals, index, err := a.AggregateStopCount(date)
	if err != nil {
		return nil, err
	}

	var data dataset.Dataset
	if initial {
		data = dataset.Dataset{}
	} else {
		data, err = dataset.Load(a.DatasetPath())
		if err != nil {
			return nil, fmt.Errorf("loading %s (use an initial run to create it): %w", a.DatasetPath(), err)
		}
	}

	previousDates := data.Dates()
	addedStations := 0

	for _, parentID := range index.ParentIDs() {
		if _, exists := data[parentID]; exists {
			continue
		}

		station := &dataset.Station{}
		if err := copier.CopyWithOption(station, index[parentID], copier.Option{DeepCopy: true}); err != nil {
			return nil, err
		}

		station.Count = map[string]int{}
		for _, previousDate := range previousDates {
			station.Count[previousDate] = 0
		}

		data[parentID] = station
		addedStations++
	}

	data.SetDate(date, totals)

	if err := dataset.Save(a.DatasetPath(), data); err != nil {
		return nil, err
	}

	log.Info().
		Str("date", date).
		Int("stations", len(data)).
		Int("added", addedStations).
		Str("file", a.DatasetPath()).
		Msg("Stop counts assigned")

	if err := exportStopCounts(ctx, date, data); err != nil {
		return data, err
	}

	return data, nil
}
