package stations

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/ctdf"
	"github.com/travigo/stopdensity/pkg/database"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/golemio"
	"github.com/travigo/stopdensity/pkg/transforms"
)

const AllStationsFileName = "all_stations.json"
const AllStationsIDsFileName = "all_stations_ids.json"

type StopsSource interface {
	GetAllStops(ctx context.Context) ([]json.RawMessage, error)
}

type Downloader struct {
	Source        StopsSource
	DataDirectory string
}

func AllStationsPath(dataDirectory string) string {
	return filepath.Join(dataDirectory, AllStationsFileName)
}

func AllStationsIDsPath(dataDirectory string) string {
	return filepath.Join(dataDirectory, AllStationsIDsFileName)
}

// DownloadAllStations fetches every stop from the API and stores the raw features
func (d *Downloader) DownloadAllStations(ctx context.Context) error {
	startTime := time.Now()

	allStops, err := d.Source.GetAllStops(ctx)
	if err != nil {
		return fmt.Errorf("downloading stations: %w", err)
	}

	path := AllStationsPath(d.DataDirectory)
	if err := dataset.WriteJSON(path, allStops); err != nil {
		return err
	}

	log.Info().
		Int("stops", len(allStops)).
		Str("file", path).
		Str("duration", time.Since(startTime).String()).
		Msg("Downloaded all stations")

	if database.Enabled() {
		stops, err := loadStops(allStops)
		if err != nil {
			return err
		}
		if err := importStopsIntoMongo(ctx, stops); err != nil {
			return err
		}
	}

	return nil
}

// FilterStationIDs reduces the downloaded stations to the parent station index
func (d *Downloader) FilterStationIDs(ctx context.Context) (Index, error) {
	var allStops []json.RawMessage
	if err := dataset.ReadJSON(AllStationsPath(d.DataDirectory), &allStops); err != nil {
		return nil, fmt.Errorf("loading downloaded stations: %w", err)
	}

	stops, err := loadStops(allStops)
	if err != nil {
		return nil, err
	}

	index := Flatten(stops)
	if transformed := index.ApplyTransforms(); transformed > 0 {
		log.Info().Int("stations", transformed).Msg("Applied station transforms")
	}

	path := AllStationsIDsPath(d.DataDirectory)
	if err := dataset.WriteJSON(path, index); err != nil {
		return nil, err
	}

	log.Info().
		Int("stops", len(stops)).
		Int("parents", len(index)).
		Str("file", path).
		Msg("Filtered station identifiers")

	if database.Enabled() {
		if err := importStopGroupsIntoMongo(ctx, index); err != nil {
			return nil, err
		}
	}

	return index, nil
}

func LoadIndex(dataDirectory string) (Index, error) {
	index := Index{}
	if err := dataset.ReadJSON(AllStationsIDsPath(dataDirectory), &index); err != nil {
		return nil, fmt.Errorf("loading station index: %w", err)
	}

	return index, nil
}

func loadStops(allStops []json.RawMessage) ([]ctdf.Stop, error) {
	features, err := golemio.DecodeStops(allStops)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stops := make([]ctdf.Stop, 0, len(features))
	for _, feature := range features {
		stops = append(stops, feature.ToCTDF(now))
	}

	if transformed := transforms.Transform(stops); transformed > 0 {
		log.Info().Int("stops", transformed).Msg("Applied stop transforms")
	}

	return stops, nil
}
