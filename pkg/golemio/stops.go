package golemio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/travigo/stopdensity/pkg/ctdf"
)

const stopsEndpoint = "gtfs/stops"

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties StopProperties `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type StopProperties struct {
	StopID             string  `json:"stop_id"`
	StopName           string  `json:"stop_name"`
	StopLatitude       float64 `json:"stop_lat"`
	StopLongitude      float64 `json:"stop_lon"`
	ParentStation      string  `json:"parent_station"`
	LocationType       int     `json:"location_type"`
	PlatformCode       string  `json:"platform_code"`
	ZoneID             string  `json:"zone_id"`
	WheelchairBoarding int     `json:"wheelchair_boarding"`
}

// GetAllStops downloads every stop the API knows about, keeping each GeoJSON feature untouched
func (c *Client) GetAllStops(ctx context.Context) ([]json.RawMessage, error) {
	var allStops []json.RawMessage

	err := c.DownloadAllPages(ctx, stopsEndpoint, true, nil, func(page []json.RawMessage) error {
		allStops = append(allStops, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return allStops, nil
}

func DecodeStops(rawStops []json.RawMessage) ([]Feature, error) {
	features := make([]Feature, 0, len(rawStops))

	for i, rawStop := range rawStops {
		var feature Feature
		if err := json.Unmarshal(rawStop, &feature); err != nil {
			return nil, fmt.Errorf("decoding stop %d: %w", i, err)
		}

		features = append(features, feature)
	}

	return features, nil
}

func (f *Feature) ToCTDF(now time.Time) ctdf.Stop {
	return ctdf.Stop{
		PrimaryIdentifier:    f.Properties.StopID,
		ParentIdentifier:     f.Properties.ParentStation,
		CreationDateTime:     now,
		ModificationDateTime: now,
		DataSource: &ctdf.DataSource{
			OriginalFormat: "golemio-geojson",
			Provider:       "Golemio",
			Dataset:        stopsEndpoint,
			Identifier:     fmt.Sprint(now.Unix()),
		},
		PrimaryName:  f.Properties.StopName,
		PlatformCode: f.Properties.PlatformCode,
		ZoneID:       f.Properties.ZoneID,
		Location:     ctdf.NewPointLocation(f.Properties.StopLatitude, f.Properties.StopLongitude),
	}
}
