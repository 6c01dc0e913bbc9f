package dataset

import (
	"golang.org/x/exp/slices"
)

const FileName = "final-stations_with_count.json"

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Station is a parent station with its aggregated stop count for each downloaded date
type Station struct {
	Name     string         `json:"name"`
	Location *Location      `json:"location"`
	Count    map[string]int `json:"count"`
}

// Dataset maps parent station identifiers to their per-day counts
type Dataset map[string]*Station

func Load(path string) (Dataset, error) {
	data := Dataset{}
	if err := ReadJSON(path, &data); err != nil {
		return nil, err
	}

	return data, nil
}

func Save(path string, data Dataset) error {
	return WriteJSON(path, data)
}

// StationIDs returns the station identifiers in ascending order
func (d Dataset) StationIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Dates lists the dates that have counts. Every date is written for all stations at
// once so the first station carrying counts is representative.
func (d Dataset) Dates() []string {
	for _, id := range d.StationIDs() {
		station := d[id]
		if len(station.Count) == 0 {
			continue
		}

		dates := make([]string, 0, len(station.Count))
		for date := range station.Count {
			dates = append(dates, date)
		}
		slices.Sort(dates)

		return dates
	}

	return []string{}
}

func (d Dataset) HasDate(date string) bool {
	return slices.Contains(d.Dates(), date)
}

// SetDate writes the count for the date on every station, replacing any previous value
// for that date. Stations missing from counts get 0.
func (d Dataset) SetDate(date string, counts map[string]int) {
	for id, station := range d {
		if station.Count == nil {
			station.Count = map[string]int{}
		}
		station.Count[date] = counts[id]
	}
}
