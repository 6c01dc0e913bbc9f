package visualizer

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/util"
	"golang.org/x/exp/slices"
)

var ErrUnknownDate = errors.New("date not present in dataset")

// Point is a station ready to be drawn for a single date
type Point struct {
	ID        string  `json:"id" csv:"id" groups:"basic"`
	Name      string  `json:"name" csv:"name" groups:"detailed"`
	Latitude  float64 `json:"latitude" csv:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" csv:"longitude" groups:"basic"`
	StopCount int     `json:"stop_count" csv:"stop_count" groups:"basic"`
}

func Load(path string) (dataset.Dataset, error) {
	return dataset.Load(path)
}

func PossibleDates(data dataset.Dataset) []string {
	return data.Dates()
}

// ReformatData flattens the dataset into points for the date. Stations without a
// location cannot be placed on the map and are left out.
func ReformatData(data dataset.Dataset, date string) []Point {
	points := []Point{}

	for _, id := range data.StationIDs() {
		station := data[id]
		if station.Location == nil {
			continue
		}

		points = append(points, Point{
			ID:        id,
			Name:      station.Name,
			Latitude:  station.Location.Latitude,
			Longitude: station.Location.Longitude,
			StopCount: station.Count[date],
		})
	}

	return points
}

// PointsForDate is ReformatData for a date that must exist in the dataset, narrowed by
// the optional filter expression
func PointsForDate(data dataset.Dataset, date string, filter string) ([]Point, error) {
	if !data.HasDate(date) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDate, date)
	}

	return Filter(ReformatData(data, date), filter)
}

// Filter keeps the points matching a boolean expr expression such as `StopCount > 100`
func Filter(points []Point, expression string) ([]Point, error) {
	if expression == "" {
		return points, nil
	}

	program, err := expr.Compile(expression, expr.Env(Point{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}

	filtered := slices.Clone(points)
	var runErr error

	util.InPlaceFilter(&filtered, func(point Point) bool {
		if runErr != nil {
			return false
		}

		result, err := expr.Run(program, point)
		if err != nil {
			runErr = err
			return false
		}

		return result.(bool)
	})

	if runErr != nil {
		return nil, fmt.Errorf("running filter: %w", runErr)
	}

	return filtered, nil
}
