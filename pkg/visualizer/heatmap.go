package visualizer

import (
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/travigo/stopdensity/pkg/dataset"
)

var colourScales = map[string]map[string]string{
	"inferno": {"0.0": "#000004", "0.25": "#57106e", "0.5": "#bc3754", "0.75": "#f98e09", "1.0": "#fcffa4"},
	"magma":   {"0.0": "#000004", "0.25": "#51127c", "0.5": "#b73779", "0.75": "#fc8961", "1.0": "#fcfdbf"},
	"plasma":  {"0.0": "#0d0887", "0.25": "#7e03a8", "0.5": "#cc4778", "0.75": "#f89540", "1.0": "#f0f921"},
	"viridis": {"0.0": "#440154", "0.25": "#3b528b", "0.5": "#21918c", "0.75": "#5ec962", "1.0": "#fde725"},
}

type MapOptions struct {
	Radius          int
	Zoom            int
	CenterLatitude  float64
	CenterLongitude float64
	MidpointDivisor float64
	ColourScale     string
}

func DefaultMapOptions() MapOptions {
	return MapOptions{
		Radius:          15,
		Zoom:            7,
		CenterLatitude:  49.80,
		CenterLongitude: 15.20,
		MidpointDivisor: 2.4,
		ColourScale:     "inferno",
	}
}

type HeatmapPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"`
	Value     int     `json:"value"`
	Name      string  `json:"name"`
}

type Heatmap struct {
	Date     string            `json:"date"`
	Points   []HeatmapPoint    `json:"points"`
	Count    int               `json:"count"`
	MaxValue int               `json:"max_value"`
	Midpoint float64           `json:"midpoint"`
	Gradient map[string]string `json:"gradient"`
	Options  MapOptions        `json:"-"`
}

// NewHeatmap scales the points against the midpoint of the colour scale, which sits at
// MaxValue/MidpointDivisor. Counts of twice the midpoint or more saturate the scale.
func NewHeatmap(points []Point, date string, options MapOptions) (*Heatmap, error) {
	gradient, exists := colourScales[options.ColourScale]
	if !exists {
		return nil, fmt.Errorf("unknown colour scale %q", options.ColourScale)
	}
	if options.MidpointDivisor <= 0 {
		return nil, fmt.Errorf("midpoint divisor must be positive, got %v", options.MidpointDivisor)
	}

	heatmap := &Heatmap{
		Date:     date,
		Points:   make([]HeatmapPoint, 0, len(points)),
		Count:    len(points),
		Gradient: gradient,
		Options:  options,
	}

	for _, point := range points {
		if point.StopCount > heatmap.MaxValue {
			heatmap.MaxValue = point.StopCount
		}
	}
	heatmap.Midpoint = float64(heatmap.MaxValue) / options.MidpointDivisor

	for _, point := range points {
		intensity := 0.0
		if heatmap.Midpoint > 0 {
			intensity = math.Min(float64(point.StopCount)/(2*heatmap.Midpoint), 1)
		}

		heatmap.Points = append(heatmap.Points, HeatmapPoint{
			Lat:       point.Latitude,
			Lng:       point.Longitude,
			Intensity: intensity,
			Value:     point.StopCount,
			Name:      point.Name,
		})
	}

	return heatmap, nil
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Stop density {{.Date}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { background: white; padding: 6px 10px; font: 13px sans-serif; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var points = {{.Points}};
var map = L.map("map").setView([{{.Options.CenterLatitude}}, {{.Options.CenterLongitude}}], {{.Options.Zoom}});
L.tileLayer("https://tile.openstreetmap.org/{z}/{x}/{y}.png", {
	maxZoom: 19,
	attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);
L.heatLayer(points.map(function (p) { return [p.lat, p.lng, p.intensity]; }), {
	radius: {{.Options.Radius}},
	max: 1,
	gradient: {{.Gradient}}
}).addTo(map);
points.forEach(function (p) {
	L.circleMarker([p.lat, p.lng], {radius: 4, opacity: 0, fillOpacity: 0})
		.bindTooltip(p.name + ": " + p.value)
		.addTo(map);
});
var legend = L.control({position: "bottomright"});
legend.onAdd = function () {
	var div = L.DomUtil.create("div", "legend");
	div.textContent = {{.Date}} + ": " + {{.Count}} + " stations, max " + {{.MaxValue}} + " stop times";
	return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

func (h *Heatmap) Render(w io.Writer) error {
	return mapTemplate.Execute(w, h)
}

// Plot writes a standalone HTML density map of the dataset for the date
func Plot(w io.Writer, data dataset.Dataset, date string, filter string, options MapOptions) error {
	points, err := PointsForDate(data, date, filter)
	if err != nil {
		return err
	}

	heatmap, err := NewHeatmap(points, date, options)
	if err != nil {
		return err
	}

	return heatmap.Render(w)
}
