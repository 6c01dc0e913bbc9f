package ctdf

type Location struct {
	Type        string    `json:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

// NewPointLocation builds a GeoJSON point, which orders coordinates as longitude then latitude
func NewPointLocation(latitude float64, longitude float64) *Location {
	return &Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Latitude() float64 {
	if l == nil || len(l.Coordinates) < 2 {
		return 0
	}

	return l.Coordinates[1]
}

func (l *Location) Longitude() float64 {
	if l == nil || len(l.Coordinates) < 2 {
		return 0
	}

	return l.Coordinates[0]
}

func (l *Location) Valid() bool {
	return l != nil && len(l.Coordinates) == 2
}
