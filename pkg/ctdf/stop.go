package ctdf

import "time"

type Stop struct {
	PrimaryIdentifier string `groups:"basic"`
	ParentIdentifier  string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	PrimaryName  string `groups:"basic"`
	PlatformCode string `groups:"detailed"`
	ZoneID       string `groups:"detailed"`

	Location *Location `groups:"basic"`
}

// IsParent reports whether the stop sits at the top of the station hierarchy
func (stop *Stop) IsParent() bool {
	return stop.ParentIdentifier == ""
}
