package ctdf

import "time"

// StopCount is the number of scheduled visits at a stop on a single calendar day
type StopCount struct {
	StopRef string `groups:"basic"`
	Date    string `groups:"basic"`
	Count   int    `groups:"basic"`

	CreationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}
