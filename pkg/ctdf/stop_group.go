package ctdf

import (
	"time"
)

// StopGroup is a parent station with all the platform level stops that belong to it
type StopGroup struct {
	Identifier string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	Name     string    `groups:"basic"`
	Location *Location `groups:"basic"`

	Children []string `groups:"detailed"`
}
