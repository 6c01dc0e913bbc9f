package stations

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/ctdf"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/transforms"
	"github.com/travigo/stopdensity/pkg/util"
	"golang.org/x/exp/slices"
)

// Station is a parent station reduced to what the later steps need
type Station struct {
	Name     string            `json:"name"`
	Location *dataset.Location `json:"location"`
	Children []string          `json:"children"`
}

// Index maps parent station identifiers to their stations
type Index map[string]*Station

// Flatten turns the flat stop list into parent stations with their children. Children of
// children are folded into the top-level parent, and a parent that is referenced but never
// listed is kept without a name or location so its children still have somewhere to count.
func Flatten(stops []ctdf.Stop) Index {
	index := Index{}

	childrenOf := map[string][]string{}
	var referencedParents []string

	for _, stop := range stops {
		if stop.IsParent() {
			station := &Station{
				Name:     stop.PrimaryName,
				Children: []string{},
			}
			if stop.Location.Valid() {
				station.Location = &dataset.Location{
					Latitude:  stop.Location.Latitude(),
					Longitude: stop.Location.Longitude(),
				}
			}

			index[stop.PrimaryIdentifier] = station
			continue
		}

		if _, exists := childrenOf[stop.ParentIdentifier]; !exists {
			referencedParents = append(referencedParents, stop.ParentIdentifier)
		}
		childrenOf[stop.ParentIdentifier] = util.AppendUniqueStrings(childrenOf[stop.ParentIdentifier], stop.PrimaryIdentifier)
	}

	isChild := map[string]bool{}
	for _, children := range childrenOf {
		for _, child := range children {
			isChild[child] = true
		}
	}

	// A parent that is never listed and is nobody's child is a top-level station of its own
	for _, parentID := range referencedParents {
		if _, exists := index[parentID]; exists || isChild[parentID] {
			continue
		}

		log.Debug().Str("parent", parentID).Msg("Parent station referenced but never listed")
		index[parentID] = &Station{Children: []string{}}
	}

	childParent := map[string]string{}
	var nested []string

	for _, parentID := range referencedParents {
		station, exists := index[parentID]
		if !exists {
			nested = append(nested, parentID)
			continue
		}

		station.Children = util.AppendUniqueStrings(station.Children, childrenOf[parentID]...)
		for _, child := range station.Children {
			childParent[child] = parentID
		}
	}

	// Children of children, repeated until a pass places nothing new
	for len(nested) > 0 {
		var unresolved []string

		for _, intermediateID := range nested {
			topParentID, exists := childParent[intermediateID]
			if !exists {
				unresolved = append(unresolved, intermediateID)
				continue
			}

			topParent := index[topParentID]
			topParent.Children = util.AppendUniqueStrings(topParent.Children, childrenOf[intermediateID]...)
			for _, child := range childrenOf[intermediateID] {
				childParent[child] = topParentID
			}
		}

		// Only a parent cycle is left, keep each member as its own station
		if len(unresolved) == len(nested) {
			for _, orphanParentID := range unresolved {
				log.Warn().Str("parent", orphanParentID).Msg("Parent station chain forms a cycle")

				index[orphanParentID] = &Station{
					Children: util.AppendUniqueStrings([]string{}, childrenOf[orphanParentID]...),
				}
			}
			break
		}

		nested = unresolved
	}

	return index
}

// ParentIDs returns the parent identifiers in ascending order
func (index Index) ParentIDs() []string {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// ChildParent maps every child stop to its parent station
func (index Index) ChildParent() map[string]string {
	childParent := map[string]string{}

	for parentID, station := range index {
		for _, child := range station.Children {
			childParent[child] = parentID
		}
	}

	return childParent
}

// StopCount is the number of stops that will be queried for a day: every parent and child
func (index Index) StopCount() int {
	total := 0
	for _, station := range index {
		total += 1 + len(station.Children)
	}

	return total
}

func (index Index) ToCTDF(parentID string) *ctdf.StopGroup {
	station := index[parentID]

	stopGroup := &ctdf.StopGroup{
		Identifier: parentID,
		Name:       station.Name,
		Children:   station.Children,
	}
	if station.Location != nil {
		stopGroup.Location = ctdf.NewPointLocation(station.Location.Latitude, station.Location.Longitude)
	}

	return stopGroup
}

// ApplyTransforms runs the loaded ctdf.StopGroup transforms over every parent station and
// keeps the changed name. It returns how many stations changed.
func (index Index) ApplyTransforms() int {
	transformed := 0

	for _, parentID := range index.ParentIDs() {
		stopGroup := index.ToCTDF(parentID)
		if transforms.Transform(stopGroup) == 0 {
			continue
		}

		index[parentID].Name = stopGroup.Name
		transformed++
	}

	return transformed
}
