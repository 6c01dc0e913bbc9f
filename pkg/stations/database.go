package stations

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/ctdf"
	"github.com/travigo/stopdensity/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func importStopsIntoMongo(ctx context.Context, stops []ctdf.Stop) error {
	stopsCollection := database.GetCollection("stops")
	var stopOperations []mongo.WriteModel

	for _, stop := range stops {
		bsonRep, _ := bson.Marshal(bson.M{"$set": stop})
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"primaryidentifier": stop.PrimaryIdentifier})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		stopOperations = append(stopOperations, updateModel)
	}

	if len(stopOperations) == 0 {
		return nil
	}

	result, err := stopsCollection.BulkWrite(ctx, stopOperations, &options.BulkWriteOptions{})
	if err != nil {
		return fmt.Errorf("bulk writing stops: %w", err)
	}

	log.Info().
		Int64("upserted", result.UpsertedCount).
		Int64("modified", result.ModifiedCount).
		Msg("Imported stops into MongoDB")

	return nil
}

func importStopGroupsIntoMongo(ctx context.Context, index Index) error {
	now := time.Now()
	stopGroupsCollection := database.GetCollection("stop_groups")
	var stopGroupOperations []mongo.WriteModel

	for _, parentID := range index.ParentIDs() {
		stopGroup := index.ToCTDF(parentID)
		stopGroup.CreationDateTime = now
		stopGroup.ModificationDateTime = now
		stopGroup.DataSource = &ctdf.DataSource{
			OriginalFormat: "golemio-geojson",
			Provider:       "Golemio",
			Dataset:        AllStationsIDsFileName,
			Identifier:     fmt.Sprint(now.Unix()),
		}

		bsonRep, _ := bson.Marshal(bson.M{"$set": stopGroup})
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"identifier": parentID})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		stopGroupOperations = append(stopGroupOperations, updateModel)
	}

	if len(stopGroupOperations) == 0 {
		return nil
	}

	_, err := stopGroupsCollection.BulkWrite(ctx, stopGroupOperations, &options.BulkWriteOptions{})
	if err != nil {
		return fmt.Errorf("bulk writing stop groups: %w", err)
	}

	log.Info().Int("stopgroups", len(stopGroupOperations)).Msg("Imported stop groups into MongoDB")

	return nil
}
