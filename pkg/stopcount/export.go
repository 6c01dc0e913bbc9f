package stopcount

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/ctdf"
	"github.com/travigo/stopdensity/pkg/database"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/elastic_client"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stopCountDocument struct {
	StopRef   string            `json:"StopRef"`
	Name      string            `json:"Name"`
	Date      string            `json:"Date"`
	Count     int               `json:"Count"`
	Location  *dataset.Location `json:"Location,omitempty"`
	Timestamp time.Time         `json:"Timestamp"`
}

func exportStopCounts(ctx context.Context, date string, data dataset.Dataset) error {
	if database.Enabled() {
		if err := importStopCountsIntoMongo(ctx, date, data); err != nil {
			return err
		}
	}

	if elastic_client.Enabled() {
		indexStopCounts(date, data)
	}

	return nil
}

func importStopCountsIntoMongo(ctx context.Context, date string, data dataset.Dataset) error {
	now := time.Now()
	stopCountsCollection := database.GetCollection("stop_counts")
	var operations []mongo.WriteModel

	for _, stationID := range data.StationIDs() {
		stopCount := ctdf.StopCount{
			StopRef:          stationID,
			Date:             date,
			Count:            data[stationID].Count[date],
			CreationDateTime: now,
			DataSource: &ctdf.DataSource{
				OriginalFormat: "golemio-stoptimes",
				Provider:       "Golemio",
				Dataset:        dataset.FileName,
				Identifier:     date,
			},
		}

		bsonRep, _ := bson.Marshal(bson.M{"$set": stopCount})
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"stopref": stopCount.StopRef, "date": date})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		operations = append(operations, updateModel)
	}

	if len(operations) == 0 {
		return nil
	}

	result, err := stopCountsCollection.BulkWrite(ctx, operations, &options.BulkWriteOptions{})
	if err != nil {
		return fmt.Errorf("bulk writing stop counts: %w", err)
	}

	log.Info().
		Str("date", date).
		Int64("upserted", result.UpsertedCount).
		Int64("modified", result.ModifiedCount).
		Msg("Imported stop counts into MongoDB")

	return nil
}

func indexStopCounts(date string, data dataset.Dataset) {
	now := time.Now()
	indexName := fmt.Sprintf("stop-counts-%s", date[:4])

	for _, stationID := range data.StationIDs() {
		station := data[stationID]

		err := elastic_client.IndexDocument(indexName, &stopCountDocument{
			StopRef:   stationID,
			Name:      station.Name,
			Date:      date,
			Count:     station.Count[date],
			Location:  station.Location,
			Timestamp: now,
		})
		if err != nil {
			log.Error().Err(err).Str("stop", stationID).Msg("Failed to index stop count")
		}
	}
}
