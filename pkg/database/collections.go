package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createStopsIndexes()
	createStopCountsIndexes()
}

func createStopsIndexes() {
	// Stops
	stopsCollection := GetCollection("stops")
	stopsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "parentidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "location.coordinates", Value: "2d"}},
		},
	}

	opts := options.CreateIndexes()
	_, err := stopsCollection.Indexes().CreateMany(context.Background(), stopsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Stop Groups
	stopGroupsCollection := GetCollection("stop_groups")
	stopGroupsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "identifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "children", Value: 1}},
		},
	}

	opts = options.CreateIndexes()
	_, err = stopGroupsCollection.Indexes().CreateMany(context.Background(), stopGroupsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createStopCountsIndexes() {
	stopCountsCollection := GetCollection("stop_counts")
	stopCountStopDateIndexName := "StopCountStopRefDate"
	_, err := stopCountsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Options: options.Index().SetName(stopCountStopDateIndexName).SetUnique(true),
			Keys: bson.D{
				{Key: "stopref", Value: 1},
				{Key: "date", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
