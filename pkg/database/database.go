package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/util"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoInstance struct {
	Client   *mongo.Client
	Database *mongo.Database
}

var MongoGlobalInstance *MongoInstance

const defaultMongoDatabase = "stopdensity"

// Connect sets up the MongoDB mirror of the dataset. Without a connection string it is
// skipped unless required.
func Connect(required bool) error {
	env := util.GetEnvironmentVariables()

	if env["STOPDENSITY_MONGODB_CONNECTION"] == "" && !required {
		log.Debug().Msg("Skipping MongoDB setup")
		return nil
	} else if env["STOPDENSITY_MONGODB_CONNECTION"] == "" && required {
		log.Fatal().Msg("MongoDB configuration not set")
	}

	return ConnectMongoDB(env["STOPDENSITY_MONGODB_CONNECTION"], env["STOPDENSITY_MONGODB_DATABASE"])
}

func ConnectMongoDB(connectionString string, dbName string) error {
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return err
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return err
	}

	MongoGlobalInstance = &MongoInstance{
		Client:   client,
		Database: client.Database(dbName),
	}

	createIndexes()

	log.Info().Str("database", dbName).Msg("MongoDB client setup")

	return nil
}

func Enabled() bool {
	return MongoGlobalInstance != nil
}

func GetCollection(collectionName string) *mongo.Collection {
	return MongoGlobalInstance.Database.Collection(collectionName)
}

func Disconnect() {
	if MongoGlobalInstance == nil {
		return
	}

	if err := MongoGlobalInstance.Client.Disconnect(context.Background()); err != nil {
		log.Error().Err(err).Msg("Disconnecting from MongoDB")
	}
	MongoGlobalInstance = nil
}
