package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/util"
)

var Client *redis.Client

const defaultConnectionPassword = ""
const defaultDatabase = 0

// Connect sets up the shared Redis client used for caching stop counts. Without an
// address it is skipped unless required.
func Connect(required bool) error {
	env := util.GetEnvironmentVariables()

	address := env["STOPDENSITY_REDIS_ADDRESS"]
	password := defaultConnectionPassword
	database := defaultDatabase

	if address == "" && !required {
		log.Debug().Msg("Skipping Redis setup")
		return nil
	} else if address == "" && required {
		log.Fatal().Msg("Redis configuration not set")
	}

	if env["STOPDENSITY_REDIS_PASSWORD"] != "" {
		password = env["STOPDENSITY_REDIS_PASSWORD"]
	}

	if env["STOPDENSITY_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["STOPDENSITY_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	return ConnectAddress(address, password, database)
}

func ConnectAddress(address string, password string, database int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	statusCmd := client.Ping(context.Background())
	if err := statusCmd.Err(); err != nil {
		return err
	}

	Client = client

	log.Info().Str("address", address).Msg("Redis client setup")

	return nil
}

func Enabled() bool {
	return Client != nil
}
