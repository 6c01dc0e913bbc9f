package elastic_client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/util"
)

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

func Connect(required bool) error {
	env := util.GetEnvironmentVariables()

	if env["STOPDENSITY_ELASTICSEARCH_ADDRESS"] == "" && !required {
		log.Debug().Msg("Skipping Elasticsearch setup")
		return nil
	} else if env["STOPDENSITY_ELASTICSEARCH_ADDRESS"] == "" && required {
		log.Fatal().Msg("Elasticsearch configuration not set")
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{env["STOPDENSITY_ELASTICSEARCH_ADDRESS"]},
		Username:  env["STOPDENSITY_ELASTICSEARCH_USERNAME"],
		Password:  env["STOPDENSITY_ELASTICSEARCH_PASSWORD"],

		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return err
	}

	_, err = es.Info()
	if err != nil {
		return err
	}

	Client = es

	bulkIndexer, err = esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: 15 * time.Second,
	})
	if err != nil {
		return err
	}

	log.Info().Msgf("Elasticsearch client setup for %s", env["STOPDENSITY_ELASTICSEARCH_ADDRESS"])

	return nil
}

func Enabled() bool {
	return Client != nil
}

func IndexRequest(indexName string, document io.ReadSeeker) {
	if Client == nil {
		return
	}

	bulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Index:  indexName,
			Action: "index",
			Body:   document,
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Error().Err(err).Str("indexName", indexName).Msg("Failed to index document")
				} else {
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index document")
				}
			},
		},
	)
}

// IndexDocument JSON encodes the document and queues it on the bulk indexer
func IndexDocument(indexName string, document interface{}) error {
	documentBytes, err := json.Marshal(document)
	if err != nil {
		return err
	}

	IndexRequest(indexName, bytes.NewReader(documentBytes))

	return nil
}

func WaitUntilQueueEmpty() {
	if bulkIndexer == nil {
		return
	}

	if err := bulkIndexer.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush Elasticsearch bulk indexer")
	}

	stats := bulkIndexer.Stats()
	log.Info().Uint64("indexed", stats.NumIndexed).Uint64("failed", stats.NumFailed).Msg("Elasticsearch bulk indexer flushed")
}
