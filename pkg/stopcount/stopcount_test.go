package stopcount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/stopdensity/pkg/dataset"
	"github.com/travigo/stopdensity/pkg/golemio"
	"github.com/travigo/stopdensity/pkg/stations"
)

type fakeCounter struct {
	counts   map[string]int
	failures map[string]error
	calls    []string
}

func (f *fakeCounter) CountStopTimes(ctx context.Context, stopID string, date string) (int, error) {
	f.calls = append(f.calls, stopID)
	if err := f.failures[stopID]; err != nil {
		return 0, err
	}
	return f.counts[stopID], nil
}

func testIndex() stations.Index {
	return stations.Index{
		"A": {Name: "Anděl", Location: &dataset.Location{Latitude: 50.07, Longitude: 14.40}, Children: []string{"A1", "A2"}},
		"B": {Name: "Smíchov", Location: &dataset.Location{Latitude: 50.06, Longitude: 14.41}, Children: []string{"B1"}},
		"C": {Name: "Orphan"},
	}
}

func writeIndex(t *testing.T, directory string, index stations.Index) {
	t.Helper()
	require.NoError(t, dataset.WriteJSON(stations.AllStationsIDsPath(directory), index))
}

func newTestFetcher(directory string, counter StopTimeCounter, sleeps *[]time.Duration) *Fetcher {
	return &Fetcher{
		Counter:       counter,
		DataDirectory: directory,
		ChunkSize:     2,
		ChunkPause:    30 * time.Second,
		ProgressEvery: 1,
		Sleep: func(ctx context.Context, duration time.Duration) error {
			*sleeps = append(*sleeps, duration)
			return nil
		},
	}
}

func TestCountStopTimesPerDay(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, testIndex())

	counter := &fakeCounter{counts: map[string]int{"A": 3, "A1": 10, "A2": 5, "B1": 7, "C": 2}}
	var sleeps []time.Duration
	fetcher := newTestFetcher(directory, counter, &sleeps)

	summary, err := fetcher.CountStopTimesPerDay(context.Background(), "2024-03-01")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "A1", "A2", "B", "B1", "C"}, counter.calls)
	assert.Equal(t, 3, summary.Parents)
	assert.Equal(t, 6, summary.Stops)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, summary.Files, 2)
	assert.Equal(t, []time.Duration{30 * time.Second}, sleeps)

	first := map[string]int{}
	require.NoError(t, dataset.ReadJSON(PartialFilePath(directory, "2024-03-01", 1), &first))
	assert.Equal(t, map[string]int{"A": 3, "A1": 10, "A2": 5, "B1": 7}, first)

	second := map[string]int{}
	require.NoError(t, dataset.ReadJSON(PartialFilePath(directory, "2024-03-01", 2), &second))
	assert.Equal(t, map[string]int{"C": 2}, second)
}

func TestCountStopTimesPerDayRemovesStaleChunks(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, testIndex())
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 7), map[string]int{"A": 99}))
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-02", 1), map[string]int{"A": 1}))

	var sleeps []time.Duration
	fetcher := newTestFetcher(directory, &fakeCounter{}, &sleeps)
	fetcher.ChunkSize = 10

	_, err := fetcher.CountStopTimesPerDay(context.Background(), "2024-03-01")
	require.NoError(t, err)

	files, err := ListPartialFiles(directory, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{PartialFilePath(directory, "2024-03-01", 1)}, files)
	assert.Empty(t, sleeps)

	other, err := ListPartialFiles(directory, "2024-03-02")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestCountStopTimesPerDayKeepsPreviousChunksOnAbort(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, testIndex())
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 1), map[string]int{"A": 3}))
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 2), map[string]int{"C": 2}))

	counter := &fakeCounter{
		failures: map[string]error{"A": &golemio.StatusError{StatusCode: 401, URL: "https://api.golemio.cz"}},
	}
	var sleeps []time.Duration

	_, err := newTestFetcher(directory, counter, &sleeps).CountStopTimesPerDay(context.Background(), "2024-03-01")
	require.ErrorIs(t, err, golemio.ErrUnauthorized)

	files, err := ListPartialFiles(directory, "2024-03-01")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	counts := map[string]int{}
	require.NoError(t, dataset.ReadJSON(PartialFilePath(directory, "2024-03-01", 1), &counts))
	assert.Equal(t, map[string]int{"A": 3}, counts)
}

func TestCountStopTimesPerDayErrors(t *testing.T) {
	t.Run("failed stop is skipped", func(t *testing.T) {
		directory := t.TempDir()
		writeIndex(t, directory, testIndex())

		counter := &fakeCounter{
			counts: map[string]int{"A": 1, "A1": 1, "B1": 4},
			failures: map[string]error{"A2": errors.New("timeout")},
		}
		var sleeps []time.Duration

		summary, err := newTestFetcher(directory, counter, &sleeps).CountStopTimesPerDay(context.Background(), "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, []string{"A2"}, summary.FailedStops)
		assert.Equal(t, 5, summary.Stops)
	})

	t.Run("unauthorized aborts", func(t *testing.T) {
		directory := t.TempDir()
		writeIndex(t, directory, testIndex())

		counter := &fakeCounter{
			failures: map[string]error{"A": &golemio.StatusError{StatusCode: 401, URL: "https://api.golemio.cz"}},
		}
		var sleeps []time.Duration

		_, err := newTestFetcher(directory, counter, &sleeps).CountStopTimesPerDay(context.Background(), "2024-03-01")
		assert.ErrorIs(t, err, golemio.ErrUnauthorized)
		assert.Equal(t, []string{"A"}, counter.calls)
	})

	t.Run("invalid date", func(t *testing.T) {
		var sleeps []time.Duration
		_, err := newTestFetcher(t.TempDir(), &fakeCounter{}, &sleeps).CountStopTimesPerDay(context.Background(), "01.03.2024")
		assert.Error(t, err)
	})

	t.Run("missing index", func(t *testing.T) {
		var sleeps []time.Duration
		_, err := newTestFetcher(t.TempDir(), &fakeCounter{}, &sleeps).CountStopTimesPerDay(context.Background(), "2024-03-01")
		assert.ErrorIs(t, err, dataset.ErrNotFound)
	})
}

func TestCountStopTimesForRange(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, stations.Index{"A": {Name: "Anděl"}})

	counter := &fakeCounter{counts: map[string]int{"A": 1}}
	var sleeps []time.Duration

	summaries, err := newTestFetcher(directory, counter, &sleeps).CountStopTimesForRange(context.Background(), "2024-02-28", "P3D")
	require.NoError(t, err)

	require.Len(t, summaries, 3)
	assert.Equal(t, "2024-02-28", summaries[0].Date)
	assert.Equal(t, "2024-03-01", summaries[2].Date)
	assert.Len(t, sleeps, 2)
}

func TestAggregateStopCount(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, testIndex())

	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 1), map[string]int{"A": 3, "A1": 10, "B1": 7, "ZZZ": 100}))
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 2), map[string]int{"A2": 5}))
	// a backup left over by an earlier write must not be counted twice
	require.NoError(t, os.WriteFile(filepath.Join(directory, "all_stop_count_2024-03-01_1.backup.json"), []byte(`{"A": 1000}`), 0644))

	aggregator := Aggregator{DataDirectory: directory}
	totals, index, err := aggregator.AggregateStopCount("2024-03-01")
	require.NoError(t, err)

	assert.Len(t, index, 3)
	assert.Equal(t, map[string]int{"A": 18, "B": 7}, totals)

	_, _, err = aggregator.AggregateStopCount("2024-03-05")
	assert.ErrorIs(t, err, ErrNoStopCounts)
}

func TestAssignStopCount(t *testing.T) {
	directory := t.TempDir()
	writeIndex(t, directory, testIndex())
	aggregator := Aggregator{DataDirectory: directory}

	_, err := aggregator.AssignStopCount(context.Background(), "2024-03-01", false)
	require.Error(t, err, "no counts fetched yet")

	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-01", 1), map[string]int{"A": 3, "A1": 10, "B1": 7}))

	_, err = aggregator.AssignStopCount(context.Background(), "2024-03-01", false)
	assert.ErrorIs(t, err, dataset.ErrNotFound)

	data, err := aggregator.AssignStopCount(context.Background(), "2024-03-01", true)
	require.NoError(t, err)

	require.Len(t, data, 3)
	assert.Equal(t, "Anděl", data["A"].Name)
	assert.Equal(t, &dataset.Location{Latitude: 50.07, Longitude: 14.40}, data["A"].Location)
	assert.Equal(t, map[string]int{"2024-03-01": 13}, data["A"].Count)
	assert.Equal(t, map[string]int{"2024-03-01": 0}, data["C"].Count)
	assert.Nil(t, data["C"].Location)

	index := testIndex()
	index["D"] = &stations.Station{Name: "Nádraží", Location: &dataset.Location{Latitude: 50.08, Longitude: 14.43}}
	writeIndex(t, directory, index)
	require.NoError(t, dataset.WriteJSON(PartialFilePath(directory, "2024-03-02", 1), map[string]int{"D": 4, "B1": 2}))

	data, err = aggregator.AssignStopCount(context.Background(), "2024-03-02", false)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"2024-03-01": 13, "2024-03-02": 0}, data["A"].Count)
	assert.Equal(t, map[string]int{"2024-03-01": 7, "2024-03-02": 2}, data["B"].Count)
	assert.Equal(t, map[string]int{"2024-03-01": 0, "2024-03-02": 4}, data["D"].Count)

	saved, err := dataset.Load(aggregator.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, data, saved)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, saved.Dates())
}

func TestCountCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	countCache := NewCountCache(client, time.Hour)

	_, exists := countCache.Get(ctx, "A", "2024-03-01")
	assert.False(t, exists)

	countCache.Set(ctx, "A", "2024-03-01", 42)

	count, exists := countCache.Get(ctx, "A", "2024-03-01")
	assert.True(t, exists)
	assert.Equal(t, 42, count)
	assert.True(t, server.Exists(fmt.Sprintf(countCacheKeyFormat, "A", "2024-03-01")))

	var nilCache *CountCache
	_, exists = nilCache.Get(ctx, "A", "2024-03-01")
	assert.False(t, exists)
	nilCache.Set(ctx, "A", "2024-03-01", 1)
}

func TestFetcherUsesCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	directory := t.TempDir()
	writeIndex(t, directory, stations.Index{"A": {Name: "Anděl", Children: []string{"A1"}}})

	countCache := NewCountCache(client, time.Hour)
	countCache.Set(context.Background(), "A1", "2024-03-01", 8)

	counter := &fakeCounter{counts: map[string]int{"A": 2}}
	var sleeps []time.Duration
	fetcher := newTestFetcher(directory, counter, &sleeps)
	fetcher.Cache = countCache

	_, err := fetcher.CountStopTimesPerDay(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, counter.calls)

	counts := map[string]int{}
	require.NoError(t, dataset.ReadJSON(PartialFilePath(directory, "2024-03-01", 1), &counts))
	assert.Equal(t, map[string]int{"A": 2, "A1": 8}, counts)

	count, exists := countCache.Get(context.Background(), "A", "2024-03-01")
	assert.True(t, exists)
	assert.Equal(t, 2, count)
}
