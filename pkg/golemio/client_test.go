package golemio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server, maxRetries uint64) *Client {
	return NewClient(Config{
		BaseURL:              server.URL,
		AccessToken:          "secret-token",
		PageSize:             2,
		MaxRetries:           maxRetries,
		RetryInitialInterval: time.Millisecond,
		HTTPClient:           server.Client(),
	})
}

func stopFeature(id string, parent string) map[string]interface{} {
	var parentStation interface{}
	if parent != "" {
		parentStation = parent
	}

	return map[string]interface{}{
		"type": "Feature",
		"geometry": map[string]interface{}{
			"type":        "Point",
			"coordinates": []float64{14.4, 50.1},
		},
		"properties": map[string]interface{}{
			"stop_id":        id,
			"stop_name":      "Stop " + id,
			"stop_lat":       50.1,
			"stop_lon":       14.4,
			"parent_station": parentStation,
			"location_type":  0,
		},
	}
}

func TestGetAllStopsPaginates(t *testing.T) {
	stops := []map[string]interface{}{
		stopFeature("U1", ""),
		stopFeature("U1Z1", "U1"),
		stopFeature("U1Z2", "U1"),
		stopFeature("U2", ""),
		stopFeature("U3", ""),
	}

	var requestedOffsets []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gtfs/stops", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("X-Access-Token"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		requestedOffsets = append(requestedOffsets, r.URL.Query().Get("offset"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + 2
		if end > len(stops) {
			end = len(stops)
		}
		page := []map[string]interface{}{}
		if offset < len(stops) {
			page = stops[offset:end]
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":     "FeatureCollection",
			"features": page,
		})
	}))
	defer server.Close()

	client := newTestClient(server, 0)

	rawStops, err := client.GetAllStops(context.Background())
	require.NoError(t, err)
	assert.Len(t, rawStops, 5)
	assert.Equal(t, []string{"0", "2", "4", "5"}, requestedOffsets)

	features, err := DecodeStops(rawStops)
	require.NoError(t, err)
	assert.Equal(t, "U1Z1", features[1].Properties.StopID)
	assert.Equal(t, "U1", features[1].Properties.ParentStation)
	assert.Equal(t, "", features[0].Properties.ParentStation)

	stop := features[1].ToCTDF(time.Now())
	assert.Equal(t, "U1Z1", stop.PrimaryIdentifier)
	assert.Equal(t, "U1", stop.ParentIdentifier)
	assert.False(t, stop.IsParent())
	assert.Equal(t, 50.1, stop.Location.Latitude())
	assert.Equal(t, 14.4, stop.Location.Longitude())
}

func TestCountStopTimes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gtfs/stoptimes/U1Z1P", r.URL.Path)
		assert.Equal(t, "2020-01-02", r.URL.Query().Get("date"))

		switch r.URL.Query().Get("offset") {
		case "0":
			fmt.Fprint(w, `[{"stop_id":"U1Z1P"},{"stop_id":"U1Z1P"}]`)
		case "2":
			fmt.Fprint(w, `[{"stop_id":"U1Z1P"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer server.Close()

	client := newTestClient(server, 0)

	count, err := client.CountStopTimes(context.Background(), "U1Z1P", "2020-01-02")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCountStopTimesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	count, err := newTestClient(server, 0).CountStopTimes(context.Background(), "U9", "2020-01-02")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDownloadPageRetriesRateLimit(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	body, err := newTestClient(server, 5).DownloadPage(context.Background(), "gtfs/stoptimes/U1", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDownloadPageUnauthorizedIsPermanent(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server, 5).DownloadPage(context.Background(), "gtfs/stops", 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var statusError *StatusError
	require.ErrorAs(t, err, &statusError)
	assert.Equal(t, http.StatusUnauthorized, statusError.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDownloadAllPagesMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"a list"`)
	}))
	defer server.Close()

	_, err := newTestClient(server, 0).CountStopTimes(context.Background(), "U1", "2020-01-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gtfs/stoptimes/U1")
}

func TestLoadAccessToken(t *testing.T) {
	directory := t.TempDir()

	validPath := filepath.Join(directory, "golemio_api_key.json")
	require.NoError(t, os.WriteFile(validPath, []byte(`{"X-Access-Token": "abc123"}`), 0644))

	token, err := LoadAccessToken(validPath)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	emptyPath := filepath.Join(directory, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte(`{}`), 0644))

	_, err = LoadAccessToken(emptyPath)
	assert.Error(t, err)

	_, err = LoadAccessToken(filepath.Join(directory, "missing.json"))
	assert.Error(t, err)
}
