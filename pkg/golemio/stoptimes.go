package golemio

import (
	"context"
	"encoding/json"
	"net/url"
)

// CountStopTimes returns how many stop times are scheduled at the stop on the date
func (c *Client) CountStopTimes(ctx context.Context, stopID string, date string) (int, error) {
	endpoint := "gtfs/stoptimes/" + url.PathEscape(stopID)
	params := map[string]string{
		"date": date,
	}

	stopCount := 0
	err := c.DownloadAllPages(ctx, endpoint, false, params, func(page []json.RawMessage) error {
		stopCount += len(page)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return stopCount, nil
}
