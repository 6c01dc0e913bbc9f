package golemio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadAccessToken reads the token from a {"X-Access-Token": "..."} JSON file
func LoadAccessToken(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading api key file: %w", err)
	}

	var keyFile struct {
		AccessToken string `json:"X-Access-Token"`
	}
	if err := json.Unmarshal(contents, &keyFile); err != nil {
		return "", fmt.Errorf("decoding api key file %s: %w", path, err)
	}

	if keyFile.AccessToken == "" {
		return "", errors.New("api key file does not contain X-Access-Token")
	}

	return keyFile.AccessToken, nil
}
