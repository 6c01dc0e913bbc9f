package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/travigo/stopdensity/pkg/golemio"
	"github.com/travigo/stopdensity/pkg/util"
	"gopkg.in/yaml.v3"
)

const defaultDataDirectory = "data"
const defaultTokenFile = "golemio_api_key.json"

type Config struct {
	DataDirectory  string          `yaml:"data_directory"`
	TransformsFile string          `yaml:"transforms_file"`
	Golemio        GolemioConfig   `yaml:"golemio"`
	StopCount      StopCountConfig `yaml:"stop_count"`
	Map            MapConfig       `yaml:"map"`
}

type GolemioConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TokenFile  string `yaml:"token_file"`
	PageSize   int    `yaml:"page_size"`
	MaxRetries uint64 `yaml:"max_retries"`
	UserAgent  string `yaml:"user_agent"`
}

type StopCountConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkPause      Duration `yaml:"chunk_pause"`
	ProgressEvery   int      `yaml:"progress_every"`
	CacheExpiration Duration `yaml:"cache_expiration"`
}

type MapConfig struct {
	Radius          int     `yaml:"radius"`
	Zoom            int     `yaml:"zoom"`
	CenterLatitude  float64 `yaml:"center_latitude"`
	CenterLongitude float64 `yaml:"center_longitude"`
	MidpointDivisor float64 `yaml:"midpoint_divisor"`
	ColourScale     string  `yaml:"colour_scale"`
}

// Duration accepts both Go style (30s) and ISO-8601 (PT30S) values in YAML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := util.ParseFlexibleDuration(raw)
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

func Default() Config {
	return Config{
		DataDirectory: defaultDataDirectory,
		Golemio: GolemioConfig{
			BaseURL:    golemio.DefaultBaseURL,
			TokenFile:  defaultTokenFile,
			PageSize:   golemio.DefaultPageSize,
			MaxRetries: golemio.DefaultMaxRetries,
			UserAgent:  "stopdensity",
		},
		StopCount: StopCountConfig{
			ChunkSize:       4000,
			ChunkPause:      Duration{30 * time.Second},
			ProgressEvery:   100,
			CacheExpiration: Duration{7 * 24 * time.Hour},
		},
		Map: MapConfig{
			Radius:          15,
			Zoom:            7,
			CenterLatitude:  49.80,
			CenterLongitude: 15.20,
			MidpointDivisor: 2.4,
			ColourScale:     "inferno",
		},
	}
}

// Load layers the optional YAML file and then the environment over the defaults
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("reading config file: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(contents))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("decoding config file %s: %w", path, err)
		}
	}

	if err := config.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return config, err
	}

	return config, nil
}

func (c *Config) applyEnvironment(env map[string]string) error {
	if env["STOPDENSITY_DATA_DIR"] != "" {
		c.DataDirectory = env["STOPDENSITY_DATA_DIR"]
	}

	if env["STOPDENSITY_TRANSFORMS_FILE"] != "" {
		c.TransformsFile = env["STOPDENSITY_TRANSFORMS_FILE"]
	}

	if env["STOPDENSITY_GOLEMIO_BASE_URL"] != "" {
		c.Golemio.BaseURL = env["STOPDENSITY_GOLEMIO_BASE_URL"]
	}

	if env["STOPDENSITY_GOLEMIO_TOKEN"] != "" {
		c.Golemio.Token = env["STOPDENSITY_GOLEMIO_TOKEN"]
	}

	if env["STOPDENSITY_GOLEMIO_TOKEN_FILE"] != "" {
		c.Golemio.TokenFile = env["STOPDENSITY_GOLEMIO_TOKEN_FILE"]
	}

	if env["STOPDENSITY_CHUNK_SIZE"] != "" {
		n, err := strconv.Atoi(env["STOPDENSITY_CHUNK_SIZE"])
		if err != nil {
			return fmt.Errorf("STOPDENSITY_CHUNK_SIZE: %w", err)
		}
		c.StopCount.ChunkSize = n
	}

	if env["STOPDENSITY_CHUNK_PAUSE"] != "" {
		pause, err := util.ParseFlexibleDuration(env["STOPDENSITY_CHUNK_PAUSE"])
		if err != nil {
			return fmt.Errorf("STOPDENSITY_CHUNK_PAUSE: %w", err)
		}
		c.StopCount.ChunkPause = Duration{pause}
	}

	return nil
}

// GolemioClient builds the API client, preferring an inline token over the key file
func (c *Config) GolemioClient() (*golemio.Client, error) {
	token := c.Golemio.Token
	if token == "" {
		var err error
		token, err = golemio.LoadAccessToken(c.Golemio.TokenFile)
		if err != nil {
			return nil, err
		}
	}

	return golemio.NewClient(golemio.Config{
		BaseURL:     c.Golemio.BaseURL,
		AccessToken: token,
		PageSize:    c.Golemio.PageSize,
		UserAgent:   c.Golemio.UserAgent,
		MaxRetries:  c.Golemio.MaxRetries,
	}), nil
}
