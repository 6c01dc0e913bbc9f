package config

import (
	"github.com/urfave/cli/v2"
)

// Flags are registered on the root command and read from any subcommand
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "directory holding the downloaded and aggregated JSON files",
		},
	}
}

func FromCLI(c *cli.Context) (Config, error) {
	config, err := Load(c.String("config"))
	if err != nil {
		return config, err
	}

	if dataDirectory := c.String("data-dir"); dataDirectory != "" {
		config.DataDirectory = dataDirectory
	}

	return config, nil
}
