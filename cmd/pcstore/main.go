// pcstore inspects and serves product component repositories
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/faktorips/faktorips.base-sub009/internal/config"
	"github.com/faktorips/faktorips.base-sub009/internal/logger"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "pcstore",
		Usage: "Product component runtime repositories",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML configuration file",
				EnvVars:  []string{"PCSTORE_CONFIG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "Print the table of contents of repositories",
				ArgsUsage: "[repository...]",
				Action:    inspectCommand,
			},
			{
				Name:   "get",
				Usage:  "Look up one object and print it as YAML",
				Action: getCommand,
				Flags: []cli.Flag{
					repositoryFlag(),
					&cli.StringFlag{
						Name:    "category",
						Aliases: []string{"t"},
						Usage:   "Object category",
						Value:   "ProductComponent",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Object id; the enum type for EnumContent",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Product component kind, used with --version instead of --id",
					},
					&cli.StringFlag{
						Name:  "version",
						Usage: "Product component version, used with --kind",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Return the generation effective on this date (YYYY-MM-DD or RFC 3339)",
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Copy resources from a directory into a badger-backed repository",
				Action: importCommand,
				Flags: []cli.Flag{
					repositoryFlag(),
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Directory holding the resources",
						Required: true,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Keep repositories current and serve metrics, health and readiness",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address; overrides metrics.addr",
					},
					&cli.BoolFlag{
						Name:  "preload",
						Usage: "Warm all caches before serving; overrides preload.enabled",
					},
				},
			},
		},
	}
}

func repositoryFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "repository",
		Aliases:  []string{"r"},
		Usage:    "Name of a configured repository",
		Required: true,
	}
}

// setup loads the configuration and the logger for every command
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	logger.InitGlobalLogger(logger.Config{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		Output:     c.App.ErrWriter,
		WithCaller: cfg.Log.Caller,
	})
	log := logger.GetGlobalLogger().WithFields(map[string]interface{}{
		"command": c.Args().First(),
	})

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = log
	return nil
}

func configFrom(c *cli.Context) (*config.Config, *logger.Logger) {
	return c.App.Metadata[metaConfig].(*config.Config), c.App.Metadata[metaLogger].(*logger.Logger)
}
