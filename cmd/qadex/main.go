package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/qadex/internal/config"
	"github.com/kailas-cloud/qadex/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "qadex",
		Usage:   "Hybrid question/answer retrieval with entity scoping",
		Version: fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Configuration environment (config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "dotenv",
				Usage: "Path to a .env file loaded before the configuration",
				Value: ".env",
			},
		},
		Before: loadDotenv,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
			},
			{
				Name:   "index",
				Usage:  "Embed the corpus and write it to the search index",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "corpus",
						Aliases: []string{"c"},
						Usage:   "Corpus YAML file (default: indexing.corpus_path)",
					},
					&cli.BoolFlag{
						Name:  "recreate",
						Usage: "Drop the existing index and its documents first",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Documents per embedding batch (default: indexing.batch_size)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Parallel batches (default: indexing.workers)",
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve text to a catalog entity",
				ArgsUsage: "<text>",
				Action:    resolveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Entity catalog YAML file (default: resolver.catalog_path)",
					},
				},
			},
			{
				Name:   "eval",
				Usage:  "Evaluate retrieval and entity recognition quality and write the CSV reports",
				Action: evalCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dataset",
						Aliases: []string{"d"},
						Usage:   "Evaluation dataset YAML file (default: evaluation.dataset_path)",
					},
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "CSV report merged with existing rows (default: evaluation.report_path)",
					},
					&cli.IntFlag{
						Name:  "budget",
						Usage: "Retrieval budget per case (default: retrieval.budget)",
					},
					&cli.StringFlag{
						Name:  "recognition-dataset",
						Usage: "Entity recognition dataset YAML file (default: evaluation.recognition_dataset_path)",
					},
					&cli.StringFlag{
						Name:  "recognition-report",
						Usage: "Recognition CSV report merged by method, metric, version and day",
					},
					&cli.StringFlag{
						Name:  "dataset-version",
						Usage: "Dataset version recorded in the recognition report (default: evaluation.dataset_version)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "qadex:", err)
		os.Exit(1)
	}
}

// loadDotenv loads the .env file if present; a missing file is not an error.
func loadDotenv(c *cli.Context) error {
	if err := godotenv.Load(c.String("dotenv")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.String("dotenv"), err)
	}
	if env := c.String("env"); env != "" && os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", env)
	}
	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return config.Config{}, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}
