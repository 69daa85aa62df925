// Command notion-book-sync fills empty fields of a Notion book database with
// data from Open Library.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

func init() {
	logger.Setup(logger.Config{
		Level:      "info",
		Format:     logger.FormatConsole,
		TimeFormat: time.RFC3339,
	})
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "notion-book-sync",
		Usage:   "Complete book pages in Notion from Open Library",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log the patches without writing them to Notion",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "complete",
				Usage: "Complete one page, or every page of the configured database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "page-id",
						Usage: "Complete only the page with this `ID`",
					},
				},
				Action: completeAction,
			},
			{
				Name:  "history",
				Usage: "Show the results of recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to list",
						Value: 5,
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show the record results of the run with this `ID` (default: latest)",
					},
				},
				Action: historyAction,
			},
		},
	}
}
