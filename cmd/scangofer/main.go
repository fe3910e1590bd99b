package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("scangofer failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scangofer",
		Usage: "rate-limited, cached BscScan client and payment gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to JSON config file (defaults are used when empty)",
				EnvVars: []string{"SCANGOFER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file with API keys",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error; overrides the config",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			balanceCommand(),
			txsCommand(),
			tokentxCommand(),
			depositsCommand(),
			accessCommand(),
			authCommand(),
			plansCommand(),
		},
	}
}

// setupLogger configures the zerolog logger. Output goes to stderr so that command
// results on stdout stay machine readable.
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
