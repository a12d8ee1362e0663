package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/aqclab/ventana/experiment"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire all configured chunks.",
	Long: "`run` builds the experiment from the config file, the " +
		"environment, and the flags, then acquires and persists every chunk.",
	Run: func(cmd *cobra.Command, _ []string) {
		configPath, _ := cmd.Flags().GetString("config")
		openPage, _ := cmd.Flags().GetBool("open")
		traceRTIO, _ := cmd.Flags().GetBool("trace-rtio")
		verbose, _ := cmd.Flags().GetBool("verbose")

		logger := newLogger(verbose)

		// A .env file is optional.
		_ = godotenv.Load()

		cfg, err := experiment.LoadConfig(configPath)
		if err != nil {
			logger.Error().Err(err).Msg("loading config")
			atexit.Exit(1)
		}

		b := experiment.MakeBuilder().
			WithConfig(cfg).
			WithLogger(logger)
		if traceRTIO {
			b = b.WithOpTracing(stdlog.New(os.Stderr, "rtio ", 0))
		}

		exp, err := b.Build()
		if err != nil {
			logger.Error().Err(err).Msg("building experiment")
			atexit.Exit(1)
		}

		if openPage && exp.Monitor() != nil {
			url := fmt.Sprintf("http://localhost:%d", exp.Monitor().Port())
			if err := browser.OpenURL(url); err != nil {
				logger.Warn().Err(err).Str("url", url).
					Msg("opening monitor page")
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := exp.Run(ctx)
		exp.Terminate()

		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn().
				Int("chunks", sum.Chunks).
				Msg("run stopped early; persisted chunks are intact")
		case err != nil:
			logger.Error().Err(err).
				Int("chunks", sum.Chunks).
				Msg("run failed")
			atexit.Exit(1)
		default:
			logger.Info().
				Int("chunks", sum.Chunks).
				Int("attempts", sum.Attempts).
				Int("detections", sum.Detections).
				Int("follow_ups", sum.FollowUps).
				Msg("run finished")
		}
	},
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("config", "", "Path to the run config YAML")
	runCmd.Flags().Bool("open", false, "Open the monitor page in a browser")
	runCmd.Flags().Bool("trace-rtio", false,
		"Print every executed timed operation to stderr")
}
