package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/config"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/metrics"
)

var (
	runArgs   actionArgs
	showTrace bool
)

var runCmd = &cobra.Command{
	Use:       "run <action>",
	Short:     "Run one action and print the dispatcher state",
	Args:      cobra.ExactArgs(1),
	ValidArgs: actionNames,
	RunE:      runAction,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runArgs.Recipient, "to", "", "greeting recipient")
	f.StringVar(&runArgs.Query, "query", "", "restaurant search query")
	f.IntVar(&runArgs.MinResults, "min", 5, "minimum restaurants wanted")
	f.BoolVar(&runArgs.Vegetarian, "vegetarian", false, "only vegetarian-friendly restaurants")
	f.StringVar(&runArgs.Filter, "filter", "", "restaurant filter expression, e.g. \"vegetarian_options >= 3\"")
	f.StringSliceVar(&runArgs.Calendars, "calendars", nil, "calendar ids to read (default all)")
	f.BoolVar(&showTrace, "trace", false, "print the debug trace")
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if metricsAddr != "" {
		cfg.Metrics.Listen = metricsAddr
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.New("main").Errorf("dispatcher close: %v", err)
		}
	}()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Listen, a.registry, logger.New("metrics")); err != nil {
				logger.New("main").Errorf("metrics server: %v", err)
			}
		}()
	}

	action, err := a.buildAction(args[0], runArgs)
	if err != nil {
		return err
	}
	// The outcome is reported through the dispatcher state below.
	_ = a.dispatcher.Submit(ctx, action)

	printState(cmd.OutOrStdout(), a.dispatcher.State(), showTrace)
	if a.dispatcher.ErrorMessage() != nil {
		return fmt.Errorf("%s did not complete", action.ID())
	}
	return nil
}

func printState(w io.Writer, s assist.DispatcherState, trace bool) {
	if s.CurrentStyleHint != nil {
		fmt.Fprintf(w, "style: %s\n", *s.CurrentStyleHint)
	}
	if s.ErrorMessage != nil {
		fmt.Fprintf(w, "error: %s\n", *s.ErrorMessage)
		return
	}
	fmt.Fprintln(w, s.LastOutput)
	if trace && s.DebugLog != "" {
		fmt.Fprintf(w, "\n---\n%s", s.DebugLog)
	}
}
