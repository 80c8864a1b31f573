package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/service"
	"github.com/punchamoorthee/paygate/internal/store"
)

var Version = "dev"

// journal is the subset of the bolt and Postgres journals the CLI uses.
type journal interface {
	Record(ctx context.Context, s store.Snapshot) error
	History(ctx context.Context, paymentID string) ([]store.Snapshot, error)
}

// app holds what the subcommands share. It is filled in before any
// subcommand runs.
type app struct {
	cfg     *config.Config
	client  *service.Client
	journal journal
	closers []func()
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := []service.Option{
		service.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}
	// A local bolt file wins over DB_SOURCE.
	switch {
	case cfg.JournalPath != "":
		j, err := store.OpenBolt(cfg.JournalPath)
		if err != nil {
			return err
		}
		a.journal = j
		a.closers = append(a.closers, func() { j.Close() })
	case cfg.DBSource != "":
		j, err := store.NewPostgresJournal(cfg.DBSource)
		if err != nil {
			return err
		}
		if err := j.EnsureSchema(cmd.Context()); err != nil {
			j.Close()
			return err
		}
		a.journal = j
		a.closers = append(a.closers, j.Close)
	}
	if a.journal != nil {
		opts = append(opts, service.WithJournal(a.journal))
	}
	a.client = service.New(cfg, opts...)
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	for _, c := range a.closers {
		c()
	}
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:                "paycli",
		Short:              "paycli - payment gateway command line client",
		Version:            Version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}

	rootCmd.AddCommand(typeCmd(a))
	rootCmd.AddCommand(customerCmd(a))
	rootCmd.AddCommand(chargeCmd(a))
	rootCmd.AddCommand(authorizeCmd(a))
	rootCmd.AddCommand(captureCmd(a))
	rootCmd.AddCommand(cancelCmd(a))
	rootCmd.AddCommand(shipCmd(a))
	rootCmd.AddCommand(paymentCmd(a))
	rootCmd.AddCommand(historyCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
