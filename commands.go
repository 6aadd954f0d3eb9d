package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"order_sheets_sync/internal/app"
	"order_sheets_sync/internal/records"
	"order_sheets_sync/internal/syncer"
	"order_sheets_sync/internal/webhook"
)

var (
	flagConcurrency int
	flagOut         string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept webhooks and sync the referenced order",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync <order-id>...",
	Short: "Sync orders into the spreadsheet",
	Long: `Sync runs one pass per order ID and prints the outcome of each as JSON.
Passes are independent; one failing order does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSync,
}

var exportCmd = &cobra.Command{
	Use:   "export <order-id>...",
	Short: "Write orders into a local .xlsx workbook",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

var seedCmd = &cobra.Command{
	Use:   "seed <orders.json>",
	Short: "Load orders from a JSON listing into the SQLite record store",
	Long: `Seed reads a JSON array of orders with embedded purchases, in the same
shape the REST endpoint returns, and replaces those orders in the database at
RECORDS_SQLITE_PATH.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	syncCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "passes in flight (default: SYNC_CONCURRENCY)")
	exportCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "passes in flight (default: SYNC_CONCURRENCY)")
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "orders.xlsx", "workbook path")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dest, err := app.NewSheetsDestination(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, dest)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier := app.InitializeNotificationClient(cfg)
	defer notifier.Wait()

	handler := webhook.NewHandler(a.Syncer,
		webhook.WithSecret(cfg.WebhookSecret),
		webhook.WithTimeout(cfg.SyncTimeout),
		webhook.WithNotifier(notifier),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Listening for webhooks")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}

func runSync(cmd *cobra.Command, args []string) error {
	dest, err := app.NewSheetsDestination(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, dest)
	if err != nil {
		return err
	}
	defer a.Close()

	return report(cmd, a.Syncer.SyncMany(cmd.Context(), args, concurrency()))
}

func runExport(cmd *cobra.Command, args []string) error {
	wb, err := app.NewWorkbookDestination(cfg, flagOut)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, wb)
	if err != nil {
		return err
	}
	a.OnClose(wb.Close)

	outcomes := a.Syncer.SyncMany(cmd.Context(), args, concurrency())
	if err := a.Close(); err != nil {
		return err
	}
	return report(cmd, outcomes)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if !cfg.UsesSQLite() {
		return fmt.Errorf("seed needs RECORDS_SQLITE_PATH")
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	listing, err := records.DecodeOrders(body)
	if err != nil {
		return err
	}

	db, err := records.OpenSQLite(cfg.RecordsSQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, order := range listing {
		if err := db.SaveOrder(cmd.Context(), order); err != nil {
			return err
		}
	}
	log.Info().Int("orders", len(listing)).Str("path", cfg.RecordsSQLitePath).Msg("Seeded record store")
	return nil
}

func concurrency() int {
	if flagConcurrency > 0 {
		return flagConcurrency
	}
	return cfg.SyncConcurrency
}

type outcomeJSON struct {
	Key    string         `json:"key"`
	Result *syncer.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func report(cmd *cobra.Command, outcomes []syncer.Outcome) error {
	failed := 0
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, o := range outcomes {
		line := outcomeJSON{Key: o.Key}
		if o.Err != nil {
			failed++
			line.Error = o.Err.Error()
		} else {
			result := o.Result
			line.Result = &result
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d orders failed to sync", failed, len(outcomes))
	}
	return nil
}
