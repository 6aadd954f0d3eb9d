package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"order_sheets_sync/internal/config"
	"order_sheets_sync/internal/notifications"
	"order_sheets_sync/internal/records"
	"order_sheets_sync/internal/render"
	"order_sheets_sync/internal/sheets"
	"order_sheets_sync/internal/storage"
	"order_sheets_sync/internal/syncer"
	"order_sheets_sync/internal/xlsx"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	case "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		level, parseErr := zerolog.ParseLevel(levelStr)
		if parseErr != nil {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
			break
		}
		zerolog.SetGlobalLevel(level)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// NewRecordSource opens the local database when one is configured and
// otherwise talks to the REST endpoint.
func NewRecordSource(cfg *config.Config) (records.Source, func() error, error) {
	if cfg.UsesSQLite() {
		db, err := records.OpenSQLite(cfg.RecordsSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", cfg.RecordsSQLitePath).Msg("Using SQLite record source")
		return db, db.Close, nil
	}
	log.Debug().Str("url", cfg.SupabaseURL).Msg("Using REST record source")
	return records.NewREST(cfg.SupabaseURL, cfg.SupabaseServiceKey), func() error { return nil }, nil
}

// NewBuilder renders grids with the configured image mode and labels.
func NewBuilder(cfg *config.Config) render.Builder {
	return render.Builder{
		Images:     storage.NewImageBucket(cfg.StorageBaseURL),
		Mode:       cfg.ImageMode,
		TrueLabel:  cfg.TrueLabel,
		FalseLabel: cfg.FalseLabel,
	}
}

func SyncOptions(cfg *config.Config) syncer.Options {
	return syncer.Options{
		Format:          cfg.FormatEnabled,
		ClearStale:      cfg.ClearStaleCells,
		DedupeTabCreate: cfg.DedupeTabCreate,
	}
}

// NewSheetsDestination authenticates with the service account and targets
// the configured spreadsheet.
func NewSheetsDestination(ctx context.Context, cfg *config.Config) (*sheets.Destination, error) {
	if err := cfg.RequireSpreadsheet(); err != nil {
		return nil, err
	}

	creds := []byte(cfg.CredentialsJSON)
	if len(creds) == 0 {
		var err error
		creds, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	client, err := sheets.NewClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("spreadsheet_id", cfg.SpreadsheetID).Msg("Sheets client initialized")
	return sheets.NewDestination(client, cfg.SpreadsheetID, render.DefaultLayout(cfg.PickupPoints), cfg.ImageMode), nil
}

// NewWorkbookDestination opens or creates the workbook at path.
func NewWorkbookDestination(cfg *config.Config, path string) (*xlsx.Workbook, error) {
	return xlsx.Open(path, render.DefaultLayout(cfg.PickupPoints), cfg.ImageMode)
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient(cfg *config.Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Ntfy.Enabled).
		Str("base_url", cfg.Ntfy.URL).
		Str("topic", cfg.Ntfy.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(cfg.Ntfy.URL, cfg.Ntfy.Topic, cfg.Ntfy.Enabled, cfg.Ntfy.Priority, cfg.Resilience.Notify)

	if cfg.Ntfy.Enabled {
		log.Info().Str("topic", cfg.Ntfy.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}
	return client
}
