// Package config loads process settings from the environment and an
// optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"order_sheets_sync/internal/render"
)

const (
	keySpreadsheetID      = "spreadsheet_id"
	keyCredentialsFile    = "google_credentials_file"
	keyCredentialsJSON    = "google_credentials_json"
	keyStorageBaseURL     = "storage_base_url"
	keySupabaseURL        = "supabase_url"
	keySupabaseServiceKey = "supabase_service_key"
	keyRecordsSQLitePath  = "records_sqlite_path"
	keyImageMode          = "image_mode"
	keyFormatEnabled      = "format_enabled"
	keyClearStaleCells    = "clear_stale_cells"
	keyDedupeTabCreate    = "dedupe_tab_create"
	keyPickupPoints       = "pickup_points"
	keyTrueLabel          = "bool_true_label"
	keyFalseLabel         = "bool_false_label"
	keyListenAddr         = "listen_addr"
	keyWebhookSecret      = "webhook_secret"
	keySyncTimeout        = "sync_timeout"
	keySyncConcurrency    = "sync_concurrency"
	keyNtfyEnabled        = "ntfy_enabled"
	keyNtfyURL            = "ntfy_url"
	keyNtfyTopic          = "ntfy_topic"
	keyNtfyPriority       = "ntfy_priority"
)

var defaults = map[string]any{
	keyCredentialsFile: "credentials.json",
	keyImageMode:       string(render.ImageFormula),
	keyFormatEnabled:   true,
	keyClearStaleCells: false,
	keyDedupeTabCreate: false,
	keyPickupPoints:    "",
	keyTrueLabel:       "Yes",
	keyFalseLabel:      "No",
	keyListenAddr:      ":8080",
	keySyncTimeout:     "60s",
	keySyncConcurrency: 4,
	keyNtfyEnabled:     false,
	keyNtfyURL:         "https://ntfy.sh",
	keyNtfyTopic:       "order-sheets-sync",
	keyNtfyPriority:    "",

	keySpreadsheetID:      "",
	keyCredentialsJSON:    "",
	keyStorageBaseURL:     "",
	keySupabaseURL:        "",
	keySupabaseServiceKey: "",
	keyRecordsSQLitePath:  "",
	keyWebhookSecret:      "",
}

type NtfyConfig struct {
	Enabled  bool
	URL      string
	Topic    string
	Priority string
}

// Config is read once at startup and not modified afterwards.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string

	StorageBaseURL     string
	SupabaseURL        string
	SupabaseServiceKey string
	RecordsSQLitePath  string

	ImageMode       render.ImageMode
	FormatEnabled   bool
	ClearStaleCells bool
	DedupeTabCreate bool
	PickupPoints    []string
	TrueLabel       string
	FalseLabel      string

	ListenAddr      string
	WebhookSecret   string
	SyncTimeout     time.Duration
	SyncConcurrency int

	Ntfy       NtfyConfig
	Resilience ResilienceConfig
}

// Load reads configFile when given, otherwise config.yaml in the working
// directory if present. Environment variables override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	mode, ok := render.ParseImageMode(v.GetString(keyImageMode))
	if !ok {
		return nil, fmt.Errorf("invalid IMAGE_MODE %q: want formula or url", v.GetString(keyImageMode))
	}
	timeout, err := time.ParseDuration(v.GetString(keySyncTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(keySyncTimeout), err)
	}

	cfg := &Config{
		SpreadsheetID:      strings.TrimSpace(v.GetString(keySpreadsheetID)),
		CredentialsFile:    v.GetString(keyCredentialsFile),
		CredentialsJSON:    v.GetString(keyCredentialsJSON),
		StorageBaseURL:     strings.TrimSpace(v.GetString(keyStorageBaseURL)),
		SupabaseURL:        strings.TrimSpace(v.GetString(keySupabaseURL)),
		SupabaseServiceKey: v.GetString(keySupabaseServiceKey),
		RecordsSQLitePath:  v.GetString(keyRecordsSQLitePath),
		ImageMode:          mode,
		FormatEnabled:      v.GetBool(keyFormatEnabled),
		ClearStaleCells:    v.GetBool(keyClearStaleCells),
		DedupeTabCreate:    v.GetBool(keyDedupeTabCreate),
		PickupPoints:       splitList(v.Get(keyPickupPoints)),
		TrueLabel:          v.GetString(keyTrueLabel),
		FalseLabel:         v.GetString(keyFalseLabel),
		ListenAddr:         v.GetString(keyListenAddr),
		WebhookSecret:      v.GetString(keyWebhookSecret),
		SyncTimeout:        timeout,
		SyncConcurrency:    v.GetInt(keySyncConcurrency),
		Ntfy: NtfyConfig{
			Enabled:  v.GetBool(keyNtfyEnabled),
			URL:      v.GetString(keyNtfyURL),
			Topic:    v.GetString(keyNtfyTopic),
			Priority: v.GetString(keyNtfyPriority),
		},
		Resilience: DefaultResilienceConfig,
	}
	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = cfg.SupabaseURL
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	return cfg, nil
}

// Warnings lists settings that are valid but probably not intended.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.FormatEnabled && len(c.PickupPoints) == 0 {
		warnings = append(warnings, "PICKUP_POINTS is empty; formatted tabs get no pickup point drop-down")
	}
	return warnings
}

func (c *Config) validate() error {
	var errs []error
	if c.SupabaseURL == "" && c.RecordsSQLitePath == "" {
		errs = append(errs, fmt.Errorf("one of SUPABASE_URL or RECORDS_SQLITE_PATH is required"))
	}
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		errs = append(errs, fmt.Errorf("SUPABASE_SERVICE_KEY is required with SUPABASE_URL"))
	}
	if c.SyncTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SYNC_TIMEOUT must be positive"))
	}
	if c.SyncConcurrency < 1 {
		errs = append(errs, fmt.Errorf("SYNC_CONCURRENCY must be at least 1"))
	}
	if c.Ntfy.Enabled && c.Ntfy.Topic == "" {
		errs = append(errs, fmt.Errorf("NTFY_TOPIC is required when notifications are enabled"))
	}
	return errors.Join(errs...)
}

// RequireSpreadsheet reports whether the Google destination can be built.
func (c *Config) RequireSpreadsheet() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID is required")
	}
	if c.CredentialsJSON == "" && c.CredentialsFile == "" {
		return fmt.Errorf("one of GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE is required")
	}
	return nil
}

// UsesSQLite reports whether records come from the local database instead
// of the REST endpoint.
func (c *Config) UsesSQLite() bool {
	return c.RecordsSQLitePath != ""
}

func splitList(value any) []string {
	var parts []string
	switch v := value.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
