package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/config"
	"github.com/cybersectk/cstk/internal/journal"
)

// loadConfigOnly loads the config for commands that never touch the backend.
func loadConfigOnly() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadClient loads the config and builds the backend API client.
func loadClient() (*config.Config, *api.Client, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	client, err := api.New(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// openJournal opens the submission journal and applies migrations.
func openJournal(ctx context.Context, cfg *config.Config) (journal.DB, error) {
	db, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// renderStructured prints v as JSON or YAML. Callers handle "table"
// themselves before reaching here.
func renderStructured(format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q (valid: table, json, yaml)", format)
	}
}

// parseSetFlags turns repeated --set key=value flags into a job config map.
// Values that parse as JSON (numbers, booleans, arrays) keep their type;
// everything else stays a string.
func parseSetFlags(pairs []string) (map[string]any, error) {
	cfg := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		var typed any
		if err := json.Unmarshal([]byte(val), &typed); err == nil {
			cfg[key] = typed
		} else {
			cfg[key] = val
		}
	}
	return cfg, nil
}
