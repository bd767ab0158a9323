package main

import (
	"fmt"

	"github.com/randalmurphal/mcusim/pkg/mcusim/config"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

// openStore returns the configured report store, or nil for "none".
func openStore(cfg config.StoreSettings) (report.Store, error) {
	switch cfg.Driver {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreMemory:
		return report.NewMemoryStore(), nil
	case config.StoreSQLite:
		store, err := report.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
