package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/appetiteclub/cocina/internal/app"
	"github.com/appetiteclub/cocina/internal/config"
	"github.com/appetiteclub/cocina/internal/filters"
	"github.com/aquamarinepk/aqm"
)

// ShowFilters prints the persisted delivery type selection.
func ShowFilters(ctx context.Context, settings config.Settings, logger aqm.Logger, w io.Writer) error {
	return withFilterStore(ctx, settings, logger, func(store *filters.Store) error {
		state, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load filter state: %w", err)
		}

		out, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%s):\n%s\n", filters.StorageKey, settings.StoreDriver, out)
		return nil
	})
}

// ResetFilters stores the default selection, every delivery type checked.
func ResetFilters(ctx context.Context, settings config.Settings, logger aqm.Logger) error {
	return withFilterStore(ctx, settings, logger, func(store *filters.Store) error {
		if err := store.Save(ctx); err != nil {
			return fmt.Errorf("save filter state: %w", err)
		}
		logger.Info("filter state reset", "driver", settings.StoreDriver)
		return nil
	})
}

func withFilterStore(ctx context.Context, settings config.Settings, logger aqm.Logger, fn func(*filters.Store) error) error {
	prefs, lifecycle, err := app.NewPreferenceStore(settings, logger)
	if err != nil {
		return err
	}
	if lifecycle != nil {
		if err := lifecycle.Start(ctx); err != nil {
			return fmt.Errorf("open %s store: %w", settings.StoreDriver, err)
		}
		defer lifecycle.Stop(ctx)
	}

	return fn(filters.NewStore(prefs, logger))
}
