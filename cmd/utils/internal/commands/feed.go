package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/cocina/internal/config"
	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/kitchen"
	"github.com/aquamarinepk/aqm"
)

// CheckFeed resolves the descriptor, polls the order feed once and prints
// what the display would show for today with every delivery type checked.
func CheckFeed(ctx context.Context, settings config.Settings, logger aqm.Logger, w io.Writer) error {
	client := &http.Client{Timeout: settings.FeedTimeout}

	endpoint, err := feed.LoadEndpoint(ctx, client, settings.Descriptor)
	if err != nil {
		return err
	}

	poller := feed.NewPoller(feed.PollerConfig{
		Descriptor: settings.Descriptor,
		Location:   settings.Location,
		Client:     client,
	}, logger)
	poller.SetEndpoint(endpoint)

	if err := poller.Poll(ctx); err != nil {
		return err
	}
	snap := poller.Snapshot()

	today := time.Now().In(settings.Location).Format("2006-01-02")
	res := kitchen.Apply(snap.Orders, today, kitchen.Categories)

	fmt.Fprintf(w, "endpoint:    %s\n", endpoint)
	fmt.Fprintf(w, "fingerprint: %s\n", snap.Fingerprint)
	fmt.Fprintf(w, "orders:      %d\n", len(snap.Orders))
	fmt.Fprintf(w, "today %s: recoger=%d mesa=%d domicilio=%d total=%d\n",
		res.Date, res.Counts.Pickup, res.Counts.Table, res.Counts.HomeDelivery, res.Counts.Total)
	return nil
}
