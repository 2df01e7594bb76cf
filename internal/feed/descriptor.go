package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var (
	ErrDescriptorUnreachable = errors.New("feed descriptor unreachable")
	ErrDescriptorMalformed   = errors.New("feed descriptor malformed")
)

// descriptor mirrors the part of config.json the display needs.
type descriptor struct {
	APIURLs struct {
		OrderFeed string `json:"reciboBaseDatos"`
	} `json:"apiUrls"`
}

// LoadEndpoint reads the feed descriptor at location and returns the order
// feed URL. location is either an http(s) URL or a local file path.
// No default endpoint is ever substituted.
func LoadEndpoint(ctx context.Context, client *http.Client, location string) (string, error) {
	var (
		raw []byte
		err error
	)

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		raw, err = fetchDescriptor(ctx, client, location)
	} else {
		raw, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrDescriptorUnreachable, err)
		}
	}
	if err != nil {
		return "", err
	}

	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDescriptorMalformed, err)
	}

	endpoint := strings.TrimSpace(d.APIURLs.OrderFeed)
	if endpoint == "" {
		return "", fmt.Errorf("%w: apiUrls.reciboBaseDatos is empty", ErrDescriptorMalformed)
	}

	return endpoint, nil
}

func fetchDescriptor(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorUnreachable, err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDescriptorUnreachable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorUnreachable, err)
	}
	return raw, nil
}
