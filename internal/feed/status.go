package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aquamarinepk/aqm"
)

var ErrServerUnreachable = errors.New("no se pudo comunicar con el servidor")

// RejectedError is returned when the feed answers a status update with ok=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "status update rejected: " + e.Message
}

// EndpointSource provides the feed URL resolved at startup.
type EndpointSource interface {
	Endpoint() string
}

type statusRequest struct {
	Action        string `json:"accion"`
	InvoiceNumber string `json:"numeroFactura"`
	Type          string `json:"tipo"`
}

type statusResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatusClient sends order status updates to the feed endpoint. It never
// touches local state; the next poll reflects the change.
type StatusClient struct {
	client   *http.Client
	endpoint EndpointSource
	logger   aqm.Logger
}

func NewStatusClient(client *http.Client, endpoint EndpointSource, logger aqm.Logger) *StatusClient {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &StatusClient{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

func (c *StatusClient) Update(ctx context.Context, invoiceNumber, tipo string) error {
	endpoint := ""
	if c.endpoint != nil {
		endpoint = c.endpoint.Endpoint()
	}
	if endpoint == "" {
		return ErrNoEndpoint
	}

	payload, err := json.Marshal(statusRequest{
		Action:        "actualizar",
		InvoiceNumber: invoiceNumber,
		Type:          tipo,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("status update request failed", "invoice", invoiceNumber, "error", err)
		return fmt.Errorf("%w: %w", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	var out statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodyBytes)).Decode(&out); err != nil {
		c.logger.Error("cannot decode status update response", "invoice", invoiceNumber, "status", resp.StatusCode, "error", err)
		return fmt.Errorf("%w: %w", ErrServerUnreachable, err)
	}

	if !out.OK {
		msg := out.Error
		if msg == "" {
			msg = "Desconocido"
		}
		c.logger.Info("status update rejected", "invoice", invoiceNumber, "tipo", tipo, "error", msg)
		return &RejectedError{Message: msg}
	}

	c.logger.Info("status update sent", "invoice", invoiceNumber, "tipo", tipo)
	return nil
}
