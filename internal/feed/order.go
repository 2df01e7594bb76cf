package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the display form of an order date (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// Order is one record of the order feed, with its date already normalized.
type Order struct {
	InvoiceNumber string `json:"numeroFactura,omitempty"`
	CustomerName  string `json:"nombre,omitempty"`
	TableLabel    string `json:"mesa,omitempty"`
	DeliveryType  string `json:"tipoEntrega,omitempty"`
	Products      string `json:"productos,omitempty"`
	Observations  string `json:"observaciones,omitempty"`
	OrderTime     string `json:"hora,omitempty"`
	OrderDate     string `json:"fecha,omitempty"`
}

type wireOrder struct {
	InvoiceNumber json.RawMessage `json:"numeroFactura"`
	CustomerName  json.RawMessage `json:"nombre"`
	TableLabel    json.RawMessage `json:"mesa"`
	DeliveryType  json.RawMessage `json:"tipoEntrega"`
	Products      json.RawMessage `json:"productos"`
	Observations  json.RawMessage `json:"observaciones"`
	OrderTime     json.RawMessage `json:"hora"`
	OrderDate     json.RawMessage `json:"fecha"`
}

// DecodeOrders parses a feed body (a JSON array of orders) and normalizes
// every order date using loc.
func DecodeOrders(body []byte, loc *time.Location) ([]Order, error) {
	var wire []wireOrder
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedMalformed, err)
	}

	orders := make([]Order, 0, len(wire))
	for _, w := range wire {
		orders = append(orders, Order{
			InvoiceNumber: text(w.InvoiceNumber),
			CustomerName:  text(w.CustomerName),
			TableLabel:    text(w.TableLabel),
			DeliveryType:  text(w.DeliveryType),
			Products:      text(w.Products),
			Observations:  text(w.Observations),
			OrderTime:     text(w.OrderTime),
			OrderDate:     NormalizeDate(w.OrderDate, loc),
		})
	}
	return orders, nil
}

// NormalizeDate turns a raw fecha value into its display form.
// Text values are returned untouched, so normalizing twice is a no-op.
// Numbers are epoch milliseconds and are rendered with the calendar fields
// of that instant in loc. Zero and anything else yield "".
func NormalizeDate(raw json.RawMessage, loc *time.Location) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || ms == 0 {
			return ""
		}
		if loc == nil {
			loc = time.Local
		}
		return time.UnixMilli(int64(ms)).In(loc).Format(DateLayout)
	default:
		return ""
	}
}

// text renders a scalar JSON value the way it reads on a card.
// null, false, zero, objects and arrays are treated as absent.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't':
		return string(raw)
	case 'f', 'n', '{', '[':
		return ""
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return string(raw)
		}
		if f == 0 {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
