package feed

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeDate(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	instant := time.Date(2025, time.October, 16, 22, 30, 0, 0, bogota)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want string
	}{
		{
			name: "textIsUntouched",
			raw:  `"16/10/2025"`,
			loc:  bogota,
			want: "16/10/2025",
		},
		{
			name: "isoTextIsUntouched",
			raw:  `"2025-10-16T05:00:00.000Z"`,
			loc:  bogota,
			want: "2025-10-16T05:00:00.000Z",
		},
		{
			name: "epochMillisUsesLocalCalendar",
			raw:  jsonNumber(instant.UnixMilli()),
			loc:  bogota,
			want: "16/10/2025",
		},
		{
			name: "epochMillisInOtherZoneRollsOver",
			raw:  jsonNumber(instant.UnixMilli()),
			loc:  time.UTC,
			want: "17/10/2025",
		},
		{
			name: "singleDigitDayAndMonthArePadded",
			raw:  jsonNumber(time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC).UnixMilli()),
			loc:  time.UTC,
			want: "05/03/2026",
		},
		{
			name: "null",
			raw:  `null`,
			loc:  bogota,
			want: "",
		},
		{
			name: "absent",
			raw:  ``,
			loc:  bogota,
			want: "",
		},
		{
			name: "object",
			raw:  `{"y":2025}`,
			loc:  bogota,
			want: "",
		},
		{
			name: "zero",
			raw:  `0`,
			loc:  bogota,
			want: "",
		},
		{
			name: "false",
			raw:  `false`,
			loc:  bogota,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(json.RawMessage(tt.raw), tt.loc)
			if got != tt.want {
				t.Errorf("NormalizeDate(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeDateIsIdempotent(t *testing.T) {
	loc := time.UTC
	first := NormalizeDate(json.RawMessage(jsonNumber(time.Date(2025, 1, 2, 0, 0, 0, 0, loc).UnixMilli())), loc)

	raw, _ := json.Marshal(first)
	second := NormalizeDate(raw, loc)

	if first != second {
		t.Errorf("normalizing twice changed the value: %q then %q", first, second)
	}
}

func TestDecodeOrders(t *testing.T) {
	body := []byte(`[
		{"numeroFactura": 102, "nombre": "Ana", "mesa": "4", "tipoEntrega": "Mesa 4",
		 "productos": "x2 Soda\nFries", "observaciones": "sin hielo", "hora": "12:01:00",
		 "fecha": "16/10/2025"},
		{"numeroFactura": null, "tipoEntrega": "Domicilio", "fecha": 1760590800000}
	]`)

	orders, err := DecodeOrders(body, time.UTC)
	if err != nil {
		t.Fatalf("DecodeOrders() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("len(orders) = %d, want 2", len(orders))
	}

	first := orders[0]
	if first.InvoiceNumber != "102" {
		t.Errorf("InvoiceNumber = %q, want %q", first.InvoiceNumber, "102")
	}
	if first.TableLabel != "4" {
		t.Errorf("TableLabel = %q, want %q", first.TableLabel, "4")
	}
	if first.Products != "x2 Soda\nFries" {
		t.Errorf("Products = %q", first.Products)
	}
	if first.OrderDate != "16/10/2025" {
		t.Errorf("OrderDate = %q, want %q", first.OrderDate, "16/10/2025")
	}

	second := orders[1]
	if second.InvoiceNumber != "" {
		t.Errorf("InvoiceNumber = %q, want empty", second.InvoiceNumber)
	}
	if second.OrderDate != "16/10/2025" {
		t.Errorf("OrderDate = %q, want %q", second.OrderDate, "16/10/2025")
	}
}

func TestDecodeOrdersFalsyFieldsAreAbsent(t *testing.T) {
	body := []byte(`[{"numeroFactura":0,"nombre":"","mesa":false,"observaciones":false,"hora":false,"fecha":0,"tipoEntrega":"Mesa"}]`)

	orders, err := DecodeOrders(body, time.UTC)
	if err != nil {
		t.Fatalf("DecodeOrders() error = %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("len(orders) = %d, want 1", len(orders))
	}

	want := Order{DeliveryType: "Mesa"}
	if orders[0] != want {
		t.Errorf("DecodeOrders() = %+v, want %+v", orders[0], want)
	}
}

func TestDecodeOrdersRejectsNonArray(t *testing.T) {
	if _, err := DecodeOrders([]byte(`{"error":"boom"}`), time.UTC); err == nil {
		t.Error("DecodeOrders() expected error for an object payload")
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint([]byte(`[{"numeroFactura":"1"}]`))
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	b, _ := Fingerprint([]byte("[ {\"numeroFactura\" : \"1\"} ]\n"))
	c, _ := Fingerprint([]byte(`[{"numeroFactura":"2"}]`))

	if a != b {
		t.Error("whitespace-only differences should not change the fingerprint")
	}
	if a == c {
		t.Error("different payloads should have different fingerprints")
	}
	if _, err := Fingerprint([]byte(`[{`)); err == nil {
		t.Error("Fingerprint() expected error for invalid JSON")
	}
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
