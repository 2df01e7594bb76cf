package render

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/kitchen"
)

func TestBoardMessages(t *testing.T) {
	orders := []feed.Order{{InvoiceNumber: "1", DeliveryType: "Mesa", OrderDate: "16/10/2025"}}

	tests := []struct {
		name        string
		result      kitchen.Result
		feedErr     error
		wantMessage string
		wantSummary bool
	}{
		{
			name:        "noCategory",
			result:      kitchen.Apply(orders, "2025-10-16", nil),
			wantMessage: MsgNoCategory,
		},
		{
			name:        "noMatches",
			result:      kitchen.Apply(orders, "2025-10-16", []kitchen.Category{kitchen.Pickup}),
			wantMessage: "No hay pedidos para el 16/10/2025 con los filtros activos.",
			wantSummary: true,
		},
		{
			name:        "feedError",
			result:      kitchen.Apply(orders, "2025-10-16", kitchen.Categories),
			feedErr:     errors.New("boom"),
			wantMessage: MsgFeedError,
		},
		{
			name:        "noDate",
			result:      kitchen.Apply(orders, "", kitchen.Categories),
			wantMessage: MsgNoDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(NewRegistry(1))
			board := r.Board(tt.result, "fp", tt.feedErr)

			if board.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", board.Message, tt.wantMessage)
			}
			if board.ShowSummary != tt.wantSummary {
				t.Errorf("ShowSummary = %v, want %v", board.ShowSummary, tt.wantSummary)
			}
			if len(board.Cards) != 0 {
				t.Errorf("len(Cards) = %d, want 0", len(board.Cards))
			}

			var buf bytes.Buffer
			if err := r.WriteBoard(&buf, board); err != nil {
				t.Fatalf("WriteBoard() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.wantMessage) {
				t.Errorf("board HTML missing %q:\n%s", tt.wantMessage, buf.String())
			}
		})
	}
}

func TestBoardRemembersCards(t *testing.T) {
	reg := NewRegistry(4)
	r := NewRenderer(reg)

	orders := []feed.Order{{InvoiceNumber: "55", DeliveryType: "Recoger", OrderDate: "16/10/2025"}}
	board := r.Board(kitchen.Apply(orders, "2025-10-16", kitchen.Categories), "fp", nil)

	if len(board.Cards) != 1 {
		t.Fatalf("len(Cards) = %d, want 1", len(board.Cards))
	}
	if _, err := reg.Lookup(board.Cards[0].ID); err != nil {
		t.Errorf("Lookup() error = %v", err)
	}
}

func TestBoardEscapesOrderText(t *testing.T) {
	r := NewRenderer(nil)
	orders := []feed.Order{{
		InvoiceNumber: "9",
		CustomerName:  "<script>alert(1)</script>",
		DeliveryType:  "Mesa",
		OrderDate:     "16/10/2025",
	}}

	var buf bytes.Buffer
	if err := r.WriteBoard(&buf, r.Board(kitchen.Apply(orders, "2025-10-16", kitchen.Categories), "fp", nil)); err != nil {
		t.Fatalf("WriteBoard() error = %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert(1)</script>") {
		t.Error("customer name was not escaped")
	}
}

func TestWritePage(t *testing.T) {
	r := NewRenderer(nil)
	page := Page{
		Date: "2025-10-16",
		Filters: []FilterOption{
			{Key: "domicilio", Label: "Domicilio", Checked: true},
			{Key: "mesa", Label: "Mesa", Checked: false},
		},
		Board: Board{Message: MsgNoCategory},
	}

	var buf bytes.Buffer
	if err := r.WritePage(&buf, page); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`value="2025-10-16"`,
		`data-tipo="domicilio" checked`,
		`<title>Cocina</title>`,
		MsgNoCategory,
		`/static/cocina.js`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page HTML missing %q", want)
		}
	}
	if strings.Contains(html, `data-tipo="mesa" checked`) {
		t.Error("unchecked filter rendered as checked")
	}
}

func TestFeedToBoard(t *testing.T) {
	now := time.Now().UTC()
	body := `[{"numeroFactura":"102","fecha":` + strconv.FormatInt(now.UnixMilli(), 10) +
		`,"tipoEntrega":"Mesa 4","productos":"x2 Soda\nFries"}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	poller := feed.NewPoller(feed.PollerConfig{Location: time.UTC, Client: srv.Client()}, nil)
	poller.SetEndpoint(srv.URL)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	snap := poller.Snapshot()
	res := kitchen.Apply(snap.Orders, now.Format("2006-01-02"), []kitchen.Category{kitchen.Table})

	want := kitchen.Counts{Table: 1, Total: 1}
	if res.Counts != want {
		t.Errorf("Counts = %+v, want %+v", res.Counts, want)
	}

	r := NewRenderer(NewRegistry(4))
	board := r.Board(res, snap.Fingerprint, snap.Err)
	if len(board.Cards) != 1 {
		t.Fatalf("len(Cards) = %d, want 1", len(board.Cards))
	}

	products := board.Cards[0].Products
	if len(products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(products))
	}
	if products[0] != (ProductLine{Quantity: "2", Detail: "Soda"}) {
		t.Errorf("Products[0] = %+v", products[0])
	}
	if products[1] != (ProductLine{Detail: "Fries"}) {
		t.Errorf("Products[1] = %+v", products[1])
	}

	var buf bytes.Buffer
	if err := r.WriteBoard(&buf, board); err != nil {
		t.Fatalf("WriteBoard() error = %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"Recoger: <strong>0</strong>",
		"Mesa: <strong>1</strong>",
		"Domicilio: <strong>0</strong>",
		"Total: <strong>1</strong>",
		`id="pedido-102-`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("board HTML missing %q", want)
		}
	}
}
