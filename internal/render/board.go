package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/appetiteclub/cocina/internal/kitchen"
)

const (
	MsgNoCategory = "Ningún tipo de pedido (Domicilio, Mesa, Recoger) está seleccionado."
	MsgFeedError  = "Error al cargar los pedidos, intenta recargar la página."
	MsgNoDate     = "Selecciona una fecha para ver los pedidos."
)

// MsgNoOrders returns the message shown when the active filters match no order.
func MsgNoOrders(date string) string {
	return fmt.Sprintf("No hay pedidos para el %s con los filtros activos.", date)
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// Board is the view model of the display region: the summary and the cards,
// or a single message.
type Board struct {
	Message     string
	MessageWarn bool
	ShowSummary bool
	Counts      kitchen.Counts
	Cards       []Card
}

// FilterOption is one delivery type checkbox.
type FilterOption struct {
	Key     string
	Label   string
	Checked bool
}

// Page is the view model of the full display page.
type Page struct {
	Title   string
	Date    string
	Filters []FilterOption
	Board   Board
}

// Renderer turns engine results into boards and remembers the cards it
// produced for printing.
type Renderer struct {
	registry *Registry
}

func NewRenderer(registry *Registry) *Renderer {
	if registry == nil {
		registry = NewRegistry(1)
	}
	return &Renderer{registry: registry}
}

func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Board builds the display region for res, computed from the snapshot with
// the given fingerprint. A non-nil feedErr replaces the region with the load
// error message.
func (r *Renderer) Board(res kitchen.Result, fingerprint string, feedErr error) Board {
	switch {
	case feedErr != nil:
		return Board{Message: MsgFeedError, MessageWarn: true}
	case res.NoDate:
		return Board{Message: MsgNoDate}
	case res.NoCategory:
		return Board{Message: MsgNoCategory}
	}

	board := Board{ShowSummary: true, Counts: res.Counts}
	if res.Empty() {
		board.Message = MsgNoOrders(res.Date)
		return board
	}

	board.Cards = BuildCards(res.Orders)
	r.registry.Remember(fingerprint, board.Cards)
	return board
}

// WriteBoard renders the display region fragment.
func (r *Renderer) WriteBoard(w io.Writer, board Board) error {
	if err := templates.ExecuteTemplate(w, "board", board); err != nil {
		return fmt.Errorf("render board: %w", err)
	}
	return nil
}

// WritePage renders the full display page.
func (r *Renderer) WritePage(w io.Writer, page Page) error {
	if page.Title == "" {
		page.Title = "Cocina"
	}
	if err := templates.ExecuteTemplate(w, "page", page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
