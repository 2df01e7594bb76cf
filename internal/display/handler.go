package display

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/filters"
	"github.com/appetiteclub/cocina/internal/kitchen"
	"github.com/appetiteclub/cocina/internal/render"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	MaxBodyBytes = 1 << 20

	pickerLayout = "2006-01-02"

	msgPrintNotFound = "No se encontró el pedido para imprimir."
)

//go:embed static
var staticFS embed.FS

// OrderSource is the poller as seen by the display.
type OrderSource interface {
	Snapshot() feed.Snapshot
	Poll(ctx context.Context) error
}

// FilterStore keeps the delivery type selection.
type FilterStore interface {
	State() filters.State
	Toggle(ctx context.Context, c kitchen.Category, checked bool) (filters.State, error)
	Save(ctx context.Context) error
}

type StatusUpdater interface {
	Update(ctx context.Context, invoiceNumber, tipo string) error
}

type HandlerDeps struct {
	Orders     OrderSource
	Filters    FilterStore
	Status     StatusUpdater
	Renderer   *render.Renderer
	Location   *time.Location
	PrintDelay time.Duration
}

type Handler struct {
	orders     OrderSource
	filters    FilterStore
	status     StatusUpdater
	renderer   *render.Renderer
	loc        *time.Location
	printDelay time.Duration
	sse        http.Handler
	logger     aqm.Logger
	tlm        *telemetry.HTTP
	now        func() time.Time
}

func NewHandler(deps HandlerDeps, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewRenderer(nil)
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Handler{
		orders:     deps.Orders,
		filters:    deps.Filters,
		status:     deps.Status,
		renderer:   deps.Renderer,
		loc:        deps.Location,
		printDelay: deps.PrintDelay,
		logger:     logger,
		tlm:        telemetry.NewHTTP(),
		now:        time.Now,
	}
}

// SetSSEHandler mounts the change notification stream on /events.
func (h *Handler) SetSSEHandler(sse http.Handler) {
	h.sse = sse
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/print/{id}", h.Print)
	r.Post("/reload", h.Reload)
	r.Post("/status", h.UpdateStatus)

	r.Group(func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Get("/board", h.Board)
		r.Get("/filters", h.Filters)
		r.Post("/filters", h.ToggleFilter)
		if h.sse != nil {
			r.Get("/events", h.sse.ServeHTTP)
		}
	})

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		h.logger.Error("cannot mount static assets", "error", err)
		return
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

// Home renders the full display page for today.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Home")
	defer finish()
	log := h.log(r)

	date := h.today()
	state := h.filterState()

	page := render.Page{
		Date:    date,
		Filters: filterOptions(state),
		Board:   h.board(date, state),
	}

	var buf bytes.Buffer
	if err := h.renderer.WritePage(&buf, page); err != nil {
		log.Error("error rendering page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

// Board renders the display region for the date in the fecha query
// parameter, today when it is absent.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Board")
	defer finish()

	h.writeBoard(w, r, h.selectedDate(r.URL.Query()["fecha"]))
}

// Filters returns the current delivery type selection.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Filters")
	defer finish()

	aqm.Respond(w, http.StatusOK, h.filterState(), nil)
}

// ToggleFilter checks or unchecks one delivery type, persists the selection
// and answers with the refreshed display region.
func (h *Handler) ToggleFilter(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleFilter")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	category, ok := kitchen.ParseCategory(r.PostForm.Get("tipo"))
	if !ok {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid delivery type")
		return
	}

	checked, err := parseChecked(r.PostForm.Get("checked"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid checked value")
		return
	}

	if h.filters == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Filters not available")
		return
	}

	if _, err := h.filters.Toggle(ctx, category, checked); err != nil {
		log.Errorf("cannot save filter state: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not save filters")
		return
	}

	log.Info("filter toggled", "tipo", category.Key(), "checked", checked)
	h.writeBoard(w, r, h.selectedDate(r.PostForm["fecha"]))
}

// Reload persists the selection, forces a poll and sends the browser back
// to the display page.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Reload")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	if h.filters != nil {
		if err := h.filters.Save(ctx); err != nil {
			log.Errorf("cannot save filter state: %v", err)
		}
	}

	if h.orders != nil {
		if err := h.orders.Poll(ctx); err != nil {
			log.Info("forced poll failed", "error", err)
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Print writes the printable document of a card still on display.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Print")
	defer finish()
	log := h.log(r)

	id := chi.URLParam(r, "id")
	card, err := h.renderer.Registry().Lookup(id)
	if err != nil {
		log.Info("print target not found", "id", id)
		aqm.RespondError(w, http.StatusNotFound, msgPrintNotFound)
		return
	}

	var buf bytes.Buffer
	if err := render.PrintDocument(&buf, card, h.printDelay); err != nil {
		log.Error("error rendering print document", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

type statusForm struct {
	InvoiceNumber string `json:"numeroFactura"`
	Type          string `json:"tipo"`
}

// UpdateStatus forwards a status update for one order to the feed server.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateStatus")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	req, err := decodeStatusForm(w, r)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.InvoiceNumber == "" || req.Type == "" {
		aqm.RespondError(w, http.StatusBadRequest, "numeroFactura and tipo are required")
		return
	}

	if h.status == nil {
		aqm.RespondError(w, http.StatusBadGateway, feed.ErrServerUnreachable.Error())
		return
	}

	err = h.status.Update(ctx, req.InvoiceNumber, req.Type)
	var rejected *feed.RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		log.Info("status update rejected", "numeroFactura", req.InvoiceNumber, "error", rejected.Message)
		aqm.RespondError(w, http.StatusBadGateway, "Error: "+rejected.Message)
		return
	default:
		log.Errorf("cannot update status: %v", err)
		aqm.RespondError(w, http.StatusBadGateway, feed.ErrServerUnreachable.Error())
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"mensaje": fmt.Sprintf("Pedido %s enviado (%s)", req.InvoiceNumber, strings.ToUpper(req.Type)),
	}, nil)
}

func decodeStatusForm(w http.ResponseWriter, r *http.Request) (statusForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req statusForm
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return statusForm{}, err
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return statusForm{}, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return statusForm{}, err
	}
	return statusForm{
		InvoiceNumber: strings.TrimSpace(r.PostForm.Get("numeroFactura")),
		Type:          strings.TrimSpace(r.PostForm.Get("tipo")),
	}, nil
}

func (h *Handler) writeBoard(w http.ResponseWriter, r *http.Request, date string) {
	var buf bytes.Buffer
	if err := h.renderer.WriteBoard(&buf, h.board(date, h.filterState())); err != nil {
		h.log(r).Error("error rendering board", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

func (h *Handler) board(date string, state filters.State) render.Board {
	var snap feed.Snapshot
	if h.orders != nil {
		snap = h.orders.Snapshot()
	}
	res := kitchen.Apply(snap.Orders, date, state.Active())
	return h.renderer.Board(res, snap.Fingerprint, snap.Err)
}

func (h *Handler) filterState() filters.State {
	if h.filters == nil {
		return filters.DefaultState()
	}
	return h.filters.State()
}

func (h *Handler) today() string {
	return h.now().In(h.loc).Format(pickerLayout)
}

// selectedDate returns today when the parameter was not sent at all. A sent
// but empty value is kept so the board reports the missing date.
func (h *Handler) selectedDate(values []string) string {
	if len(values) == 0 {
		return h.today()
	}
	return strings.TrimSpace(values[0])
}

func filterOptions(state filters.State) []render.FilterOption {
	options := make([]render.FilterOption, 0, len(kitchen.Categories))
	for _, c := range kitchen.Categories {
		options = append(options, render.FilterOption{
			Key:     c.Key(),
			Label:   c.Label(),
			Checked: state[c],
		})
	}
	return options
}

func parseChecked(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "", "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func writeHTML(w http.ResponseWriter, status int, body *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	body.WriteTo(w)
}
