package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxTableRows = 50

// filterSignals are the page signals the server reads back.
type filterSignals struct {
	Company string `json:"company"`
	Brand   string `json:"brand"`
}

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// readSelection must run before datastar.NewSSE, which takes over the request.
// Unreadable signals fall back to the default selection.
func (h *SSEHandlers) readSelection(r *http.Request) models.FilterSelection {
	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Warn("read signals", "error", err)
	}

	sel := models.FilterSelection{Company: signals.Company, Brand: signals.Brand}
	if sel.Company == "" {
		sel.Company = h.dashboard.DefaultSelection().Company
	}
	if sel.Brand == "" {
		sel.Brand = models.AllBrands
	}
	return sel
}

// patchDashboard sends everything that depends on the selection: the filter
// options, KPI cards, the detail table and the chart signals.
func (h *SSEHandlers) patchDashboard(sse *datastar.ServerSentEventGenerator, sel models.FilterSelection) error {
	views := h.dashboard.Views(sel)
	rows, total := h.dashboard.Transactions(sel, 0, maxTableRows)

	if err := sse.PatchElementTempl(templates.Filters(templates.FilterData{
		Companies: h.dashboard.Companies(),
		Brands:    h.dashboard.Brands(),
		Selection: views.Selection,
	})); err != nil {
		return err
	}
	if err := sse.PatchElementTempl(templates.KPICards(views.KPIs)); err != nil {
		return err
	}
	if err := sse.PatchElementTempl(templates.TransactionsTable(templates.TableData{Rows: rows, Total: total})); err != nil {
		return err
	}

	signals, err := templates.SignalsJSON(views, h.dashboard.Generation())
	if err != nil {
		return err
	}
	return sse.PatchSignals(signals)
}

// HandleDashboard recomputes the views for the selection in the page signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel := h.readSelection(r)
	sse := datastar.NewSSE(w, r)

	start := time.Now()
	if err := h.patchDashboard(sse, sel); err != nil {
		h.logger.Error("patch dashboard", "error", err, "company", sel.Company, "brand", sel.Brand)
		_ = sse.ConsoleError(err)
		return
	}
	h.logger.Debug("dashboard patched",
		"company", sel.Company,
		"brand", sel.Brand,
		"duration", time.Since(start),
	)
}

// HandleUpdates is the long-lived stream opened by the page. It only pushes
// the new data generation; the page reacts by requesting /sse/dashboard with
// its current selection.
func (h *SSEHandlers) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.dashboard.Notifier().Subscribe()
	defer h.dashboard.Notifier().Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.sendGeneration(ctx, sse); err != nil {
				h.logger.Warn("push update", "error", err)
				return
			}
		}
	}
}

func (h *SSEHandlers) sendGeneration(ctx context.Context, sse *datastar.ServerSentEventGenerator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return sse.MarshalAndPatchSignals(map[string]any{"generation": h.dashboard.Generation()})
}
