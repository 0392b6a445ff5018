package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageTitle     = "Sales Dashboard"
)

type PageHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleDashboard renders the page for the selection in the query string, or
// the default selection.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	sel := selectionFromQuery(r, h.dashboard)
	views := h.dashboard.Views(sel)
	rows, total := h.dashboard.Transactions(sel, 0, maxTableRows)

	page := templates.PageData{
		Title: pageTitle,
		Filters: templates.FilterData{
			Companies: h.dashboard.Companies(),
			Brands:    h.dashboard.Brands(),
			Selection: views.Selection,
		},
		Views:      views,
		Table:      templates.TableData{Rows: rows, Total: total},
		Generation: h.dashboard.Generation(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Dashboard(page).Render(ctx, w); err != nil {
		h.logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
