package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/version"
)

const cacheControl = "no-cache"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) write(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

// views parses the selection and leaderboard size shared by the view endpoints.
func (h *APIHandlers) views(w http.ResponseWriter, r *http.Request) (models.Views, bool) {
	n, err := intParam(r, "n", h.dashboard.TopN(), 1, maxTopN)
	if err != nil {
		h.fail(w, r, err)
		return models.Views{}, false
	}
	return h.dashboard.ViewsN(selectionFromQuery(r, h.dashboard), n), true
}

type filtersResponse struct {
	Companies []string               `json:"companies"`
	Brands    []string               `json:"brands"`
	Default   models.FilterSelection `json:"default"`
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	h.write(w, filtersResponse{
		Companies: h.dashboard.Companies(),
		Brands:    append([]string{models.AllBrands}, h.dashboard.Brands()...),
		Default:   h.dashboard.DefaultSelection(),
	})
}

func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v)
	}
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v.KPIs)
	}
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v.MonthlyRevenue)
	}
}

func (h *APIHandlers) HandleTopSalesPersons(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v.TopSalesPersons)
	}
}

func (h *APIHandlers) HandleTopCustomers(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v.TopCustomers)
	}
}

func (h *APIHandlers) HandleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	if v, ok := h.views(w, r); ok {
		h.write(w, v.CategoryBreakdown)
	}
}

type transactionsPage struct {
	Rows   []models.Transaction `json:"rows"`
	Total  int                  `json:"total"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
}

func (h *APIHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0, 0, math.MaxInt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows, total := h.dashboard.Transactions(selectionFromQuery(r, h.dashboard), offset, limit)
	h.write(w, transactionsPage{Rows: rows, Total: total, Offset: offset, Limit: limit})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	table := h.dashboard.Table()
	errors.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version.Version,
		"records":   table.Len(),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}

// HandleReload re-reads the data source. A failed load leaves the current
// data in place and is reported to the caller.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.dashboard.Reload(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("data reloaded on request",
		"duration", time.Since(start),
		"request_id", observability.GetRequestID(r.Context()),
	)
	errors.WriteSuccess(w, h.dashboard.Stats())
}
