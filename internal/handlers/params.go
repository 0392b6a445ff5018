package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxTopN         = 100
)

// selectionFromQuery reads company and brand. A missing company falls back to
// the dashboard's default selection; a missing brand means all brands.
func selectionFromQuery(r *http.Request, d *services.Dashboard) models.FilterSelection {
	q := r.URL.Query()
	sel := models.FilterSelection{
		Company: strings.TrimSpace(q.Get("company")),
		Brand:   strings.TrimSpace(q.Get("brand")),
	}
	if sel.Company == "" {
		sel.Company = d.DefaultSelection().Company
	}
	if sel.Brand == "" {
		sel.Brand = models.AllBrands
	}
	return sel
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidParam(name, raw, "is not an integer")
	}
	if n < lo || n > hi {
		return 0, errors.InvalidParam(name, raw, fmt.Sprintf("is out of range [%d, %d]", lo, hi))
	}
	return n, nil
}
