package handlers

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

var testLogger = slog.New(slog.DiscardHandler)

func testTransactions() []models.Transaction {
	tx := func(company, brand, person, customer, category string, day int, qty int64, value string) models.Transaction {
		return models.Transaction{
			CompanyName:  company,
			Brand:        brand,
			SalesPerson:  person,
			CustomerName: customer,
			ItemCategory: category,
			BillDate:     time.Date(2023, time.Month(1+day/10), day, 0, 0, 0, 0, time.UTC),
			Qty:          qty,
			TaxPaidValue: decimal.RequireFromString(value),
		}
	}
	return []models.Transaction{
		tx("CompA", "BrandX", "Asha", "Cust1", "Paint", 14, 2, "100"),
		tx("CompA", "BrandY", "Ravi", "Cust2", "Primer", 2, 1, "50"),
		tx("CompB", "BrandX", "Asha", "Cust3", "Paint", 19, 4, "30"),
	}
}

func createTestDashboard() *services.Dashboard {
	d := services.NewDashboard(services.DashboardOptions{Logger: testLogger})
	d.SetTable(loader.NewTable("test", testTransactions()))
	return d
}

func createReloadingDashboard(load services.LoadFunc) *services.Dashboard {
	d := services.NewDashboard(services.DashboardOptions{Logger: testLogger, Load: load})
	d.SetTable(loader.NewTable("test", testTransactions()))
	return d
}
