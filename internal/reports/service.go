package reports

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/sales"
)

// SalesPort is the slice of the sales service reporting needs.
type SalesPort interface {
	ListSales(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error)
}

// StockPort is the slice of the inventory service reporting needs.
type StockPort interface {
	StockLevels(ctx context.Context) ([]inventory.StockLevel, error)
}

// SalesReport summarises invoices over a date range.
type SalesReport struct {
	From         time.Time
	To           time.Time
	Sales        []sales.Sale
	TotalAmount  float64
	TotalPaid    float64
	Outstanding  float64
	InvoiceCount int
	PaidCount    int
}

// Service builds reports. Money amounts are rendered through a
// locale-aware printer so thousands grouping matches the deployment
// region.
type Service struct {
	sales   SalesPort
	stock   StockPort
	printer *message.Printer
}

// NewService builds Service. An unparsable locale falls back to
// English formatting.
func NewService(salesPort SalesPort, stockPort StockPort, locale string) *Service {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Service{sales: salesPort, stock: stockPort, printer: message.NewPrinter(tag)}
}

// FormatAmount renders a money amount with locale grouping.
func (s *Service) FormatAmount(v float64) string {
	return s.printer.Sprintf("%.2f", v)
}

// BuildSalesReport aggregates invoices between from and to inclusive.
func (s *Service) BuildSalesReport(ctx context.Context, from, to time.Time) (SalesReport, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	// Include the whole end day.
	rangeEnd := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())
	list, err := s.sales.ListSales(ctx, sales.SaleFilter{From: from, To: rangeEnd})
	if err != nil {
		return SalesReport{}, err
	}
	report := SalesReport{From: from, To: to, Sales: list}
	for _, sale := range list {
		report.TotalAmount += sale.TotalAmount
		report.TotalPaid += sale.AmountPaid
		report.InvoiceCount++
		if sale.PaymentStatus == sales.PaymentPaid {
			report.PaidCount++
		}
	}
	report.Outstanding = report.TotalAmount - report.TotalPaid
	return report, nil
}

// WriteSalesCSV streams the sales report as CSV.
func (s *Service) WriteSalesCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	report, err := s.BuildSalesReport(ctx, from, to)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Invoice", "Date", "Customer", "Total", "Paid", "Status"}); err != nil {
		return err
	}
	for _, sale := range report.Sales {
		record := []string{
			sale.InvoiceNumber,
			sale.SaleDate.Format("2006-01-02"),
			sale.CustomerName,
			s.FormatAmount(sale.TotalAmount),
			s.FormatAmount(sale.AmountPaid),
			string(sale.PaymentStatus),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"TOTAL", "", "", s.FormatAmount(report.TotalAmount), s.FormatAmount(report.TotalPaid), ""}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// MonthlySummary aggregates invoices from the first of the current
// month through today.
func (s *Service) MonthlySummary(ctx context.Context) (SalesReport, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.BuildSalesReport(ctx, from, now)
}

// StockReport returns current levels for every active product.
func (s *Service) StockReport(ctx context.Context) ([]inventory.StockLevel, error) {
	return s.stock.StockLevels(ctx)
}

// WriteStockCSV streams the stock report as CSV.
func (s *Service) WriteStockCSV(ctx context.Context, w io.Writer) error {
	levels, err := s.stock.StockLevels(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"SKU", "Product", "Current Stock", "Minimum Level", "Low"}); err != nil {
		return err
	}
	for _, level := range levels {
		low := ""
		if level.IsLow() {
			low = "yes"
		}
		record := []string{
			level.SKU,
			level.ProductName,
			strconv.Itoa(level.CurrentStock),
			strconv.Itoa(level.MinimumStockLevel),
			low,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
