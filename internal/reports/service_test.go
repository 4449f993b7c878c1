package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/sales"
)

type fakeSales struct {
	sales []sales.Sale
}

func (f *fakeSales) ListSales(_ context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	var out []sales.Sale
	for _, s := range f.sales {
		if !filter.From.IsZero() && s.SaleDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.SaleDate.After(filter.To) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeStock struct {
	levels []inventory.StockLevel
}

func (f *fakeStock) StockLevels(context.Context) ([]inventory.StockLevel, error) {
	return f.levels, nil
}

func day(offset int) time.Time {
	return time.Now().AddDate(0, 0, offset)
}

func TestBuildSalesReportAggregates(t *testing.T) {
	src := &fakeSales{sales: []sales.Sale{
		{InvoiceNumber: "INV-000001", SaleDate: day(-1), TotalAmount: 100, AmountPaid: 100, PaymentStatus: sales.PaymentPaid},
		{InvoiceNumber: "INV-000002", SaleDate: day(0), TotalAmount: 50, AmountPaid: 20, PaymentStatus: sales.PaymentPartial},
		{InvoiceNumber: "INV-000003", SaleDate: day(-40), TotalAmount: 999, PaymentStatus: sales.PaymentPending},
	}}
	svc := NewService(src, &fakeStock{}, "en-GH")

	report, err := svc.BuildSalesReport(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 2, report.InvoiceCount, "default window is the last 30 days")
	require.Equal(t, 150.0, report.TotalAmount)
	require.Equal(t, 120.0, report.TotalPaid)
	require.Equal(t, 30.0, report.Outstanding)
	require.Equal(t, 1, report.PaidCount)
}

func TestMonthlySummaryStartsAtFirstOfMonth(t *testing.T) {
	now := time.Now()
	src := &fakeSales{sales: []sales.Sale{
		{InvoiceNumber: "INV-000010", SaleDate: now, TotalAmount: 200, AmountPaid: 200, PaymentStatus: sales.PaymentPaid},
		{InvoiceNumber: "INV-000011", SaleDate: now.AddDate(0, -2, 0), TotalAmount: 500, PaymentStatus: sales.PaymentPending},
	}}
	svc := NewService(src, &fakeStock{}, "en-GH")

	report, err := svc.MonthlySummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.InvoiceCount)
	require.Equal(t, 200.0, report.TotalAmount)
	require.Equal(t, 1, report.From.Day())
}

func TestWriteSalesCSV(t *testing.T) {
	src := &fakeSales{sales: []sales.Sale{
		{InvoiceNumber: "INV-000007", SaleDate: day(0), CustomerName: "Kumasi Traders", TotalAmount: 1250.5, AmountPaid: 1000, PaymentStatus: sales.PaymentPartial},
	}}
	svc := NewService(src, &fakeStock{}, "en-GH")

	var buf bytes.Buffer
	require.NoError(t, svc.WriteSalesCSV(context.Background(), &buf, time.Time{}, time.Time{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Invoice,Date,Customer,Total,Paid,Status", lines[0])
	require.Contains(t, lines[1], "INV-000007")
	require.Contains(t, lines[1], "Kumasi Traders")
	require.Contains(t, lines[1], "PARTIAL")
	require.Contains(t, lines[2], "TOTAL")
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	svc := NewService(&fakeSales{}, &fakeStock{}, "en-GH")
	require.Equal(t, "12,345.60", svc.FormatAmount(12345.6))

	// Unknown locales fall back to English formatting.
	svc = NewService(&fakeSales{}, &fakeStock{}, "not-a-locale")
	require.Equal(t, "1,000.00", svc.FormatAmount(1000))
}

func TestWriteStockCSVFlagsLowRows(t *testing.T) {
	stock := &fakeStock{levels: []inventory.StockLevel{
		{SKU: "PB-001", ProductName: "Poly Bags", CurrentStock: 2, MinimumStockLevel: 5},
		{SKU: "CT-001", ProductName: "Cartons", CurrentStock: 50, MinimumStockLevel: 5},
	}}
	svc := NewService(&fakeSales{}, stock, "en-GH")

	var buf bytes.Buffer
	require.NoError(t, svc.WriteStockCSV(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "yes")
	require.NotContains(t, lines[2], "yes")
}
