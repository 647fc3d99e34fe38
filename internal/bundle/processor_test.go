package bundle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

var bundleHeader = []interface{}{
	"ID do pedido", "Compensar Moedas Shopee", "Cupom Shopee",
	"Taxa de comissão", "Taxa de serviço", "Preço acordado",
}

// writeArchive builds a zip at dir/name containing one workbook per entry
// of sheets, each sheet being header plus the given rows.
func writeArchive(t *testing.T, dir, name string, sheets map[string][][]interface{}) string {
	t.Helper()

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for workbook, rows := range sheets {
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		require.NoError(t, f.SetSheetRow(sheet, "A1", &bundleHeader))
		for i, row := range rows {
			cellRef, err := excelize.CoordinatesToCellName(1, i+2)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
		}
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		require.NoError(t, f.Close())

		w, err := zw.Create(workbook)
		require.NoError(t, err)
		_, err = w.Write(buf.Bytes())
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestProcessAggregatesByOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, "shopee.zip", map[string][][]interface{}{
		"relatorio.xlsx": {
			{"500", "250", "1.00", "2.00", "0.50", "45.00"},
			{"500", "0", "0", "1.00", "0.25", "45.00"},
			{"", "100", "0", "0", "0", "10.00"},
			{"700", "0", "2,50", "3.00", "0", "99.90"},
		},
	})

	adjustments := New(nil).Process([]string{path})
	require.Len(t, adjustments, 2)

	adj := adjustments["500"]
	// 250 coins become 2.500, plus the 1.00 coupon on the first item.
	assert.Equal(t, "3.500", adj.Cashback.StringFixed(3))
	assert.Equal(t, "3.750", adj.Commission.StringFixed(3))
	assert.Equal(t, "45.000", adj.NegotiatedPrice.StringFixed(3))

	adj = adjustments["700"]
	assert.Equal(t, "2.500", adj.Cashback.StringFixed(3))
	assert.Equal(t, "3.000", adj.Commission.StringFixed(3))
	assert.Equal(t, "99.900", adj.NegotiatedPrice.StringFixed(3))
}

func TestProcessLastArchiveWinsOnOverlap(t *testing.T) {
	dir := t.TempDir()
	first := writeArchive(t, dir, "first.zip", map[string][][]interface{}{
		"a.xlsx": {{"500", "0", "1.00", "2.00", "0", "40.00"}},
	})
	second := writeArchive(t, dir, "second.zip", map[string][][]interface{}{
		"b.xlsx": {{"500", "0", "5.00", "6.00", "0", "80.00"}},
	})

	adjustments := New(nil).Process([]string{first, second})
	require.Len(t, adjustments, 1)
	assert.Equal(t, "80.000", adjustments["500"].NegotiatedPrice.StringFixed(3))
	assert.Equal(t, "5.000", adjustments["500"].Cashback.StringFixed(3))
}

func TestProcessSkipsMissingAndCorruptArchives(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.zip")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))
	good := writeArchive(t, dir, "good.zip", map[string][][]interface{}{
		"a.xlsx": {{"900", "0", "0", "1.00", "0", "12.00"}},
	})

	adjustments := New(nil).Process([]string{
		filepath.Join(dir, "missing.zip"), corrupt, good,
	})
	require.Len(t, adjustments, 1)
	assert.Contains(t, adjustments, "900")
}

func TestEnrichMatchedAndUnmatched(t *testing.T) {
	records := []domain.SalesRecord{
		{
			OrderNumber: "500",
			UnitPrice:   decimal.RequireFromString("20.00"),
			Quantity:    2,
			Total:       decimal.RequireFromString("40.00"),
		},
		{
			OrderNumber: "999",
			UnitPrice:   decimal.RequireFromString("19.90"),
			Quantity:    3,
			Total:       money.Zero(money.Places3),
		},
	}
	adjustments := map[string]Adjustment{
		"500": {
			OrderID:         "500",
			Cashback:        decimal.RequireFromString("3.500"),
			Commission:      decimal.RequireFromString("2.500"),
			NegotiatedPrice: decimal.RequireFromString("45.000"),
		},
	}

	New(nil).Enrich(records, adjustments)

	assert.Equal(t, "45.000", records[0].Total.StringFixed(3))
	assert.Equal(t, "3.500", records[0].Cashback.StringFixed(3))
	assert.Equal(t, "2.500", records[0].Commission.StringFixed(3))
	assert.True(t, records[0].BundleMatched)

	// Unmatched records get unit price times quantity.
	assert.Equal(t, "59.700", records[1].Total.StringFixed(3))
	assert.False(t, records[1].BundleMatched)
}

func TestEnrichWithNoAdjustmentsRecomputesEveryTotal(t *testing.T) {
	records := []domain.SalesRecord{
		{OrderNumber: "1", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 4},
	}
	New(nil).Enrich(records, map[string]Adjustment{})
	assert.Equal(t, "40.000", records[0].Total.StringFixed(3))
}
