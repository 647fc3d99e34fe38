package master

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDedupeAggregatesDuplicateSKUs(t *testing.T) {
	m := New(nil)
	entries := []domain.ProductEntry{
		{SKU: "X", UnitCost: dec("10.00"), Stock: 3, Supplier: "", Category: "Casa"},
		{SKU: "X", UnitCost: dec("12.50"), Stock: 5, Supplier: "Fornecedor A", Category: ""},
		{SKU: "Y", UnitCost: dec("1.00"), Stock: 1, Title: "Produto Y"},
	}

	out := m.Dedupe(entries)
	require.Len(t, out, 2)

	x := out[0]
	assert.Equal(t, "X", x.SKU)
	assert.True(t, x.UnitCost.Equal(dec("12.5")), "cost = %s", x.UnitCost)
	assert.Equal(t, 8, x.Stock)
	assert.Equal(t, "Fornecedor A", x.Supplier) // first non-blank
	assert.Equal(t, "Casa", x.Category)
}

func TestDedupeKeepsFirstNonBlankText(t *testing.T) {
	m := New(nil)
	out := m.Dedupe([]domain.ProductEntry{
		{SKU: "Z", Title: "Primeiro", SaleType: ""},
		{SKU: "Z", Title: "Segundo", SaleType: "Revenda"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Primeiro", out[0].Title)
	assert.Equal(t, "Revenda", out[0].SaleType)
}

func TestMergePrefersMasterValues(t *testing.T) {
	m := New(nil)
	records := []domain.SalesRecord{
		{SKU: "X", UnitCost: dec("1.00"), Stock: 1, Supplier: "Antigo", Title: "Título Marketplace"},
		{SKU: "MISSING", UnitCost: money.Zero(money.Places3)},
	}
	entries := []domain.ProductEntry{
		{SKU: "X", UnitCost: dec("12.500"), Stock: 8, Supplier: "Fornecedor A", Category: "Casa", Title: "Título Master"},
	}

	m.Merge(records, entries)

	matched := records[0]
	assert.True(t, matched.UnitCost.Equal(dec("12.5")))
	assert.Equal(t, 8, matched.Stock)
	assert.Equal(t, "Fornecedor A", matched.Supplier)
	assert.Equal(t, "Casa", matched.Category)
	// The marketplace title is kept; the master only fills gaps.
	assert.Equal(t, "Título Marketplace", matched.Title)

	unmatched := records[1]
	assert.True(t, unmatched.UnitCost.IsZero())
	assert.Equal(t, 0, unmatched.Stock)
	assert.Equal(t, "", unmatched.Supplier)
}

func TestMergeFallsBackToRecordValues(t *testing.T) {
	m := New(nil)
	records := []domain.SalesRecord{
		{SKU: "X", UnitCost: dec("4.20"), Stock: 2, Supplier: "Do Loader"},
	}
	// Master entry exists but carries no usable values.
	entries := []domain.ProductEntry{{SKU: "X", UnitCost: money.Zero(money.Places3)}}

	m.Merge(records, entries)

	assert.True(t, records[0].UnitCost.Equal(dec("4.2")))
	assert.Equal(t, 2, records[0].Stock)
	assert.Equal(t, "Do Loader", records[0].Supplier)
}

func TestMergeFillsTitleFromMaster(t *testing.T) {
	m := New(nil)
	records := []domain.SalesRecord{{SKU: "X"}}
	m.Merge(records, []domain.ProductEntry{{SKU: "X", Title: "Título Master"}})
	assert.Equal(t, "Título Master", records[0].Title)
}
