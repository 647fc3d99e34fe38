package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vendascli/pkg/contracts/domain"
)

// writeWorkbook creates a minimal sales export fixture.
func writeWorkbook(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

var salesHeader = []string{
	"Número pedido", "Número pedido ERP", "Número carrinho", "Data do pedido",
	"Loja", "SKU", "Valor total produto", "Valor unitário venda", "Quantidade",
	"Título", "Id Canal Marketplace", "Rastreio", "Status", "Tipo logística",
}

func TestSpreadsheetLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "julho.xlsx")
	writeWorkbook(t, path, salesHeader, [][]string{
		{"2001", "ERP-1", "C-1", "01/07/2025 10:00:00", "Shopee - NANU SHOP", "SKU-A",
			"59.70", "19.90", "3", "Produto A", "shopee", "BR123", "approved", "drop_off"},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", ""}, // empty row is skipped
		{"2002", "ERP-2", "", "02/07/2025 11:30:00", "Kabum - JULISHOP", "SKU-B",
			"10.00", "10.00", "1", "Produto B", "kabum", "", "sent", ""},
	})

	s := NewSpreadsheet(nil)
	rows, err := s.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2001", rows[0].OrderNumber)
	assert.Equal(t, "Shopee - NANU SHOP", rows[0].Store)
	assert.Equal(t, "19.90", rows[0].UnitPrice)
	assert.Equal(t, "drop_off", rows[0].Logistics)
	assert.Equal(t, domain.SourceSpreadsheet, rows[0].Source)
	assert.Equal(t, "SKU-B", rows[1].SKU)
}

func TestSpreadsheetLoadMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.xlsx")
	writeWorkbook(t, path, []string{"Número pedido", "Loja"}, [][]string{
		{"3001", "TikTok - NANU SHOP"},
	})

	s := NewSpreadsheet(nil)
	rows, err := s.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "3001", rows[0].OrderNumber)
	assert.Equal(t, "", rows[0].SKU) // absent column degrades to blank
}

func TestSpreadsheetLoadUnreadable(t *testing.T) {
	s := NewSpreadsheet(nil)
	_, err := s.Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}

func TestSpreadsheetLoadAllSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xlsx")
	writeWorkbook(t, good, salesHeader, [][]string{
		{"1", "", "", "01/07/2025", "Loja X", "S1", "5", "5", "1", "T", "", "", "", ""},
	})

	s := NewSpreadsheet(nil)
	rows := s.LoadAll([]string{good, filepath.Join(dir, "missing.xlsx")})
	assert.Len(t, rows, 1)
}
