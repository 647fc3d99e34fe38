package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource identifies where a sales record originated.
type DataSource string

const (
	SourceSpreadsheet DataSource = "spreadsheet"
	SourceAPI         DataSource = "api"
)

// SourceRow is the canonical-shape row emitted by every source loader before
// normalization. All values are kept as raw text so that the record
// normalizer owns every parsing rule; loaders only do column mapping.
type SourceRow struct {
	OrderNumber    string
	ERPOrderNumber string
	CartNumber     string
	OrderDate      string // free text, day-first
	OrderTime      string // HH:MM:SS, may be empty
	Store          string
	SKU            string
	Title          string
	ChannelID      string
	Tracking       string
	Status         string
	Logistics      string // raw logistics code
	UnitPrice      string
	Total          string
	Quantity       string
	UnitCost       string
	Stock          string
	Supplier       string
	Category       string
	Subcategory    string
	SaleType       string
	Source         DataSource
}

// SalesRecord is one reconciled order line after normalization and
// enrichment. Monetary fields are always quantized to 3 decimal places.
type SalesRecord struct {
	OrderNumber    string          `json:"order_number"`
	ERPOrderNumber string          `json:"erp_order_number"`
	CartNumber     string          `json:"cart_number"`
	OrderDate      *time.Time      `json:"order_date"` // calendar date; nil when unparseable
	OrderTime      string          `json:"order_time"`
	Store          string          `json:"store"`
	SKU            string          `json:"sku"`
	Title          string          `json:"title"`
	ChannelID      string          `json:"channel_id"`
	Tracking       string          `json:"tracking"`
	Status         string          `json:"status"`
	LogisticsRaw   string          `json:"logistics_raw"` // source code, kept so resolution stays re-runnable
	LogisticsType  string          `json:"logistics_type"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	Quantity       int             `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Commission     decimal.Decimal `json:"commission"`
	Cashback       decimal.Decimal `json:"cashback"`
	Stock          int             `json:"stock"`
	Supplier       string          `json:"supplier"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
	SaleType       string          `json:"sale_type"`
	Source         DataSource      `json:"source"`

	// BundleMatched marks records whose Total was overwritten with the
	// bundle's negotiated price and is therefore exempt from the
	// unit price x quantity invariant.
	BundleMatched bool `json:"bundle_matched"`
}

// InMonth reports whether the record's order date falls in the given
// month and year. Records without a parseable date never match.
func (r SalesRecord) InMonth(month time.Month, year int) bool {
	if r.OrderDate == nil {
		return false
	}
	return r.OrderDate.Month() == month && r.OrderDate.Year() == year
}
