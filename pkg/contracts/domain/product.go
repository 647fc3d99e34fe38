package domain

import "github.com/shopspring/decimal"

// ProductEntry is one SKU's master attributes from the product feed.
// Entries are read-only once merged into sales records.
type ProductEntry struct {
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Stock       int             `json:"stock"`
	Supplier    string          `json:"supplier"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	SaleType    string          `json:"sale_type"`
}
