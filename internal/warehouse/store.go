// Package warehouse persists the reconciled sales table and the Pareto
// reports to the analytical Postgres database.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vendascli/internal/config"
	"vendascli/internal/money"
	"vendascli/pkg/contracts/domain"
)

// salesRow maps a reconciled sales record onto the warehouse sales table.
type salesRow struct {
	OrderNumber    string          `gorm:"column:numero_pedido"`
	ERPOrderNumber string          `gorm:"column:numero_pedido_erp"`
	CartNumber     string          `gorm:"column:numero_carrinho"`
	OrderDate      *time.Time      `gorm:"column:data_do_pedido"`
	OrderTime      string          `gorm:"column:hora_do_pedido"`
	Store          string          `gorm:"column:loja"`
	SKU            string          `gorm:"column:sku"`
	Total          decimal.Decimal `gorm:"column:valor_total_produto;type:numeric"`
	Quantity       int             `gorm:"column:quantidade"`
	Title          string          `gorm:"column:titulo"`
	ChannelID      string          `gorm:"column:id_canal_marketplace"`
	Tracking       string          `gorm:"column:rastreio"`
	Status         string          `gorm:"column:status"`
	LogisticsType  string          `gorm:"column:tipo_logistica"`
	UnitCost       decimal.Decimal `gorm:"column:custo_unitario;type:numeric"`
	CostTotal      decimal.Decimal `gorm:"column:custo_total_produto;type:numeric"`
	Cashback       decimal.Decimal `gorm:"column:cashback_cupom;type:numeric"`
	Commission     decimal.Decimal `gorm:"column:Comissão;type:numeric"`
	Supplier       string          `gorm:"column:Fornecedores"`
	Stock          int             `gorm:"column:Estq"`
	Category       string          `gorm:"column:Categoria"`
	Subcategory    string          `gorm:"column:Subcategoria"`
	SaleType       string          `gorm:"column:tipo_de_venda"`
}

// paretoRow maps one ABC aggregate onto a grouping's Pareto table.
type paretoRow struct {
	MonthRef        string          `gorm:"column:mes_referencia"`
	SKU             string          `gorm:"column:sku"`
	Title           string          `gorm:"column:titulo"`
	Quantity        decimal.Decimal `gorm:"column:quantidade_total_vendida;type:numeric"`
	ShareQuantity   decimal.Decimal `gorm:"column:share_quantidade_vendas;type:numeric"`
	CumShareQty     decimal.Decimal `gorm:"column:pareto_quantidade_acumulada;type:numeric"`
	CurveQuantity   string          `gorm:"column:curva_abc_quantidade"`
	Revenue         decimal.Decimal `gorm:"column:valor_total_gmv;type:numeric"`
	ShareRevenue    decimal.Decimal `gorm:"column:share_gmv;type:numeric"`
	CumShareRevenue decimal.Decimal `gorm:"column:pareto_gmv_acumulado;type:numeric"`
	CurveRevenue    string          `gorm:"column:curva_abc_gmv"`
}

// Store writes to the warehouse. Credentials come in explicitly through
// the config DSN, never from the ambient environment.
type Store struct {
	db         *gorm.DB
	salesTable string
	fullLoad   bool
	logger     *slog.Logger
}

// New opens the warehouse connection from the configured DSN.
func New(cfg config.WarehouseConfig, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return NewWithDB(db, cfg, logger), nil
}

// NewWithDB wraps an existing gorm handle, used by tests.
func NewWithDB(db *gorm.DB, cfg config.WarehouseConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:         db,
		salesTable: cfg.SalesTable,
		fullLoad:   cfg.FullLoad,
		logger:     logger,
	}
}

// EnsureSalesSchema creates or migrates the sales table.
func (s *Store) EnsureSalesSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.salesTable).AutoMigrate(&salesRow{}); err != nil {
		return fmt.Errorf("failed to migrate sales table %s: %w", s.salesTable, err)
	}
	return nil
}

// EnsureParetoSchema creates or migrates one grouping's Pareto table.
func (s *Store) EnsureParetoSchema(ctx context.Context, table string) error {
	if err := s.db.WithContext(ctx).Table(table).AutoMigrate(&paretoRow{}); err != nil {
		return fmt.Errorf("failed to migrate pareto table %s: %w", table, err)
	}
	return nil
}

// UploadSales writes the full reconciled table. In full-load mode the table
// is replaced outright; otherwise only the months present in this run are
// deleted before the append, so re-runs stay idempotent. The whole write is
// one transaction to keep the table self-consistent.
func (s *Store) UploadSales(ctx context.Context, records []domain.SalesRecord) error {
	rows := make([]salesRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toSalesRow(rec))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.fullLoad {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %q", s.salesTable)).Error; err != nil {
				return fmt.Errorf("failed to clear sales table: %w", err)
			}
		} else {
			for _, m := range runMonths(records) {
				err := tx.Exec(fmt.Sprintf(
					"DELETE FROM %q WHERE EXTRACT(MONTH FROM data_do_pedido) = ? AND EXTRACT(YEAR FROM data_do_pedido) = ?",
					s.salesTable), int(m.month), m.year).Error
				if err != nil {
					return fmt.Errorf("failed to delete sales rows for %02d/%d: %w", m.month, m.year, err)
				}
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Table(s.salesTable).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert sales rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("sales table uploaded",
		slog.String("table", s.salesTable),
		slog.Int("rows", len(rows)),
		slog.Bool("full_load", s.fullLoad))
	return nil
}

// UploadPareto writes every grouping's report to its own table, one
// transaction per grouping. Delete scope follows the same full-load rule,
// keyed by the month references present in the report.
func (s *Store) UploadPareto(ctx context.Context, reports []domain.ParetoReport) error {
	for _, report := range reports {
		if len(report.Rows) == 0 {
			s.logger.Warn("empty report, skipping upload",
				slog.String("grouping", report.Grouping))
			continue
		}
		if err := s.uploadReport(ctx, report); err != nil {
			return fmt.Errorf("grouping %s: %w", report.Grouping, err)
		}
	}
	return nil
}

func (s *Store) uploadReport(ctx context.Context, report domain.ParetoReport) error {
	rows := make([]paretoRow, 0, len(report.Rows))
	monthSet := make(map[string]bool)
	var months []string
	for _, r := range report.Rows {
		rows = append(rows, toParetoRow(r))
		if !monthSet[r.MonthRef] {
			monthSet[r.MonthRef] = true
			months = append(months, r.MonthRef)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.fullLoad {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %q", report.Table)).Error; err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		} else {
			err := tx.Exec(fmt.Sprintf("DELETE FROM %q WHERE mes_referencia IN ?", report.Table), months).Error
			if err != nil {
				return fmt.Errorf("failed to delete month rows: %w", err)
			}
		}
		if err := tx.Table(report.Table).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("pareto report uploaded",
		slog.String("table", report.Table),
		slog.Int("rows", len(rows)),
		slog.Int("months", len(months)))
	return nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// runMonths lists the distinct months carried by dated records, in
// encounter order.
func runMonths(records []domain.SalesRecord) []yearMonth {
	seen := make(map[yearMonth]bool)
	var out []yearMonth
	for _, rec := range records {
		if rec.OrderDate == nil {
			continue
		}
		k := yearMonth{year: rec.OrderDate.Year(), month: rec.OrderDate.Month()}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func toSalesRow(rec domain.SalesRecord) salesRow {
	return salesRow{
		OrderNumber:    rec.OrderNumber,
		ERPOrderNumber: rec.ERPOrderNumber,
		CartNumber:     rec.CartNumber,
		OrderDate:      rec.OrderDate,
		OrderTime:      rec.OrderTime,
		Store:          rec.Store,
		SKU:            rec.SKU,
		Total:          money.Quantize(rec.Total, money.Places3),
		Quantity:       rec.Quantity,
		Title:          rec.Title,
		ChannelID:      rec.ChannelID,
		Tracking:       rec.Tracking,
		Status:         rec.Status,
		LogisticsType:  rec.LogisticsType,
		UnitCost:       money.Quantize(rec.UnitCost, money.Places3),
		CostTotal:      money.Mul(rec.UnitCost, rec.Quantity, money.Places3),
		Cashback:       money.Quantize(rec.Cashback, money.Places3),
		Commission:     money.Quantize(rec.Commission, money.Places3),
		Supplier:       rec.Supplier,
		Stock:          rec.Stock,
		Category:       rec.Category,
		Subcategory:    rec.Subcategory,
		SaleType:       rec.SaleType,
	}
}

func toParetoRow(r domain.ParetoRow) paretoRow {
	return paretoRow{
		MonthRef:        r.MonthRef,
		SKU:             r.SKU,
		Title:           r.Title,
		Quantity:        r.Quantity,
		ShareQuantity:   r.ShareQuantity,
		CumShareQty:     r.CumShareQty,
		CurveQuantity:   r.CurveQuantity,
		Revenue:         r.Revenue,
		ShareRevenue:    r.ShareRevenue,
		CumShareRevenue: r.CumShareRevenue,
		CurveRevenue:    r.CurveRevenue,
	}
}
