// Package orders persists onboarding orders and their export files. A
// created order owns a directory under the configured data dir holding the
// CSV and GeoJSON exports plus, on demand, the onboarding packet zip.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"terranet/orders/models"
	"terranet/pricing"
)

// ErrNotFound is returned when no order matches the quote id.
var ErrNotFound = errors.New("order not found")

// ErrInvalidStatus is returned for status values outside the workflow.
var ErrInvalidStatus = errors.New("invalid order status")

// Open connects to the configured database. A postgres DSN selects the
// postgres driver; anything else is treated as a sqlite path or DSN.
func Open(dsn string, usePostgres bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if usePostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Store wraps order persistence and export file management.
type Store struct {
	db      *gorm.DB
	dataDir string
	now     func() time.Time
}

// NewStore migrates the schema and prepares the export directory.
func NewStore(db *gorm.DB, dataDir string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("orders store requires a database")
	}
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("orders store requires a data dir")
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate orders schema: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{db: db, dataDir: dataDir, now: time.Now}, nil
}

// CheckoutField is one field of a checkout submission, priced by the caller.
type CheckoutField struct {
	ID          string
	Name        string
	Acres       float64
	CropProgram string
	Notes       string
	AnnualCost  pricing.Amount
	Geometry    json.RawMessage
}

// CheckoutInput is everything needed to record an onboarding order.
type CheckoutInput struct {
	GrowerName  string
	GrowerEmail string
	FarmName    string
	Phone       string
	Notes       string
	Address1    string
	Address2    string
	City        string
	State       string
	PostalCode  string
	Country     string
	Program     pricing.Program
	AnnualTotal pricing.Amount
	Fields      []CheckoutField
}

// CreateOrder persists the order with its fields, records the initial
// Quoted status, and writes the export files for the order directory.
func (s *Store) CreateOrder(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	if len(in.Fields) == 0 {
		return nil, &pricing.ValidationError{Msg: "at least one field is required"}
	}
	for _, f := range in.Fields {
		if len(f.Geometry) == 0 {
			continue
		}
		// Geometry is a passthrough, but the exports need a JSON object to
		// wrap into a Feature. Reject anything else before persisting.
		var obj map[string]any
		if err := json.Unmarshal(f.Geometry, &obj); err != nil {
			return nil, &pricing.ValidationError{Msg: fmt.Sprintf("field %q: geometry must be a GeoJSON object", f.ID)}
		}
	}
	now := s.now().UTC()
	order := &models.Order{
		ID:          uuid.New(),
		QuoteID:     quoteID(in.GrowerName, now),
		GrowerName:  strings.TrimSpace(in.GrowerName),
		GrowerEmail: strings.TrimSpace(in.GrowerEmail),
		FarmName:    strings.TrimSpace(in.FarmName),
		Phone:       strings.TrimSpace(in.Phone),
		Notes:       in.Notes,
		Address1:    in.Address1,
		Address2:    in.Address2,
		City:        in.City,
		State:       in.State,
		PostalCode:  in.PostalCode,
		Country:     in.Country,
		Program:     string(in.Program),
		Status:      models.StatusQuoted,
		FieldCount:  len(in.Fields),
		AnnualTotal: in.AnnualTotal,
	}
	for _, f := range in.Fields {
		order.TotalAcres += f.Acres
		order.Fields = append(order.Fields, models.OrderField{
			ID:          uuid.New(),
			OrderID:     order.ID,
			FieldRef:    f.ID,
			Name:        f.Name,
			Acres:       f.Acres,
			CropProgram: f.CropProgram,
			Notes:       f.Notes,
			AnnualCost:  f.AnnualCost,
			Geometry:    string(f.Geometry),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		change := models.StatusChange{
			ID:      uuid.New(),
			OrderID: order.ID,
			From:    "",
			To:      models.StatusQuoted,
		}
		if err := tx.Create(&change).Error; err != nil {
			return fmt.Errorf("record status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.writeExports(order); err != nil {
		// A half-created order must not stay listable without its exports.
		_ = s.DeleteOrder(ctx, order.QuoteID)
		return nil, fmt.Errorf("write exports: %w", err)
	}
	return order, nil
}

// GetOrder loads an order with its fields by quote id.
func (s *Store) GetOrder(ctx context.Context, quoteID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, field_ref") }).
		Where("quote_id = ?", quoteID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// ListOrders returns all orders, newest first, without field details.
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// UpdateStatus moves the order to a new workflow status and appends an
// audit row. Unknown statuses are rejected before touching the database.
func (s *Store) UpdateStatus(ctx context.Context, quoteID string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	order, err := s.GetOrder(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		change := models.StatusChange{ID: uuid.New(), OrderID: order.ID, From: previous, To: status}
		if err := tx.Create(&change).Error; err != nil {
			return fmt.Errorf("record status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

// StatusHistory returns the audit trail for an order, oldest first.
func (s *Store) StatusHistory(ctx context.Context, quoteID string) ([]models.StatusChange, error) {
	order, err := s.GetOrder(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	var changes []models.StatusChange
	if err := s.db.WithContext(ctx).Where("order_id = ?", order.ID).Order("created_at").Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return changes, nil
}

// DeleteOrder removes the order rows and its export directory.
func (s *Store) DeleteOrder(ctx context.Context, quoteID string) error {
	order, err := s.GetOrder(ctx, quoteID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderField{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.StatusChange{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", order.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if err := os.RemoveAll(s.OrderDir(order.QuoteID)); err != nil {
		return fmt.Errorf("remove export dir: %w", err)
	}
	return nil
}

// OrderDir is the export directory for a quote id.
func (s *Store) OrderDir(quoteID string) string {
	return filepath.Join(s.dataDir, quoteID)
}

// quoteID builds the human-readable order key, e.g. q_jane_doe_1724457600.
func quoteID(growerName string, now time.Time) string {
	slug := strings.TrimSpace(growerName)
	if slug == "" {
		slug = "grower"
	}
	slug = strings.ReplaceAll(slug, " ", "_")
	if len(slug) > 12 {
		slug = slug[:12]
	}
	return fmt.Sprintf("q_%s_%d", slug, now.Unix())
}
