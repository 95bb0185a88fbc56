package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"terranet/pricing"
)

// OrderStatus tracks an onboarding order through its workflow.
type OrderStatus string

// All workflow statuses, in lifecycle order.
const (
	StatusQuoted            OrderStatus = "Quoted"
	StatusAwaitingPayment   OrderStatus = "Awaiting Payment"
	StatusPaid              OrderStatus = "Paid"
	StatusOnboardingStarted OrderStatus = "Onboarding Started"
	StatusCompleted         OrderStatus = "Completed"
)

// AllowedStatuses lists every status an operator may set.
var AllowedStatuses = []OrderStatus{
	StatusQuoted,
	StatusAwaitingPayment,
	StatusPaid,
	StatusOnboardingStarted,
	StatusCompleted,
}

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s OrderStatus) bool {
	for _, allowed := range AllowedStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Order is a checkout draft: the grower, the chosen program, and summary
// figures for the submitted fields. Computed quotes are not persisted; the
// order keeps the inputs plus the totals shown at checkout time.
type Order struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	QuoteID     string         `gorm:"uniqueIndex;size:64" json:"quote_id"`
	GrowerName  string         `gorm:"size:128" json:"grower_name"`
	GrowerEmail string         `gorm:"size:128" json:"grower_email"`
	FarmName    string         `gorm:"size:128" json:"farm_name,omitempty"`
	Phone       string         `gorm:"size:32" json:"phone,omitempty"`
	Notes       string         `gorm:"size:1024" json:"notes,omitempty"`
	Address1    string         `gorm:"size:128" json:"address1,omitempty"`
	Address2    string         `gorm:"size:128" json:"address2,omitempty"`
	City        string         `gorm:"size:64" json:"city,omitempty"`
	State       string         `gorm:"size:64" json:"state,omitempty"`
	PostalCode  string         `gorm:"size:16" json:"postal_code,omitempty"`
	Country     string         `gorm:"size:64" json:"country,omitempty"`
	Program     string         `gorm:"size:32;index" json:"program"`
	Status      OrderStatus    `gorm:"size:32;index" json:"status"`
	FieldCount  int            `json:"field_count"`
	TotalAcres  float64        `json:"total_acres"`
	AnnualTotal pricing.Amount `json:"annual_total"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Fields        []OrderField   `gorm:"constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	StatusChanges []StatusChange `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// OrderField is one submitted field on an order. Geometry is the raw
// GeoJSON the drawing UI produced, stored and re-exported verbatim.
type OrderField struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	OrderID     uuid.UUID      `gorm:"type:uuid;index" json:"-"`
	FieldRef    string         `gorm:"size:64" json:"id"`
	Name        string         `gorm:"size:128" json:"name,omitempty"`
	Acres       float64        `json:"acres"`
	CropProgram string         `gorm:"size:64" json:"crop_program,omitempty"`
	Notes       string         `gorm:"size:512" json:"notes,omitempty"`
	AnnualCost  pricing.Amount `json:"annual_cost"`
	Geometry    string         `gorm:"type:text" json:"-"`
	CreatedAt   time.Time      `json:"-"`
}

// StatusChange is the audit trail for order workflow transitions.
type StatusChange struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID   `gorm:"type:uuid;index"`
	From      OrderStatus `gorm:"size:32"`
	To        OrderStatus `gorm:"size:32"`
	CreatedAt time.Time
}

// AutoMigrate performs all schema migrations for the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Order{},
		&OrderField{},
		&StatusChange{},
	)
}
