package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is a tenant's position in one asset. AvgBuyPrice is the cost basis and is only
// changed by manual edits, never by exchange reconciliation.
type Holding struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_holdings_owner_asset,where:deleted_at IS NULL" json:"owner_id"`
	Asset       string          `gorm:"not null;uniqueIndex:idx_holdings_owner_asset,where:deleted_at IS NULL" json:"asset"`
	Amount      decimal.Decimal `gorm:"type:numeric(36,18);not null" json:"amount"`
	AvgBuyPrice decimal.Decimal `gorm:"type:numeric(36,18);not null" json:"avg_buy_price"`
	Tags        pq.StringArray  `gorm:"type:text[]" json:"tags"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Holding) TableName() string {
	return "holdings"
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
