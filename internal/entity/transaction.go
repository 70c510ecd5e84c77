package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "BUY"
	TransactionTypeSell     TransactionType = "SELL"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// TransactionSourceManual marks transactions entered by hand; exchange imports use the exchange name.
const TransactionSourceManual = "manual"

// Transaction is a single fill or ledger movement. ExternalID is globally unique so re-importing
// the same exchange fill is a no-op.
type Transaction struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	HoldingID  *uuid.UUID      `gorm:"type:uuid;index" json:"holding_id,omitempty"`
	Type       TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	Symbol     string          `gorm:"not null;index" json:"symbol"`
	Quantity   decimal.Decimal `gorm:"type:numeric(36,18);not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:numeric(36,18);not null" json:"price"`
	Fee        decimal.Decimal `gorm:"type:numeric(36,18);not null;default:0" json:"fee"`
	ExecutedAt time.Time       `gorm:"not null" json:"executed_at"`
	Source     string          `gorm:"not null;default:manual" json:"source"`
	ExternalID *string         `gorm:"uniqueIndex" json:"external_id,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
