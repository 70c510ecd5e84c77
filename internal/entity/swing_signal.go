package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SwingSignal is one AI-generated trade idea. The batch for an owner is replaced as a whole.
type SwingSignal struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Symbol     string         `gorm:"not null" json:"symbol"`
	Thesis     string         `gorm:"type:text" json:"thesis"`
	Confidence float64        `gorm:"not null" json:"confidence"`
	EntryPrice *float64       `json:"entry_price,omitempty"`
	StopLoss   *float64       `json:"stop_loss,omitempty"`
	TakeProfit *float64       `json:"take_profit,omitempty"`
	Source     string         `gorm:"not null" json:"source"`
	Raw        datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (SwingSignal) TableName() string {
	return "swing_signals"
}

func (s *SwingSignal) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
