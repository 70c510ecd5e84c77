package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a tenant. Every portfolio record is owned by exactly one user.
type User struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string      `gorm:"not null;uniqueIndex" json:"email"`
	Name       string      `json:"name"`
	ApiSetting *ApiSetting `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ApiSetting stores the third-party credentials of a tenant.
type ApiSetting struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	ExchangeAPIKey   string    `gorm:"column:exchange_api_key" json:"-"`
	ExchangeSecret   string    `gorm:"column:exchange_api_secret" json:"-"`
	GrokAPIKey       string    `gorm:"column:grok_api_key" json:"-"`
	OpenAIAPIKey     string    `gorm:"column:openai_api_key" json:"-"`
	DeepseekAPIKey   string    `gorm:"column:deepseek_api_key" json:"-"`
	GeminiAPIKey     string    `gorm:"column:gemini_api_key" json:"-"`
	ResendAPIKey     string    `gorm:"column:resend_api_key" json:"-"`
	ResendFrom       string    `gorm:"column:resend_from" json:"resend_from"`
	DailyEmailTo     string    `gorm:"column:daily_email_to" json:"daily_email_to"`
	DailyEmailActive bool      `gorm:"column:daily_email_active;default:true" json:"daily_email_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ApiSetting) TableName() string {
	return "api_settings"
}

func (s *ApiSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HasExchangeCredentials reports whether both exchange key and secret are set.
func (s *ApiSetting) HasExchangeCredentials() bool {
	return s != nil && s.ExchangeAPIKey != "" && s.ExchangeSecret != ""
}
