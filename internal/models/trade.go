// internal/models/trade.go
package models

import (
	"time"
)

type Trader struct {
	BaseModel
	Name      string  `json:"name" gorm:"size:255;not null"`
	CountryID *uint64 `json:"country_id" gorm:"index"`
	Details   string  `json:"details" gorm:"type:text"`

	// Relationships
	Country *Country `json:"country,omitempty" gorm:"foreignKey:CountryID"`
}

type Trade struct {
	BaseModel
	TraderID      uint64      `json:"trader_id" gorm:"not null;index"`
	TradeType     TradeType   `json:"trade_type" gorm:"type:varchar(20);not null;check:chk_trades_trade_type,trade_type IN ('blind','scan_based')"`
	Status        TradeStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index;check:chk_trades_status,status IN ('pending','canceled','completed')"`
	DateStarted   time.Time   `json:"date_started" gorm:"not null"`
	DateCanceled  *time.Time  `json:"date_canceled"`
	DateCompleted *time.Time  `json:"date_completed"`
	Notes         string      `json:"notes" gorm:"type:text"`

	// Relationships
	Trader *Trader `json:"trader,omitempty" gorm:"foreignKey:TraderID;constraint:OnDelete:RESTRICT"`
}

func (t *Trade) IsPending() bool {
	return t.Status == TradeStatusPending
}
