// internal/models/barcode.go
package models

// BarcodeInstance is one physical printed barcode for one cap design.
// control_bar = 3 exactly when reserved_trade_id is set.
type BarcodeInstance struct {
	BaseModel
	Barcode         string     `json:"barcode" gorm:"size:64;not null;uniqueIndex"`
	SheetRef        string     `json:"sheet_ref" gorm:"size:64;index"`
	CapID           uint64     `json:"cap_id" gorm:"not null;index"`
	ControlBar      ControlBar `json:"control_bar" gorm:"not null;default:1;index;check:chk_barcode_control_bar,control_bar IN (1,2,3,4)"`
	ReservedTradeID *uint64    `json:"reserved_trade_id" gorm:"index;check:chk_barcode_reservation,(control_bar = 3) = (reserved_trade_id IS NOT NULL)"`
	TradedTradeID   *uint64    `json:"traded_trade_id,omitempty" gorm:"index"`

	// Relationships
	Cap           *Cap   `json:"cap,omitempty" gorm:"foreignKey:CapID"`
	ReservedTrade *Trade `json:"-" gorm:"foreignKey:ReservedTradeID"`
	TradedTrade   *Trade `json:"-" gorm:"foreignKey:TradedTradeID"`
}

func (b *BarcodeInstance) IsAvailable() bool {
	return b.ControlBar == ControlBarAvailable && b.ReservedTradeID == nil
}
