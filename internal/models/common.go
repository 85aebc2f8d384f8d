// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Base model with common fields. Rows are never soft deleted.
type BaseModel struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB stores a free-form JSON object in a text column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// TagList is a postgres text[] column; other dialects keep the same
// array literal in a text column.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	return pq.StringArray(t).Value()
}

func (t *TagList) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	*t = TagList(arr)
	return nil
}

func (TagList) GormDataType() string {
	return "text"
}

func (TagList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Enums
type TradeType string

const (
	TradeTypeBlind     TradeType = "blind"
	TradeTypeScanBased TradeType = "scan_based"
)

func (t TradeType) Valid() bool {
	return t == TradeTypeBlind || t == TradeTypeScanBased
}

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCanceled  TradeStatus = "canceled"
	TradeStatusCompleted TradeStatus = "completed"
)

func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusPending, TradeStatusCanceled, TradeStatusCompleted:
		return true
	}
	return false
}

// ControlBar tracks where a printed barcode sits in its lifecycle.
type ControlBar int

const (
	ControlBarUnprinted ControlBar = 1
	ControlBarAvailable ControlBar = 2
	ControlBarReserved  ControlBar = 3
	ControlBarTraded    ControlBar = 4
)

func (c ControlBar) String() string {
	switch c {
	case ControlBarUnprinted:
		return "unprinted"
	case ControlBarAvailable:
		return "available"
	case ControlBarReserved:
		return "reserved"
	case ControlBarTraded:
		return "traded"
	}
	return "unknown"
}
