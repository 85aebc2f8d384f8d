// internal/models/cap.go
package models

type Country struct {
	BaseModel
	Name    string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	ISOCode string `json:"iso_code" gorm:"size:3"`
}

// Cap is a catalogued cap design, not a physical unit.
type Cap struct {
	BaseModel
	Name        string  `json:"name" gorm:"size:255;not null"`
	CountryID   *uint64 `json:"country_id" gorm:"index"`
	Description string  `json:"description" gorm:"type:text"`
	Tags        TagList `json:"tags"`

	// Relationships
	Country *Country `json:"country,omitempty" gorm:"foreignKey:CountryID"`
}
