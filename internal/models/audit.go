// internal/models/audit.go
package models

type AuditLog struct {
	BaseModel
	Actor        string  `json:"actor" gorm:"size:100;index"`
	Action       string  `json:"action" gorm:"size:100;not null;index"`
	ResourceType string  `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uint64 `json:"resource_id" gorm:"index"`
	Status       int     `json:"status"`
	RequestID    string  `json:"request_id" gorm:"size:36"`
	NewValues    JSONB   `json:"new_values" gorm:"type:text"`
	IPAddress    string  `json:"ip_address" gorm:"size:45"`
	UserAgent    string  `json:"user_agent" gorm:"type:text"`
}
