package entities

import "time"

// SavedSearch is a named filter in the global library. Tree holds the
// portable filter as JSON.
type SavedSearch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Tree      string    `gorm:"type:text;not null" json:"tree"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (SavedSearch) TableName() string {
	return "saved_searches"
}
