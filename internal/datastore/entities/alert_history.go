package entities

import "time"

// AlertHistory records each time an alert starts firing. It is keyed by
// name rather than by row id so entries outlive the alert.
type AlertHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContextKey string    `gorm:"size:255;not null;default:'';index:idx_alert_history_alert,priority:1" json:"context_key"`
	AlertName  string    `gorm:"size:255;not null;index:idx_alert_history_alert,priority:2" json:"alert_name"`
	FiredAt    time.Time `gorm:"not null;index" json:"fired_at"`
	FiredTick  int64     `gorm:"not null" json:"fired_tick"`
	Count      int       `gorm:"not null" json:"count"`
	Priority   string    `gorm:"size:20;default:''" json:"priority"`
	Culprits   string    `gorm:"type:text" json:"culprits"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (AlertHistory) TableName() string {
	return "alert_history"
}
