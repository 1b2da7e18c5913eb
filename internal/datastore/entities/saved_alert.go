package entities

import "time"

// SavedAlert is a standing alert. Names are unique per context; an empty
// ContextKey means the alert watches every context. Tree holds the reference
// (portable) form of the filter as JSON; the bound form is rebuilt on load.
type SavedAlert struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ContextKey   string    `gorm:"size:255;not null;default:'';uniqueIndex:idx_saved_alert_context_name,priority:1" json:"context_key"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:idx_saved_alert_context_name,priority:2" json:"name"`
	Tree         string    `gorm:"type:text;not null" json:"tree"`
	Priority     string    `gorm:"size:20;not null;default:'medium'" json:"priority"`
	SustainTicks int64     `gorm:"not null;default:0" json:"sustain_ticks"`
	Threshold    int       `gorm:"not null" json:"threshold"`
	Comparison   string    `gorm:"size:20;not null;default:'greater_or_equal'" json:"comparison"`
	MaxCulprits  int       `gorm:"not null;default:16" json:"max_culprits"`
	State        string    `gorm:"size:10;not null;default:'idle'" json:"state"`
	SinceTick    int64     `gorm:"not null;default:0" json:"since_tick"`
	ClockTick    int64     `gorm:"not null;default:0" json:"clock_tick"` // scheduler clock when written
	RunningCount int       `gorm:"not null;default:0" json:"running_count"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (SavedAlert) TableName() string {
	return "saved_alerts"
}
