package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a product analytics event.
type Event struct {
	ID        int64             `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;not null;index" json:"user_id"`
	EventName string            `gorm:"size:100;not null;index" json:"event_name"`
	EventData datatypes.JSONMap `gorm:"type:json" json:"event_data"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}
