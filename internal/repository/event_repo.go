package repository

import (
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(event *model.Event) error {
	return r.db.Create(event).Error
}
