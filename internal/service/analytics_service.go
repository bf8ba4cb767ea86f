package service

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/repository"
)

type AnalyticsService struct {
	eventRepo *repository.EventRepository
}

func NewAnalyticsService(eventRepo *repository.EventRepository) *AnalyticsService {
	return &AnalyticsService{eventRepo: eventRepo}
}

func (s *AnalyticsService) Track(req *dto.TrackEventRequest) error {
	event := &model.Event{
		UserID:    req.UserID,
		EventName: req.EventName,
		EventData: datatypes.JSONMap(req.EventData),
	}
	if event.EventData == nil {
		event.EventData = datatypes.JSONMap{}
	}

	if err := s.eventRepo.Create(event); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}

	log.Debug().Str("user_id", req.UserID).Str("event_name", req.EventName).Msg("event tracked")
	return nil
}
