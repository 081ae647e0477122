package rsvp_service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/repository"
	"rallypoint-bot/internal/service"
	"rallypoint-bot/internal/service/recurrence"
)

type rsvpService struct {
	rsvps  repository.RSVPRepository
	events repository.EventRepository
	log    *zap.Logger
}

func NewRSVPService(
	rsvps repository.RSVPRepository,
	events repository.EventRepository,
	log *zap.Logger,
) service.RSVPService {
	return &rsvpService{
		rsvps:  rsvps,
		events: events,
		log:    log,
	}
}

// SetResponse validates first and writes nothing on bad input. Only ACTIVE
// events accept responses; an ENDED event is closed for good.
func (s *rsvpService) SetResponse(ctx context.Context, eventID int64, userID, choice string) error {
	choice = strings.ToUpper(strings.TrimSpace(choice))
	switch choice {
	case models.RSVPYes, models.RSVPNo, models.RSVPMaybe:
	default:
		return &recurrence.ValidationError{Field: "choice", Reason: "must be YES, NO or MAYBE"}
	}
	if userID == "" {
		return &recurrence.ValidationError{Field: "user", Reason: "must not be empty"}
	}

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("event %d not found", eventID)
	}
	if e.Status != models.EventStatusActive {
		return fmt.Errorf("event %d is not active", eventID)
	}

	return s.rsvps.Upsert(ctx, &models.RSVP{
		EventID: eventID,
		UserID:  userID,
		Choice:  choice,
	})
}

func (s *rsvpService) Counts(ctx context.Context, eventID int64) (models.RSVPCounts, error) {
	return s.rsvps.CountsByEvent(ctx, eventID)
}

func (s *rsvpService) Responses(ctx context.Context, eventID int64) ([]models.RSVP, error) {
	return s.rsvps.ListByEvent(ctx, eventID)
}
