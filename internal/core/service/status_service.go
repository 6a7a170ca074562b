package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/ports"
	"github.com/socialfeed/feed-api/internal/pkg/validate"
)

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

// StatusService reads and updates the status line of the calling user.
type StatusService struct {
	users     ports.UserRepository
	validator *validate.Validator
	log       zerolog.Logger
}

func NewStatusService(users ports.UserRepository, log zerolog.Logger) *StatusService {
	return &StatusService{users: users, validator: validate.New(), log: log}
}

func (s *StatusService) GetStatus(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

func (s *StatusService) UpdateStatus(ctx context.Context, userID, status string) (string, error) {
	in := statusInput{Status: strings.TrimSpace(status)}
	if err := s.validator.Struct(in, msgInvalidPost); err != nil {
		return "", err
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return "", err
	}
	if err := s.users.UpdateStatus(ctx, userID, in.Status); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("status updated")
	return in.Status, nil
}
