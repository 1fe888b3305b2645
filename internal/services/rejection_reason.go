package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type RejectionReasonInput struct {
	Code        string
	Category    string
	Description string
	Remedy      string
}

type RejectionReasonService interface {
	Create(ctx context.Context, input RejectionReasonInput) (*types.RejectionReason, error)
	Update(ctx context.Context, id uuid.UUID, input RejectionReasonInput) (*types.RejectionReason, error)
	Get(ctx context.Context, id uuid.UUID) (*types.RejectionReason, error)
	List(ctx context.Context, category string) ([]*types.RejectionReason, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type rejectionReasonService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.RejectionReasonRepo
}

func NewRejectionReasonService(db *gorm.DB, log *logger.Logger, repo repos.RejectionReasonRepo) RejectionReasonService {
	serviceLog := log.With("service", "RejectionReasonService")
	return &rejectionReasonService{db: db, log: serviceLog, repo: repo}
}

func validateReasonInput(input RejectionReasonInput) error {
	if input.Code == "" {
		return fmt.Errorf("code required: %w", pkgerrors.ErrInvalidArgument)
	}
	if !types.ValidRejectionCategory(input.Category) {
		return fmt.Errorf("unknown category %q: %w", input.Category, pkgerrors.ErrInvalidArgument)
	}
	if input.Description == "" {
		return fmt.Errorf("description required: %w", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

func (s *rejectionReasonService) Create(ctx context.Context, input RejectionReasonInput) (*types.RejectionReason, error) {
	if err := validateReasonInput(input); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, nil, []*types.RejectionReason{{
		Code:        input.Code,
		Category:    input.Category,
		Description: input.Description,
		Remedy:      input.Remedy,
	}})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, fmt.Errorf("rejection reason code %q already exists: %w", input.Code, pkgerrors.ErrConflict)
		}
		return nil, err
	}
	return created[0], nil
}

func (s *rejectionReasonService) Update(ctx context.Context, id uuid.UUID, input RejectionReasonInput) (*types.RejectionReason, error) {
	if err := validateReasonInput(input); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, nil, id); err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("rejection reason not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, nil, id, map[string]any{
		"code":        input.Code,
		"category":    input.Category,
		"description": input.Description,
		"remedy":      input.Remedy,
		"updated_at":  time.Now(),
	}); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, fmt.Errorf("rejection reason code %q already exists: %w", input.Code, pkgerrors.ErrConflict)
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, nil, id)
}

func (s *rejectionReasonService) Get(ctx context.Context, id uuid.UUID) (*types.RejectionReason, error) {
	reason, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("rejection reason not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return reason, nil
}

func (s *rejectionReasonService) List(ctx context.Context, category string) ([]*types.RejectionReason, error) {
	if category != "" && !types.ValidRejectionCategory(category) {
		return nil, fmt.Errorf("unknown category %q: %w", category, pkgerrors.ErrInvalidArgument)
	}
	return s.repo.List(ctx, nil, category)
}

func (s *rejectionReasonService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, nil, id); err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("rejection reason not found: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	return s.repo.Delete(ctx, nil, id)
}
