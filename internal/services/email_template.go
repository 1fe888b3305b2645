package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// placeholderRe matches printf-style named placeholders (%<name>s).
var placeholderRe = regexp.MustCompile(`%<([a-zA-Z0-9_]+)>s`)

type RenderedTemplate struct {
	Subject string
	Body    string
	Format  string
}

type EmailTemplateService interface {
	Create(ctx context.Context, tpl *types.EmailTemplate) (*types.EmailTemplate, error)
	Update(ctx context.Context, id uuid.UUID, updatedBy uuid.UUID, subject, body string, variables []string) (*types.EmailTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*types.EmailTemplate, error)
	GetByName(ctx context.Context, name string) (*types.EmailTemplate, error)
	List(ctx context.Context) ([]*types.EmailTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RenderByName(ctx context.Context, name string, vars map[string]string) (*RenderedTemplate, error)
}

type emailTemplateService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.EmailTemplateRepo
}

func NewEmailTemplateService(db *gorm.DB, log *logger.Logger, repo repos.EmailTemplateRepo) EmailTemplateService {
	serviceLog := log.With("service", "EmailTemplateService")
	return &emailTemplateService{db: db, log: serviceLog, repo: repo}
}

// ExtractPlaceholders returns the sorted set of %<name>s placeholder names in
// the given text.
func ExtractPlaceholders(text string) []string {
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidatePlaceholders checks subject and body against the declared variable
// allow-list. Undeclared placeholders are rejected.
func ValidatePlaceholders(subject, body string, allowed []string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	var bad []string
	for _, name := range ExtractPlaceholders(subject + "\n" + body) {
		if !allowedSet[name] {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("undeclared template variables: %s: %w", strings.Join(bad, ", "), pkgerrors.ErrInvalidArgument)
	}
	return nil
}

// RenderText substitutes %<name>s placeholders from vars. Every placeholder
// in the text must have a value.
func RenderText(text string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		val, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return val
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s: %w", strings.Join(missing, ", "), pkgerrors.ErrInvalidArgument)
	}
	return out, nil
}

func decodeVariables(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var vars []string
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("decode template variables: %w", err)
	}
	return vars, nil
}

func (s *emailTemplateService) Create(ctx context.Context, tpl *types.EmailTemplate) (*types.EmailTemplate, error) {
	if tpl == nil || strings.TrimSpace(tpl.Name) == "" {
		return nil, fmt.Errorf("template name required: %w", pkgerrors.ErrInvalidArgument)
	}
	if tpl.Format == "" {
		tpl.Format = types.TemplateFormatText
	}
	if tpl.Format != types.TemplateFormatText && tpl.Format != types.TemplateFormatHTML {
		return nil, fmt.Errorf("unknown template format %q: %w", tpl.Format, pkgerrors.ErrInvalidArgument)
	}
	declared, err := decodeVariables(tpl.Variables)
	if err != nil {
		return nil, err
	}
	if err := ValidatePlaceholders(tpl.Subject, tpl.Body, declared); err != nil {
		return nil, err
	}
	tpl.Version = 1
	created, err := s.repo.Create(ctx, nil, []*types.EmailTemplate{tpl})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, fmt.Errorf("template %q already exists: %w", tpl.Name, pkgerrors.ErrConflict)
		}
		return nil, fmt.Errorf("create email template: %w", err)
	}
	return created[0], nil
}

func (s *emailTemplateService) Update(ctx context.Context, id uuid.UUID, updatedBy uuid.UUID, subject, body string, variables []string) (*types.EmailTemplate, error) {
	if err := ValidatePlaceholders(subject, body, variables); err != nil {
		return nil, err
	}
	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("marshal template variables: %w", err)
	}
	var updated *types.EmailTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tpl, getErr := s.repo.GetByID(ctx, tx, id)
		if getErr != nil {
			if repos.IsNotFound(getErr) {
				return fmt.Errorf("email template: %w", pkgerrors.ErrNotFound)
			}
			return getErr
		}
		updates := map[string]any{
			"subject":    subject,
			"body":       body,
			"variables":  datatypes.JSON(varsJSON),
			"version":    tpl.Version + 1,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		}
		if uErr := s.repo.UpdateFields(ctx, tx, id, updates); uErr != nil {
			return uErr
		}
		updated, getErr = s.repo.GetByID(ctx, tx, id)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *emailTemplateService) Get(ctx context.Context, id uuid.UUID) (*types.EmailTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("email template: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return tpl, nil
}

func (s *emailTemplateService) GetByName(ctx context.Context, name string) (*types.EmailTemplate, error) {
	tpl, err := s.repo.GetByName(ctx, nil, name)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("email template %q: %w", name, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return tpl, nil
}

func (s *emailTemplateService) List(ctx context.Context) ([]*types.EmailTemplate, error) {
	return s.repo.List(ctx, nil)
}

func (s *emailTemplateService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, nil, id)
}

func (s *emailTemplateService) RenderByName(ctx context.Context, name string, vars map[string]string) (*RenderedTemplate, error) {
	tpl, err := s.repo.GetByName(ctx, nil, name)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("email template %q: %w", name, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	subject, err := RenderText(tpl.Subject, vars)
	if err != nil {
		return nil, fmt.Errorf("render subject for %q: %w", name, err)
	}
	body, err := RenderText(tpl.Body, vars)
	if err != nil {
		return nil, fmt.Errorf("render body for %q: %w", name, err)
	}
	return &RenderedTemplate{Subject: subject, Body: body, Format: tpl.Format}, nil
}
