package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/types"
)

//go:embed seed_data.yaml
var seedData []byte

type seedFile struct {
	EmailTemplates []struct {
		Name      string   `yaml:"name"`
		Format    string   `yaml:"format"`
		Subject   string   `yaml:"subject"`
		Body      string   `yaml:"body"`
		Variables []string `yaml:"variables"`
	} `yaml:"email_templates"`
	RejectionReasons []struct {
		Code        string `yaml:"code"`
		Category    string `yaml:"category"`
		Description string `yaml:"description"`
		Remedy      string `yaml:"remedy"`
	} `yaml:"rejection_reasons"`
}

// SeedDefaults inserts the default email templates and rejection reasons.
// Existing rows (matched by name/code) are left alone so admin edits survive
// restarts.
func (s *PostgresService) SeedDefaults(ctx context.Context) error {
	var f seedFile
	if err := yaml.Unmarshal(seedData, &f); err != nil {
		return fmt.Errorf("parse seed data: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range f.EmailTemplates {
			var count int64
			if err := tx.Model(&types.EmailTemplate{}).Where("name = ?", t.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			vars, err := json.Marshal(t.Variables)
			if err != nil {
				return fmt.Errorf("marshal template variables for %s: %w", t.Name, err)
			}
			tpl := types.EmailTemplate{
				Name:      t.Name,
				Format:    t.Format,
				Subject:   t.Subject,
				Body:      t.Body,
				Version:   1,
				Variables: datatypes.JSON(vars),
			}
			if err := tx.Create(&tpl).Error; err != nil {
				return fmt.Errorf("seed email template %s: %w", t.Name, err)
			}
		}
		for _, rr := range f.RejectionReasons {
			var count int64
			if err := tx.Model(&types.RejectionReason{}).Where("code = ?", rr.Code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			reason := types.RejectionReason{
				Code:        rr.Code,
				Category:    rr.Category,
				Description: rr.Description,
				Remedy:      rr.Remedy,
			}
			if err := tx.Create(&reason).Error; err != nil {
				return fmt.Errorf("seed rejection reason %s: %w", rr.Code, err)
			}
		}
		s.log.Info("Seeded default email templates and rejection reasons")
		return nil
	})
}
