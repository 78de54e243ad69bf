// Package seed loads a YAML directory of users and approval templates
// and applies it idempotently.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the seed document layout
type File struct {
	Users     []entity.User  `yaml:"users"`
	Templates []TemplateSeed `yaml:"templates"`
}

// TemplateSeed describes a template by approver user IDs and kinds
type TemplateSeed struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Approvers   []ApproverSeed `yaml:"approvers"`
}

// ApproverSeed is one template position
type ApproverSeed struct {
	UserID string        `yaml:"user_id"`
	Kind   approval.Kind `yaml:"kind"`
}

// Result counts what Apply changed
type Result struct {
	Users            int
	TemplatesCreated int
	TemplatesSkipped int
}

// Load reads and parses a seed file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	known := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
		if known[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %q", i, u.ID)
		}
		if u.Email != "" {
			if err := utils.ValidateEmail(u.Email); err != nil {
				return fmt.Errorf("users[%d]: %w", i, err)
			}
		}
		if err := utils.ValidateOneOf("role", u.Role,
			entity.RoleGeneralAffair, entity.RoleApprover, entity.RolePurchasing, entity.RoleRequester); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		known[u.ID] = true
	}

	for i, t := range f.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("templates[%d]: name is required", i)
		}
		if len(t.Approvers) == 0 {
			return fmt.Errorf("templates[%d] %q: at least one approver is required", i, t.Name)
		}
		for _, a := range t.Approvers {
			if !known[a.UserID] {
				return fmt.Errorf("templates[%d] %q: unknown approver %q", i, t.Name, a.UserID)
			}
		}
	}
	return nil
}

// Seeder writes seed data through the repositories
type Seeder struct {
	users     port.UserRepository
	templates port.TemplateRepository
	txManager port.TransactionManager
	logger    *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(users port.UserRepository, templates port.TemplateRepository, txManager port.TransactionManager, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:     users,
		templates: templates,
		txManager: txManager,
		logger:    logger,
	}
}

// Apply upserts every user and creates templates whose name is not taken yet.
// Existing templates are left alone so edits made through the API survive restarts.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	result := &Result{}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		directory := make(map[string]*entity.User, len(f.Users))
		for i := range f.Users {
			u := f.Users[i]
			if err := s.users.Upsert(txCtx, &u); err != nil {
				return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
			}
			directory[u.ID] = &u
			result.Users++
		}

		for _, t := range f.Templates {
			existing, err := s.templates.GetByName(txCtx, t.Name)
			if err != nil {
				return fmt.Errorf("failed to look up template %s: %w", t.Name, err)
			}
			if existing != nil {
				result.TemplatesSkipped++
				continue
			}

			chain, err := buildChain(directory, t.Approvers)
			if err != nil {
				return fmt.Errorf("template %s: %w", t.Name, err)
			}

			now := time.Now()
			tpl := &entity.ApprovalTemplate{
				ID:           uuid.NewString(),
				Name:         t.Name,
				Description:  t.Description,
				ApprovalPath: chain,
				CreatedBy:    "seed",
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.templates.Create(txCtx, tpl); err != nil {
				return fmt.Errorf("failed to create template %s: %w", t.Name, err)
			}
			result.TemplatesCreated++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Seeding failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Seed applied",
		zap.Int("users", result.Users),
		zap.Int("templates_created", result.TemplatesCreated),
		zap.Int("templates_skipped", result.TemplatesSkipped))
	return result, nil
}

func buildChain(directory map[string]*entity.User, approvers []ApproverSeed) (approval.Chain, error) {
	inputs := make([]approval.Approver, 0, len(approvers))
	for _, a := range approvers {
		u := directory[a.UserID]
		kind := a.Kind
		if kind == "" {
			kind = approval.KindApprove
		}
		inputs = append(inputs, approval.Approver{
			UserID:     u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       u.Role,
			Department: u.Department,
			Kind:       kind,
		})
	}
	return approval.NewChain(inputs)
}
