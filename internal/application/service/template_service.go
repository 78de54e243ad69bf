package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/google/uuid"
)

// TemplateInput describes a template to create or replace
type TemplateInput struct {
	Name        string          `json:"template_name"`
	Description string          `json:"description"`
	Approvers   []ApproverInput `json:"approvers"`
}

// TemplatePatchInput is a partial template update; nil fields are unchanged
type TemplatePatchInput struct {
	Name        *string          `json:"template_name"`
	Description *string          `json:"description"`
	Approvers   *[]ApproverInput `json:"approvers"`
}

// TemplateService manages approval templates and approver lookup
type TemplateService interface {
	Create(ctx context.Context, actor *entity.User, input TemplateInput) (*entity.ApprovalTemplate, error)
	Update(ctx context.Context, actor *entity.User, id string, input TemplatePatchInput) (*entity.ApprovalTemplate, error)
	Delete(ctx context.Context, actor *entity.User, id string) error
	Get(ctx context.Context, id string) (*entity.ApprovalTemplate, error)
	List(ctx context.Context) ([]*entity.ApprovalTemplate, error)
	SearchApproverCandidates(ctx context.Context, query string, limit int) ([]*entity.User, error)
}

type templateServiceImpl struct {
	templates port.TemplateRepository
	users     port.UserRepository
	logger    Logger
}

// NewTemplateService creates a new TemplateService instance
func NewTemplateService(templates port.TemplateRepository, users port.UserRepository, logger Logger) TemplateService {
	return &templateServiceImpl{
		templates: templates,
		users:     users,
		logger:    logger,
	}
}

func (s *templateServiceImpl) Create(ctx context.Context, actor *entity.User, input TemplateInput) (*entity.ApprovalTemplate, error) {
	if err := requireRole(actor, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", approval.ErrValidation)
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	chain, err := s.resolveChain(ctx, input.Approvers)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tpl := &entity.ApprovalTemplate{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  input.Description,
		ApprovalPath: chain,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		s.logger.Error("Failed to create approval template", "error", err, "name", name)
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("Approval template created", "template_id", tpl.ID, "name", name, "approvers", len(chain))
	return tpl, nil
}

func (s *templateServiceImpl) Update(ctx context.Context, actor *entity.User, id string, input TemplatePatchInput) (*entity.ApprovalTemplate, error) {
	if err := requireRole(actor, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}

	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: template name is required", approval.ErrValidation)
		}
		if err := s.ensureUniqueName(ctx, name, tpl.ID); err != nil {
			return nil, err
		}
		tpl.Name = name
	}
	if input.Description != nil {
		tpl.Description = *input.Description
	}
	if input.Approvers != nil {
		chain, err := s.resolveChain(ctx, *input.Approvers)
		if err != nil {
			return nil, err
		}
		tpl.ApprovalPath = chain
	}
	tpl.UpdatedAt = time.Now()

	if err := s.templates.Update(ctx, tpl); err != nil {
		s.logger.Error("Failed to update approval template", "error", err, "template_id", id)
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	s.logger.Info("Approval template updated", "template_id", id)
	return tpl, nil
}

func (s *templateServiceImpl) Delete(ctx context.Context, actor *entity.User, id string) error {
	if err := requireRole(actor, entity.RoleGeneralAffair); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.templates.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete approval template", "error", err, "template_id", id)
		return fmt.Errorf("failed to delete template: %w", err)
	}

	s.logger.Info("Approval template deleted", "template_id", id)
	return nil
}

func (s *templateServiceImpl) Get(ctx context.Context, id string) (*entity.ApprovalTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, notFound("approval template", id)
	}
	return tpl, nil
}

func (s *templateServiceImpl) List(ctx context.Context) ([]*entity.ApprovalTemplate, error) {
	return s.templates.List(ctx)
}

func (s *templateServiceImpl) SearchApproverCandidates(ctx context.Context, query string, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > entity.DefaultCandidateLimit {
		limit = entity.DefaultCandidateLimit
	}
	return s.users.SearchByName(ctx, strings.TrimSpace(query), entity.RoleApprover, limit)
}

func (s *templateServiceImpl) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.templates.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check template name: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: template %q already exists", entity.ErrConflict, name)
	}
	return nil
}

func (s *templateServiceImpl) resolveChain(ctx context.Context, inputs []ApproverInput) (approval.Chain, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: a template needs at least one approver", approval.ErrValidation)
	}
	users, err := s.users.GetByIDs(ctx, inputIDs(inputs))
	if err != nil {
		return nil, fmt.Errorf("failed to load approvers: %w", err)
	}
	return buildChain(userIndex(users), inputs)
}
