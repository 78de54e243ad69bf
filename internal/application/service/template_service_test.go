package service

import (
	"context"
	"testing"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplateFixture(templates ...*entity.ApprovalTemplate) (TemplateService, *mockTemplateRepo) {
	repo := newMockTemplateRepo(templates...)
	users := newMockUserRepo(
		testUser("ga", entity.RoleGeneralAffair),
		testUser("a", entity.RoleApprover),
		testUser("b", entity.RoleApprover),
	)
	return NewTemplateService(repo, users, &mockLogger{}), repo
}

func TestTemplateService_Create(t *testing.T) {
	svc, repo := newTemplateFixture()
	ga := testUser("ga", entity.RoleGeneralAffair)

	tpl, err := svc.Create(context.Background(), ga, TemplateInput{
		Name: " Standard ",
		Approvers: []ApproverInput{
			{UserID: "a", Kind: approval.KindApprove},
			{UserID: "b", Kind: approval.KindAcknowledge},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Standard", tpl.Name)
	assert.Equal(t, "ga", tpl.CreatedBy)
	assert.Equal(t, []string{"a", "b"}, tpl.ApprovalPath.UserIDs())
	assert.Equal(t, "a@example.com", tpl.ApprovalPath[0].Email)
	assert.Contains(t, repo.templates, tpl.ID)
}

func TestTemplateService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	existing := &entity.ApprovalTemplate{ID: "t1", Name: "Standard", ApprovalPath: mustChain("a")}
	svc, _ := newTemplateFixture(existing)
	ga := testUser("ga", entity.RoleGeneralAffair)
	one := []ApproverInput{{UserID: "a", Kind: approval.KindApprove}}

	_, err := svc.Create(ctx, testUser("a", entity.RoleApprover), TemplateInput{Name: "x", Approvers: one})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = svc.Create(ctx, ga, TemplateInput{Name: "", Approvers: one})
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = svc.Create(ctx, ga, TemplateInput{Name: "Empty"})
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = svc.Create(ctx, ga, TemplateInput{Name: "Ghost", Approvers: []ApproverInput{{UserID: "ghost", Kind: approval.KindApprove}}})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.Create(ctx, ga, TemplateInput{Name: "Bad kind", Approvers: []ApproverInput{{UserID: "a", Kind: "Maybe"}}})
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = svc.Create(ctx, ga, TemplateInput{Name: "Standard", Approvers: one})
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestTemplateService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	existing := &entity.ApprovalTemplate{ID: "t1", Name: "Standard", Description: "old", ApprovalPath: mustChain("a")}
	svc, repo := newTemplateFixture(existing)
	ga := testUser("ga", entity.RoleGeneralAffair)

	desc := "two step"
	approvers := []ApproverInput{{UserID: "b", Kind: approval.KindApprove}, {UserID: "a", Kind: approval.KindApprove}}
	tpl, err := svc.Update(ctx, ga, "t1", TemplatePatchInput{Description: &desc, Approvers: &approvers})
	require.NoError(t, err)
	assert.Equal(t, "Standard", tpl.Name, "name left unchanged")
	assert.Equal(t, "two step", tpl.Description)
	assert.Equal(t, []string{"b", "a"}, tpl.ApprovalPath.UserIDs())

	same := "Standard"
	_, err = svc.Update(ctx, ga, "t1", TemplatePatchInput{Name: &same})
	assert.NoError(t, err, "renaming to its own name is allowed")

	_, err = svc.Update(ctx, ga, "missing", TemplatePatchInput{Description: &desc})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, ga, "t1"))
	assert.Equal(t, []string{"t1"}, repo.deleted)
	assert.ErrorIs(t, svc.Delete(ctx, ga, "t1"), entity.ErrNotFound)
}

func TestTemplateService_SearchApproverCandidatesLimit(t *testing.T) {
	svc, _ := newTemplateFixture()

	users, err := svc.SearchApproverCandidates(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = svc.SearchApproverCandidates(context.Background(), "", 500)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, entity.RoleApprover, u.Role)
	}
}

func TestTemplateService_SearchApproverCandidatesOnlyApprovers(t *testing.T) {
	users := newMockUserRepo(
		&entity.User{ID: "u1", Name: "Budi Santoso", Role: entity.RoleApprover},
		&entity.User{ID: "u2", Name: "Budi Hartono", Role: entity.RoleRequester},
		&entity.User{ID: "u3", Name: "Budiman", Role: entity.RoleGeneralAffair},
		&entity.User{ID: "u4", Name: "Sari", Role: entity.RoleApprover},
	)
	svc := NewTemplateService(newMockTemplateRepo(), users, &mockLogger{})

	found, err := svc.SearchApproverCandidates(context.Background(), "  budi ", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "u1", found[0].ID)
}
