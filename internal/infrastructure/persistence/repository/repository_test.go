package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement/migrations"
	"github.com/garyjia/procurement/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(context.Background(), migrations.FS)
	require.NoError(t, err)

	return db
}

func newMR(id, number string) *entity.Document {
	return &entity.Document{
		ID:          id,
		Kind:        entity.KindMaterialRequest,
		Number:      number,
		Title:       "Site consumables",
		Company:     "PT Alpha",
		RequesterID: "req-1",
		Status:      workflow.StateDraft,
		CostCenter:  "CC-100",
		Items: []entity.LineItem{
			{Name: "Gloves", Quantity: 20, Unit: "pair"},
		},
	}
}

func chainOf(t *testing.T, ids ...string) approval.Chain {
	t.Helper()
	as := make([]approval.Approver, len(ids))
	for i, id := range ids {
		as[i] = approval.Approver{UserID: id, Name: "User " + id, Kind: approval.KindApprove}
	}
	c, err := approval.NewChain(as)
	require.NoError(t, err)
	return c
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	doc := newMR("mr-1", "MR-2024-0001")
	doc.Chain = chainOf(t, "a", "b")
	require.NoError(t, repo.Create(ctx, doc))
	assert.Equal(t, int64(1), doc.Version)

	got, err := repo.GetByID(ctx, "mr-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.KindMaterialRequest, got.Kind)
	assert.Equal(t, workflow.StateDraft, got.Status)
	assert.Equal(t, "CC-100", got.CostCenter)
	assert.Empty(t, got.MaterialRequestID)
	assert.Equal(t, []string{"a", "b"}, got.Chain.UserIDs())
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Gloves", got.Items[0].Name)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, newMR("mr-2", "MR-2024-0001"))
	assert.True(t, errors.Is(err, entity.ErrConflict), "duplicate number must conflict, got %v", err)
}

func TestDocumentRepository_UpdateIsVersionGuarded(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newMR("mr-1", "MR-2024-0001")))

	first, err := repo.GetByID(ctx, "mr-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "mr-1")
	require.NoError(t, err)

	first.Status = workflow.StatePendingValidation
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Title = "stale write"
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, entity.ErrConflict)

	got, err := repo.GetByID(ctx, "mr-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingValidation, got.Status)
	assert.Equal(t, "Site consumables", got.Title)
	assert.Equal(t, int64(2), got.Version)
}

func TestDocumentRepository_ListAwaiting(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	doc := newMR("mr-1", "MR-2024-0001")
	doc.Status = workflow.StatePendingApproval
	doc.Chain = chainOf(t, "a", "b")
	require.NoError(t, repo.Create(ctx, doc))

	draft := newMR("mr-2", "MR-2024-0002")
	draft.Chain = chainOf(t, "a")
	require.NoError(t, repo.Create(ctx, draft))

	forA, err := repo.ListAwaiting(ctx, "a", workflow.StatePendingApproval)
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, "mr-1", forA[0].ID)

	forB, err := repo.ListAwaiting(ctx, "b", "")
	require.NoError(t, err)
	assert.Empty(t, forB)

	doc.Chain, _, err = approval.Apply(doc.Chain, "a", approval.ActionApprove, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, doc))

	forA, err = repo.ListAwaiting(ctx, "a", "")
	require.NoError(t, err)
	assert.Empty(t, forA)

	forB, err = repo.ListAwaiting(ctx, "b", workflow.StatePendingApproval)
	require.NoError(t, err)
	assert.Len(t, forB, 1)
}

func TestDocumentRepository_ActivePurchaseOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mr := newMR("mr-1", "MR-2024-0001")
	mr.Status = workflow.StateWaitingPO
	require.NoError(t, repo.Create(ctx, mr))

	po := &entity.Document{
		ID:                "po-1",
		Kind:              entity.KindPurchaseOrder,
		Number:            "PO-2024-0001",
		RequesterID:       "buyer",
		Status:            workflow.StateDraft,
		MaterialRequestID: "mr-1",
		VendorName:        "CV Maju",
	}
	require.NoError(t, repo.Create(ctx, po))

	active, err := repo.GetActivePurchaseOrder(ctx, "mr-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "po-1", active.ID)

	second := *po
	second.ID = "po-2"
	second.Number = "PO-2024-0002"
	err = repo.Create(ctx, &second)
	assert.ErrorIs(t, err, entity.ErrConflict, "only one active PO per MR")

	po.Status = workflow.StateRejected
	require.NoError(t, repo.Update(ctx, po))

	active, err = repo.GetActivePurchaseOrder(ctx, "mr-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	require.NoError(t, repo.Create(ctx, &second), "a rejected PO frees the MR")
}

func TestDocumentRepository_NextNumberAndCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	n, err := repo.NextNumber(ctx, entity.KindMaterialRequest, at)
	require.NoError(t, err)
	assert.Equal(t, "MR-2024-0001", n)

	require.NoError(t, repo.Create(ctx, newMR("mr-1", n)))

	n, err = repo.NextNumber(ctx, entity.KindMaterialRequest, at)
	require.NoError(t, err)
	assert.Equal(t, "MR-2024-0002", n)

	n, err = repo.NextNumber(ctx, entity.KindPurchaseOrder, at)
	require.NoError(t, err)
	assert.Equal(t, "PO-2024-0001", n)

	counts, err := repo.CountByStatus(ctx, "PT Alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[workflow.StateDraft])

	counts, err = repo.CountByStatus(ctx, "PT Other")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestDocumentRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newMR("mr-1", "MR-2024-0001")))
	other := newMR("mr-2", "MR-2024-0002")
	other.Company = "PT Beta"
	other.Status = workflow.StatePendingValidation
	require.NoError(t, repo.Create(ctx, other))

	all, err := repo.List(ctx, entity.DocumentFilter{Kind: entity.KindMaterialRequest})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	beta, err := repo.List(ctx, entity.DocumentFilter{Company: "PT Beta", Status: workflow.StatePendingValidation})
	require.NoError(t, err)
	require.Len(t, beta, 1)
	assert.Equal(t, "mr-2", beta[0].ID)
}

func TestTransactionRollback(t *testing.T) {
	db := newTestDB(t)
	tx := sqlite.NewDB(db.DB, zap.NewNop())
	repo := NewDocumentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NotNil(t, sqlite.TxFromContext(ctx))
		if err := repo.Create(ctx, newMR("mr-1", "MR-2024-0001")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "mr-1")
	require.NoError(t, err)
	assert.Nil(t, got, "insert inside a failed transaction must be rolled back")
}

func TestTemplateRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	tpl := &entity.ApprovalTemplate{
		ID:           "tpl-1",
		Name:         "Standard",
		Description:  "Manager then director",
		ApprovalPath: chainOf(t, "mgr", "dir"),
	}
	require.NoError(t, repo.Create(ctx, tpl))

	dup := *tpl
	dup.ID = "tpl-2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), entity.ErrConflict)

	got, err := repo.GetByName(ctx, "Standard")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"mgr", "dir"}, got.ApprovalPath.UserIDs())

	got.Description = "updated"
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "updated", list[0].Description)

	require.NoError(t, repo.Delete(ctx, "tpl-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "tpl-1"), entity.ErrNotFound)

	got, err = repo.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_Search(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	users := []*entity.User{
		{ID: "u1", Name: "Budi Santoso", Role: entity.RoleApprover},
		{ID: "u2", Name: "Budiman", Role: entity.RoleRequester},
		{ID: "u3", Name: "Siti Budiarti", Role: entity.RoleApprover},
		{ID: "u4", Name: "Andi", Role: entity.RoleApprover},
	}
	for _, u := range users {
		require.NoError(t, repo.Upsert(ctx, u))
	}

	found, err := repo.SearchByName(ctx, "BUDI", entity.RoleApprover, 10)
	require.NoError(t, err)
	var ids []string
	for _, u := range found {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"u1", "u3"}, ids)

	limited, err := repo.SearchByName(ctx, "", entity.RoleApprover, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, repo.Upsert(ctx, &entity.User{ID: "u4", Name: "Andi Wijaya", Role: entity.RoleApprover}))
	u4, err := repo.GetByID(ctx, "u4")
	require.NoError(t, err)
	assert.Equal(t, "Andi Wijaya", u4.Name)

	some, err := repo.GetByIDs(ctx, []string{"u1", "u4", "ghost"})
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestNotificationRepository_Feed(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, repo.Create(ctx, &entity.Notification{
			ID:              id,
			RecipientUserID: "u1",
			Type:            entity.NotificationApprovalNeeded,
			Title:           "Approval needed",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}))
	}

	unread, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	require.NoError(t, repo.MarkRead(ctx, "n2", "u1", base.Add(time.Hour)))
	assert.ErrorIs(t, repo.MarkRead(ctx, "n2", "someone-else", base), entity.ErrNotFound)

	feed, err := repo.ListByRecipient(ctx, "u1", false, 10)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, "n3", feed[0].ID, "newest first")
	assert.True(t, feed[1].IsRead())

	onlyUnread, err := repo.ListByRecipient(ctx, "u1", true, 10)
	require.NoError(t, err)
	assert.Len(t, onlyUnread, 2)
}

func TestHistoryAndCommentRepositories(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db.DB, zap.NewNop())
	history := NewHistoryRepository(db.DB, zap.NewNop())
	comments := NewCommentRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, newMR("mr-1", "MR-2024-0001")))

	h := &entity.DocumentHistory{
		DocumentID:     "mr-1",
		ActorID:        "req-1",
		Action:         entity.ActionSubmitted,
		PreviousStatus: string(workflow.StateDraft),
		NewStatus:      string(workflow.StatePendingValidation),
	}
	require.NoError(t, history.Create(ctx, h))
	assert.NotZero(t, h.ID)

	records, err := history.GetByDocumentID(ctx, "mr-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.ActionSubmitted, records[0].Action)

	require.NoError(t, comments.Create(ctx, &entity.Comment{
		ID:         "c1",
		DocumentID: "mr-1",
		AuthorID:   "req-1",
		Body:       "@Budi please check",
		Mentions:   []string{"u1"},
	}))

	list, err := comments.ListByDocument(ctx, "mr-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"u1"}, list[0].Mentions)
}
