package service

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentFixture struct {
	svc       DocumentService
	docs      *mockDocumentRepo
	history   *mockHistoryRepo
	publisher *mockPublisher
}

func newDocumentFixture(docs ...*entity.Document) *documentFixture {
	f := &documentFixture{
		docs:      newMockDocumentRepo(docs...),
		history:   &mockHistoryRepo{},
		publisher: &mockPublisher{},
	}
	f.svc = NewDocumentService(f.docs, f.history, &mockTxManager{}, &mockExporter{}, f.publisher, &mockLogger{})
	return f
}

func sampleItems() []entity.LineItem {
	return []entity.LineItem{{Name: "Cement", Quantity: 10, Unit: "sak", UnitPrice: 65000}}
}

func TestDocumentService_CreateMaterialRequest(t *testing.T) {
	f := newDocumentFixture()
	requester := testUser("req", entity.RoleRequester)
	requester.Department = "Site Ops"

	doc, err := f.svc.CreateMaterialRequest(context.Background(), requester, MaterialRequestInput{
		Title: "  Site materials ",
		Items: sampleItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.KindMaterialRequest, doc.Kind)
	assert.Equal(t, workflow.StateDraft, doc.Status)
	assert.Equal(t, "Site materials", doc.Title)
	assert.Equal(t, "ACME", doc.Company)
	assert.Equal(t, "Site Ops", doc.Department)
	assert.Equal(t, "req", doc.RequesterID)
	assert.Equal(t, "MR-"+time.Now().Format("2006")+"-0001", doc.Number)
	assert.Equal(t, []string{entity.ActionCreated}, f.history.actions(doc.ID))
}

func TestDocumentService_CreateMaterialRequestValidation(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	requester := testUser("req", entity.RoleRequester)

	tests := []struct {
		name  string
		input MaterialRequestInput
	}{
		{"missing title", MaterialRequestInput{Items: sampleItems()}},
		{"no items", MaterialRequestInput{Title: "x"}},
		{"unnamed item", MaterialRequestInput{Title: "x", Items: []entity.LineItem{{Quantity: 1}}}},
		{"zero quantity", MaterialRequestInput{Title: "x", Items: []entity.LineItem{{Name: "a"}}}},
		{"negative price", MaterialRequestInput{Title: "x", Items: []entity.LineItem{{Name: "a", Quantity: 1, UnitPrice: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateMaterialRequest(ctx, requester, tt.input)
			assert.ErrorIs(t, err, approval.ErrValidation)
		})
	}

	_, err := f.svc.CreateMaterialRequest(ctx, testUser("a", entity.RoleApprover), MaterialRequestInput{Title: "x", Items: sampleItems()})
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestDocumentService_SubmitAndUpdateItems(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture()
	requester := testUser("req", entity.RoleRequester)

	doc, err := f.svc.CreateMaterialRequest(ctx, requester, MaterialRequestInput{Title: "x", Items: sampleItems()})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, testUser("other", entity.RoleRequester), doc.ID)
	require.ErrorIs(t, err, entity.ErrForbidden)

	updated, err := f.svc.UpdateItems(ctx, requester, doc.ID, []entity.LineItem{{Name: "Sand", Quantity: 2, Unit: "m3"}})
	require.NoError(t, err)
	assert.Equal(t, "Sand", updated.Items[0].Name)

	submitted, err := f.svc.Submit(ctx, requester, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingValidation, submitted.Status)
	assert.Equal(t, event.TypeDocumentSubmitted, f.publisher.last().Type)

	_, err = f.svc.UpdateItems(ctx, requester, doc.ID, sampleItems())
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = f.svc.Submit(ctx, requester, doc.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	history, err := f.svc.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, string(workflow.StateDraft), history[2].PreviousStatus)
	assert.Equal(t, string(workflow.StatePendingValidation), history[2].NewStatus)
}

func waitingPOMaterialRequest() *entity.Document {
	return &entity.Document{
		ID:          "mr1",
		Kind:        entity.KindMaterialRequest,
		Number:      "MR-2024-0001",
		Title:       "Site materials",
		Company:     "ACME",
		RequesterID: "req",
		Status:      workflow.StateWaitingPO,
		Items:       sampleItems(),
		Chain:       mustChain("a"),
		Version:     3,
	}
}

func TestDocumentService_CreatePurchaseOrder(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(waitingPOMaterialRequest())
	buyer := testUser("buyer", entity.RolePurchasing)

	po, err := f.svc.CreatePurchaseOrder(ctx, buyer, "mr1", PurchaseOrderInput{VendorName: "PT Semen"})
	require.NoError(t, err)
	assert.Equal(t, entity.KindPurchaseOrder, po.Kind)
	assert.Equal(t, workflow.StateDraft, po.Status)
	assert.Equal(t, "mr1", po.MaterialRequestID)
	assert.Equal(t, "IDR", po.Currency)
	assert.Equal(t, "Site materials", po.Title)
	assert.Equal(t, sampleItems(), po.Items)
	assert.Equal(t, "buyer", po.RequesterID)

	evt := f.publisher.last()
	assert.Equal(t, event.TypePurchaseOrderOpened, evt.Type)
	assert.Equal(t, []string{"req"}, evt.GetPayloadStrings(event.KeyRecipients))
	assert.Equal(t, []string{entity.ActionPurchaseOrderMade}, f.history.actions("mr1"))

	_, err = f.svc.CreatePurchaseOrder(ctx, buyer, "mr1", PurchaseOrderInput{})
	assert.ErrorIs(t, err, entity.ErrConflict, "one active PO per MR")
}

func TestDocumentService_CreatePurchaseOrderPreconditions(t *testing.T) {
	ctx := context.Background()
	draft := waitingPOMaterialRequest()
	draft.Status = workflow.StatePendingApproval
	f := newDocumentFixture(draft)

	_, err := f.svc.CreatePurchaseOrder(ctx, testUser("buyer", entity.RolePurchasing), "mr1", PurchaseOrderInput{})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = f.svc.CreatePurchaseOrder(ctx, testUser("req", entity.RoleRequester), "mr1", PurchaseOrderInput{})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = f.svc.CreatePurchaseOrder(ctx, testUser("buyer", entity.RolePurchasing), "missing", PurchaseOrderInput{})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestDocumentService_Summary(t *testing.T) {
	mine := pendingApprovalDoc("d1", entity.KindMaterialRequest, mustChain("a", "b"))
	other := pendingApprovalDoc("d2", entity.KindMaterialRequest, mustChain("b", "a"))
	f := newDocumentFixture(mine, other, waitingPOMaterialRequest())

	summary, err := f.svc.Summary(context.Background(), testUser("a", entity.RoleApprover))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.ByStatus[workflow.StatePendingApproval])
	assert.Equal(t, 1, summary.ByStatus[workflow.StateWaitingPO])
	assert.Equal(t, 1, summary.PendingForMe)
}

func TestDocumentService_ListAndExport(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(waitingPOMaterialRequest())

	_, err := f.svc.List(ctx, entity.DocumentFilter{Kind: "INV"})
	assert.ErrorIs(t, err, approval.ErrValidation)

	docs, err := f.svc.List(ctx, entity.DocumentFilter{Kind: entity.KindMaterialRequest})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	file, err := f.svc.Export(ctx, "mr1")
	require.NoError(t, err)
	assert.Equal(t, "MR-2024-0001.txt", file.Filename)
	assert.Equal(t, "text/plain", file.ContentType)

	_, err = f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
