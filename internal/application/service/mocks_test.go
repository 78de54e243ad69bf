package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	calls               int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockDocumentRepo keeps copies of documents and enforces version checks
type mockDocumentRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.Document
	numbers  map[entity.DocumentKind]int
	updates  int
	activePO map[string]*entity.Document

	beforeUpdateFunc func(doc *entity.Document) error
	listAwaitingFunc func(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error)
}

func newMockDocumentRepo(docs ...*entity.Document) *mockDocumentRepo {
	m := &mockDocumentRepo{
		docs:     make(map[string]*entity.Document),
		numbers:  make(map[entity.DocumentKind]int),
		activePO: make(map[string]*entity.Document),
	}
	for _, d := range docs {
		m.docs[d.ID] = copyDocument(d)
	}
	return m
}

func copyDocument(d *entity.Document) *entity.Document {
	cp := *d
	cp.Chain = d.Chain.Clone()
	cp.Items = append([]entity.LineItem(nil), d.Items...)
	cp.Attachments = append([]entity.Attachment(nil), d.Attachments...)
	return &cp
}

func (m *mockDocumentRepo) stored(id string) *entity.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		return copyDocument(d)
	}
	return nil
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.IsPurchaseOrder() {
		if _, ok := m.activePO[doc.MaterialRequestID]; ok {
			return fmt.Errorf("%w: active purchase order exists", entity.ErrConflict)
		}
		m.activePO[doc.MaterialRequestID] = doc
	}
	doc.Version = 1
	m.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return m.stored(id), nil
}

func (m *mockDocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	if m.beforeUpdateFunc != nil {
		if err := m.beforeUpdateFunc(doc); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	current, ok := m.docs[doc.ID]
	if !ok || current.Version != doc.Version {
		return fmt.Errorf("%w: document %s", entity.ErrConflict, doc.ID)
	}
	doc.Version++
	m.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (m *mockDocumentRepo) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Document
	for _, d := range m.docs {
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, copyDocument(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockDocumentRepo) ListAwaiting(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error) {
	if m.listAwaitingFunc != nil {
		return m.listAwaitingFunc(ctx, userID, status)
	}
	docs, _ := m.List(ctx, entity.DocumentFilter{Status: status})
	var out []*entity.Document
	for _, d := range docs {
		for _, id := range approval.EligibleApprovers(d.Chain) {
			if id == userID {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) GetActivePurchaseOrder(ctx context.Context, materialRequestID string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activePO[materialRequestID], nil
}

func (m *mockDocumentRepo) NextNumber(ctx context.Context, kind entity.DocumentKind, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.numbers[kind]++
	return fmt.Sprintf("%s-%d-%04d", kind, at.Year(), m.numbers[kind]), nil
}

func (m *mockDocumentRepo) CountByStatus(ctx context.Context, company string) (map[workflow.State]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[workflow.State]int)
	for _, d := range m.docs {
		if company == "" || d.Company == company {
			counts[d.Status]++
		}
	}
	return counts, nil
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	records []*entity.DocumentHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.DocumentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.records) + 1)
	m.records = append(m.records, h)
	return nil
}

func (m *mockHistoryRepo) GetByDocumentID(ctx context.Context, documentID string) ([]*entity.DocumentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.DocumentHistory
	for _, h := range m.records {
		if h.DocumentID == documentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) actions(documentID string) []string {
	records, _ := m.GetByDocumentID(context.Background(), documentID)
	out := make([]string, len(records))
	for i, h := range records {
		out[i] = h.Action
	}
	return out
}

type mockUserRepo struct {
	users map[string]*entity.User
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Upsert(ctx context.Context, user *entity.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	var out []*entity.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) SearchByName(ctx context.Context, query, role string, limit int) ([]*entity.User, error) {
	users, _ := m.List(ctx)
	var out []*entity.User
	for _, u := range users {
		if role != "" && u.Role != role {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			continue
		}
		if len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockTemplateRepo struct {
	templates map[string]*entity.ApprovalTemplate
	deleted   []string
}

func newMockTemplateRepo(templates ...*entity.ApprovalTemplate) *mockTemplateRepo {
	m := &mockTemplateRepo{templates: make(map[string]*entity.ApprovalTemplate)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *mockTemplateRepo) Create(ctx context.Context, tpl *entity.ApprovalTemplate) error {
	m.templates[tpl.ID] = tpl
	return nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalTemplate, error) {
	return m.templates[id], nil
}

func (m *mockTemplateRepo) GetByName(ctx context.Context, name string) (*entity.ApprovalTemplate, error) {
	for _, t := range m.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, tpl *entity.ApprovalTemplate) error {
	m.templates[tpl.ID] = tpl
	return nil
}

func (m *mockTemplateRepo) Delete(ctx context.Context, id string) error {
	delete(m.templates, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]*entity.ApprovalTemplate, error) {
	out := make([]*entity.ApprovalTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) last() *event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockSink struct {
	name     string
	mu       sync.Mutex
	messages []port.NotificationMessage
	sendFunc func(ctx context.Context, msg port.NotificationMessage) error
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Send(ctx context.Context, msg port.NotificationMessage) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

type mockStorage struct {
	files map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if c, ok := m.files[path]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%s: %w", path, entity.ErrNotFound)
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/data/" + relativePath
}

type mockInspector struct {
	inspectFunc func(ctx context.Context, filename string, content []byte) (*port.ProofInfo, error)
}

func (m *mockInspector) Inspect(ctx context.Context, filename string, content []byte) (*port.ProofInfo, error) {
	if m.inspectFunc != nil {
		return m.inspectFunc(ctx, filename, content)
	}
	return &port.ProofInfo{ContentType: "application/pdf", Pages: 1}, nil
}

type mockExporter struct{}

func (m *mockExporter) Export(ctx context.Context, doc *entity.Document) ([]byte, error) {
	return []byte(doc.Number), nil
}

func (m *mockExporter) ContentType() string { return "text/plain" }
func (m *mockExporter) Extension() string   { return ".txt" }

// fixtures

func testUser(id, role string) *entity.User {
	return &entity.User{ID: id, Name: "User " + id, Email: id + "@example.com", Role: role, Company: "ACME"}
}

func mustChain(ids ...string) approval.Chain {
	as := make([]approval.Approver, len(ids))
	for i, id := range ids {
		as[i] = approval.Approver{UserID: id, Name: "User " + id, Kind: approval.KindApprove}
	}
	chain, err := approval.NewChain(as)
	if err != nil {
		panic(err)
	}
	return chain
}

func pendingApprovalDoc(id string, kind entity.DocumentKind, chain approval.Chain) *entity.Document {
	return &entity.Document{
		ID:          id,
		Kind:        kind,
		Number:      string(kind) + "-2024-0001",
		Title:       "Office supplies",
		Company:     "ACME",
		RequesterID: "req",
		Status:      workflow.StatePendingApproval,
		Items:       []entity.LineItem{{Name: "Paper", Quantity: 5, Unit: "ream"}},
		Chain:       chain,
		Version:     1,
	}
}
