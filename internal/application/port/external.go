package port

import (
	"context"

	"github.com/garyjia/procurement/internal/domain/entity"
)

// NotificationMessage is one delivery to one recipient
type NotificationMessage struct {
	RecipientUserID string
	RecipientEmail  string
	Type            string
	Title           string
	Message         string
	Link            string
	DocumentID      string
}

// NotificationSink delivers notification messages to a channel
type NotificationSink interface {
	Name() string
	Send(ctx context.Context, msg NotificationMessage) error
}

// LarkMessageSender defines Lark IM message sending
type LarkMessageSender interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) error
}

// ProofInfo describes an uploaded BAST proof
type ProofInfo struct {
	ContentType string
	Pages       int
}

// ProofInspector checks an uploaded goods-receipt proof before it is stored
type ProofInspector interface {
	Inspect(ctx context.Context, filename string, content []byte) (*ProofInfo, error)
}

// DocumentExporter renders a document into a downloadable file
type DocumentExporter interface {
	Export(ctx context.Context, doc *entity.Document) ([]byte, error)
	ContentType() string
	Extension() string
}
