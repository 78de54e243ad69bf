package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/procurement/internal/application/port"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Messenger sends IM messages through the Lark open API
type Messenger struct {
	client *lark.Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{client: client, logger: logger}
}

// SendText sends a plain text message. receiveIDType is one of
// open_id, user_id, union_id, email or chat_id.
func (m *Messenger) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("message text cannot be empty")
	}

	content, err := textContent(text)
	if err != nil {
		return err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message", zap.String("receive_id", receiveID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Message sent", zap.String("message_id", messageID), zap.String("receive_id", receiveID))
	return nil
}

// textContent encodes the text message body the IM API expects
func textContent(text string) (string, error) {
	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(b), nil
}

var _ port.LarkMessageSender = (*Messenger)(nil)
