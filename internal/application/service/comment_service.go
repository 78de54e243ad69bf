package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/pkg/utils"
	"github.com/google/uuid"
)

// CommentInput is a new comment with the users it mentions
type CommentInput struct {
	Body     string   `json:"body"`
	Mentions []string `json:"mentions"`
}

// CommentService manages document discussions
type CommentService interface {
	Add(ctx context.Context, actor *entity.User, documentID string, input CommentInput) (*entity.Comment, error)
	List(ctx context.Context, documentID string) ([]*entity.Comment, error)
}

type commentServiceImpl struct {
	documents port.DocumentRepository
	comments  port.CommentRepository
	users     port.UserRepository
	publisher EventPublisher
	logger    Logger
}

// NewCommentService creates a new CommentService instance
func NewCommentService(
	documents port.DocumentRepository,
	comments port.CommentRepository,
	users port.UserRepository,
	publisher EventPublisher,
	logger Logger,
) CommentService {
	return &commentServiceImpl{
		documents: documents,
		comments:  comments,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *commentServiceImpl) Add(ctx context.Context, actor *entity.User, documentID string, input CommentInput) (*entity.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(utils.SanitizeString(input.Body))
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", approval.ErrValidation)
	}

	doc, err := loadDocument(ctx, s.documents, documentID)
	if err != nil {
		return nil, err
	}

	mentions, err := s.resolveMentions(ctx, actor.ID, input.Mentions)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Body:       body,
		Mentions:   mentions,
		CreatedAt:  time.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("Failed to create comment", "error", err, "document_id", documentID)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if len(mentions) > 0 {
		evt := documentEvent(event.TypeCommentMentioned, doc, actor.ID, mentions)
		s.publisher.DispatchAsync(ctx, evt.WithPayload(event.KeyCommentID, comment.ID))
	}
	return comment, nil
}

func (s *commentServiceImpl) List(ctx context.Context, documentID string) ([]*entity.Comment, error) {
	if _, err := loadDocument(ctx, s.documents, documentID); err != nil {
		return nil, err
	}
	return s.comments.ListByDocument(ctx, documentID)
}

// resolveMentions drops duplicates and self mentions and rejects unknown users
func (s *commentServiceImpl) resolveMentions(ctx context.Context, authorID string, ids []string) ([]string, error) {
	var wanted []string
	for _, id := range uniqueStrings(ids...) {
		if id != authorID {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return []string{}, nil
	}

	users, err := s.users.GetByIDs(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentioned users: %w", err)
	}
	known := userIndex(users)
	for _, id := range wanted {
		if _, ok := known[id]; !ok {
			return nil, notFound("mentioned user", id)
		}
	}
	return wanted, nil
}
