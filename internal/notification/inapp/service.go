package inapp

import (
	"context"
	"strings"
	"time"

	"franchise_crm/internal/notification/sse"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the service needs.
type Store interface {
	CreateMany(ctx context.Context, items []Notification) error
	List(ctx context.Context, p ListParams) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
}

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// SetSSE injects the SSE service (circular dependency avoidance).
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// Message is the content fanned out by Notify.
type Message struct {
	Type  string
	Title string
	Body  string
	Link  string
}

// Notify stores one notification per distinct user and pushes it to any
// open stream of that user.
func (s *Service) Notify(ctx context.Context, userIDs []uuid.UUID, m Message) (int, error) {
	if strings.TrimSpace(m.Title) == "" {
		return 0, apperr.Validation("notification title is required")
	}
	if m.Type == "" {
		m.Type = TypeInfo
	}

	now := s.now()
	seen := make(map[uuid.UUID]bool, len(userIDs))
	items := make([]Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, Notification{
			ID:        uuid.New(),
			UserID:    id,
			Type:      m.Type,
			Title:     m.Title,
			Body:      m.Body,
			Link:      m.Link,
			CreatedAt: now,
		})
	}

	if err := s.repo.CreateMany(ctx, items); err != nil {
		if s.log != nil {
			s.log.Error("failed to persist notifications", "error", err, "recipients", len(items))
		}
		return 0, err
	}

	if s.sse != nil {
		for _, n := range items {
			s.sse.Publish(n.UserID, sse.Event{Type: sse.EventNotification, Data: n})
		}
	}
	return len(items), nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return s.repo.List(ctx, ListParams{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id, s.now())
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}
