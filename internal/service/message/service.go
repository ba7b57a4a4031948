package message

import (
	"context"
	"strings"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
	"github.com/emberapp/ember-backend/internal/service/quota"
)

const conversationPageSize = 100

// MessageEvent is published to the recipient's realtime channel.
type MessageEvent struct {
	Type     string `json:"type"`
	SenderID uint64 `json:"sender_id"`
	Body     string `json:"body"`
}

// Service handles chat between matched users, gated by the weekly
// message quota for non-premium senders.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	tracker     *quota.Tracker
}

// NewService creates a message Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		tracker:     quota.NewTracker(appCtx),
	}
}

// Tracker exposes the quota tracker for test clock overrides.
func (s *Service) Tracker() *quota.Tracker { return s.tracker }

// Send records a message from sender to recipient.
//
// Only matched pairs may exchange messages. Non-premium senders consume
// one slot of the weekly message quota per message; at the cap the send
// fails with ErrQuotaExceeded and nothing is stored.
func (s *Service) Send(ctx context.Context, senderID, recipientID uint64, body string) (*db.Message, *int64, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, apperr.Validationf("message body is required")
	}
	if senderID == recipientID {
		return nil, nil, apperr.InvalidTargetf("cannot message yourself")
	}

	matched, err := s.matchRepo.ExistsForPair(ctx, senderID, recipientID)
	if err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, apperr.InvalidTargetf("can only message matched users")
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, nil, err
	}

	allowed, remaining, err := s.tracker.CheckAndIncrement(ctx, sender, repository.CounterMessages)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, apperr.ErrQuotaExceeded
	}

	msg := &db.Message{SenderID: senderID, RecipientID: recipientID, Body: body}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		if rerr := s.tracker.Refund(ctx, sender, repository.CounterMessages); rerr != nil {
			s.appCtx.Logger.Error("quota refund failed", "sender", senderID, "err", rerr)
		}
		return nil, nil, err
	}

	event := MessageEvent{Type: "message", SenderID: senderID, Body: body}
	if err := s.appCtx.RedisCache.PublishEvent(ctx, recipientID, event); err != nil {
		s.appCtx.Logger.Warn("message event publish failed", "recipient", recipientID, "err", err)
	}

	return msg, remaining, nil
}

// Conversation returns the message history between the user and the
// other participant, oldest first.
func (s *Service) Conversation(ctx context.Context, userID, otherID uint64) ([]db.Message, error) {
	matched, err := s.matchRepo.ExistsForPair(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperr.InvalidTargetf("no match with this user")
	}
	return s.messageRepo.ListBetween(ctx, userID, otherID, conversationPageSize)
}
