package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const maxMessageLen = 2000

// Notifier is satisfied by realtime.Hub.
type Notifier interface {
	Notify(userID uint, payload any)
}

type MessageService struct {
	Repo     *repo.GormRepo
	Events   EventPublisher
	Notifier Notifier
}

func (s *MessageService) List(ctx context.Context, userID uint, offset, limit int) ([]models.Message, error) {
	return s.Repo.ListMessages(ctx, userID, offset, limit)
}

func (s *MessageService) Send(ctx context.Context, senderID uint, req transport.SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	switch {
	case req.ReceiverID == 0 || content == "":
		return nil, fmt.Errorf("%w: receiverId and content are required", ErrValidation)
	case utf8.RuneCountInString(content) > maxMessageLen:
		return nil, fmt.Errorf("%w: content longer than %d characters", ErrValidation, maxMessageLen)
	}

	if _, err := s.Repo.GetUserByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: receiver", ErrNotFound)
		}
		return nil, err
	}

	m := &models.Message{SenderID: senderID, ReceiverID: req.ReceiverID, Content: content}
	if err := s.Repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicMessages, strconv.FormatUint(uint64(m.ReceiverID), 10), map[string]any{
		"type":       "message_sent",
		"messageID":  m.ID,
		"senderID":   m.SenderID,
		"receiverID": m.ReceiverID,
	})
	if s.Notifier != nil {
		s.Notifier.Notify(m.ReceiverID, map[string]any{
			"type":    "message",
			"message": transport.NewMessageResponse(m),
		})
	}
	return m, nil
}

// Users lists everyone the caller can write to.
func (s *MessageService) Users(ctx context.Context, userID uint) ([]models.User, error) {
	return s.Repo.ListOtherUsers(ctx, userID)
}
