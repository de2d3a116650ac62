package chat

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"auralis/core/apperr"
	"auralis/logger"
	"auralis/model"
	"auralis/repository"
)

// MaxMessageLength 单条消息的最大字符数
const MaxMessageLength = 2000

// Event 总线上传递的事件
type Event struct {
	Message  *model.Message `json:"message,omitempty"`
	UserID   string         `json:"userId,omitempty"`
	Activity string         `json:"activity,omitempty"`
}

func publish(ctx context.Context, bus Bus, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, topic, payload)
}

// Service 聊天消息的持久化和投递
type Service struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	bus      Bus
}

// NewService 创建聊天服务
func NewService(store *repository.Store, bus Bus) *Service {
	return &Service{messages: store.Messages, users: store.Users, bus: bus}
}

// Send 保存消息并发布 message.created，接收方在线时由 Hub 实时推送
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*model.Message, error) {
	receiverID = strings.TrimSpace(receiverID)
	content = strings.TrimSpace(content)
	if receiverID == "" {
		return nil, apperr.Invalid("Receiver is required")
	}
	if content == "" {
		return nil, apperr.Invalid("Message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperr.Invalid("Message is too long")
	}

	msg := &model.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	// 消息已落库，投递失败时对方可以在拉取历史时看到
	if err := publish(ctx, s.bus, TopicMessageCreated, Event{Message: msg}); err != nil {
		logger.Warn("Failed to publish message event",
			logger.String("messageId", msg.ID.Hex()),
			logger.ErrorField(err))
	}
	return msg, nil
}

// Messages 两人之间的全部消息，按时间升序
func (s *Service) Messages(ctx context.Context, me, other string) ([]*model.Message, error) {
	if strings.TrimSpace(other) == "" {
		return nil, apperr.Invalid("User id is required")
	}
	return s.messages.Conversation(ctx, me, other)
}

// Users 除自己以外的所有用户
func (s *Service) Users(ctx context.Context, me string) ([]*model.User, error) {
	return s.users.ListExcept(ctx, me)
}
