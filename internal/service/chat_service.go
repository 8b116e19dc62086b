package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type chatRepository interface {
	History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	Append(ctx context.Context, message *models.ChatMessage) error
}

// ChatRequest is one inbound message to the support assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	UserID  string `json:"user" validate:"required"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService is the scripted support assistant. Replies are keyword driven;
// both sides of the exchange are persisted so history survives reloads.
type ChatService struct {
	repo      chatRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(repo chatRepository, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{repo: repo, validator: validate, logger: logger}
}

// Send records the user message, computes a reply and records it too.
func (s *ChatService) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}

	if err := s.repo.Append(ctx, &models.ChatMessage{
		UserID: req.UserID,
		Sender: models.ChatSenderUser,
		Text:   req.Message,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}

	reply := replyFor(req.Message)
	if err := s.repo.Append(ctx, &models.ChatMessage{
		UserID: req.UserID,
		Sender: models.ChatSenderBot,
		Text:   reply,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reply")
	}

	return &ChatResponse{Reply: reply}, nil
}

// History returns a user's transcript oldest first.
func (s *ChatService) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	messages, err := s.repo.History(ctx, userID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat history")
	}
	return messages, nil
}

var scriptedReplies = []struct {
	keywords []string
	reply    string
}{
	{
		keywords: []string{"book", "appointment", "schedule"},
		reply:    "To book a session, open the therapist directory, pick a therapist and choose one of their available days and times. Your request is sent to the therapist for confirmation.",
	},
	{
		keywords: []string{"cancel", "reschedule"},
		reply:    "You can review your upcoming appointments on your dashboard. To cancel or reschedule, contact your therapist directly or reach out to support.",
	},
	{
		keywords: []string{"anxiety", "anxious", "panic"},
		reply:    "Many of our therapists specialise in anxiety. Try filtering the directory by the Anxiety specialization to find someone who fits.",
	},
	{
		keywords: []string{"depress", "sad", "down"},
		reply:    "You're not alone. Our therapists who specialise in depression can help; filter the directory by Depression to see them. If you're in crisis, please contact your local emergency services.",
	},
	{
		keywords: []string{"price", "cost", "fee", "insurance"},
		reply:    "Session fees vary per therapist and are confirmed before your first appointment. Many insurers cover online therapy; check with your provider.",
	},
	{
		keywords: []string{"hello", "hi", "hey"},
		reply:    "Hello! I'm the MindWell assistant. I can help you find a therapist, book a session or answer questions about how the platform works.",
	},
}

const defaultReply = "I'm here to help with finding a therapist, booking sessions and using the platform. Could you tell me a bit more about what you need?"

func replyFor(message string) string {
	lowered := strings.ToLower(message)
	for _, entry := range scriptedReplies {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry.reply
			}
		}
	}
	return defaultReply
}
