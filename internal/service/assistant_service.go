package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/assistant"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type quizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
}

type conversationRepository interface {
	FindByID(ctx context.Context, sessionID string) (*models.Conversation, error)
	Append(ctx context.Context, conv *models.Conversation, msg models.ChatMessage) error
	ListByUser(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

type staffDirectory interface {
	List(ctx context.Context) ([]models.Staff, error)
}

// AssistantService wraps the text generator for study helpers. Replies are
// best-effort: callers decide what to show when a reply is unavailable.
type AssistantService struct {
	generator     assistant.Generator
	quizzes       quizRepository
	conversations conversationRepository
	directory     staffDirectory
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAssistantService constructs an AssistantService. directory feeds the chat
// knowledge base and may be nil.
func NewAssistantService(generator assistant.Generator, quizzes quizRepository, conversations conversationRepository, directory staffDirectory, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssistantService {
	if generator == nil {
		generator = assistant.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		generator:     generator,
		quizzes:       quizzes,
		conversations: conversations,
		directory:     directory,
		metrics:       metrics,
		validator:     newValidator(validate),
		logger:        logger,
	}
}

// Summarize asks for a summary of the text in the requested style.
func (s *AssistantService) Summarize(ctx context.Context, req models.SummaryRequest) (assistant.Reply, error) {
	if err := s.validator.Struct(req); err != nil {
		return assistant.Reply{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid summary request")
	}
	return s.generate(ctx, "summary", assistant.SummaryPrompt(req.Text, req.Style)), nil
}

// StudyPlan asks for a revision plan.
func (s *AssistantService) StudyPlan(ctx context.Context, req models.StudyPlanRequest) (assistant.Reply, error) {
	if err := s.validator.Struct(req); err != nil {
		return assistant.Reply{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study plan request")
	}
	return s.generate(ctx, "plan", assistant.StudyPlanPrompt(req.Days, req.Subjects, strings.TrimSpace(req.Goal), req.Resources)), nil
}

// GenerateQuiz asks for a quiz. ok is false when the generator is unavailable or
// its reply holds no usable quiz.
func (s *AssistantService) GenerateQuiz(ctx context.Context, req models.QuizRequest) (content models.QuizContent, ok bool, err error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return models.QuizContent{}, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz request")
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Language == "" {
		req.Language = "fr"
	}
	reply := s.generate(ctx, "quiz", assistant.QuizPrompt(req.Subject, req.Difficulty, req.Language))
	if !reply.Available {
		return models.QuizContent{}, false, nil
	}
	content, parseErr := assistant.ParseQuiz(reply.Text, req.Subject)
	if parseErr != nil {
		s.logger.Warn("unusable quiz reply", zap.String("subject", req.Subject), zap.Error(parseErr))
		return models.QuizContent{}, false, nil
	}
	return content, true, nil
}

// SaveQuiz stores a quiz for later grading.
func (s *AssistantService) SaveQuiz(ctx context.Context, actor models.Actor, content models.QuizContent, fallback bool) (*models.Quiz, error) {
	quiz := &models.Quiz{UserID: actor.UserID, Content: content, Fallback: fallback}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, appErrors.Upstream(err, "failed to store quiz")
	}
	return quiz, nil
}

// GradeQuiz grades answers against a stored quiz of the caller.
func (s *AssistantService) GradeQuiz(ctx context.Context, actor models.Actor, req models.GradeQuizRequest) (*models.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz submission")
	}
	quiz, err := s.loadQuiz(ctx, actor, req.QuizID)
	if err != nil {
		return nil, err
	}
	result := assistant.GradeQuiz(quiz.Content, req.Answers)
	return &result, nil
}

// GetQuiz returns a stored quiz of the caller. Answers are left in place; the
// transport hides them.
func (s *AssistantService) GetQuiz(ctx context.Context, actor models.Actor, id string) (*models.Quiz, error) {
	return s.loadQuiz(ctx, actor, id)
}

// QuizHint returns the hint for one question of a stored quiz of the caller.
func (s *AssistantService) QuizHint(ctx context.Context, actor models.Actor, req models.QuizHintRequest) (*models.QuizHint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hint request")
	}
	quiz, err := s.loadQuiz(ctx, actor, req.QuizID)
	if err != nil {
		return nil, err
	}
	return &models.QuizHint{Hint: assistant.Hint(quiz.Content, req.Index)}, nil
}

// Chat answers a message within a conversation and appends the exchange. A
// conversation belongs to the user who started it. When no reply can be
// generated nothing is stored and the reply is flagged as a fallback.
func (s *AssistantService) Chat(ctx context.Context, actor models.Actor, req models.ChatRequest) (*models.ChatReply, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat message")
	}

	conv, err := s.conversations.FindByID(ctx, req.SessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		conv = &models.Conversation{SessionID: req.SessionID, UserID: actor.UserID}
	case err != nil:
		return nil, appErrors.Upstream(err, "failed to load conversation")
	case conv.UserID != actor.UserID:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}

	reply := s.generate(ctx, "chat", assistant.ChatPrompt(s.staffContext(ctx), conv.Messages, req.Message))
	if !reply.Available {
		return &models.ChatReply{SessionID: conv.SessionID, Title: conv.Title, Fallback: true}, nil
	}

	if conv.Title == "" {
		title := s.generate(ctx, "chat_title", assistant.ChatTitlePrompt(req.Message, reply.Text))
		conv.Title = assistant.ChatTitle(title.Text, req.Message)
	}
	if err := s.conversations.Append(ctx, conv, models.ChatMessage{User: req.Message, AI: reply.Text}); err != nil {
		return nil, appErrors.Upstream(err, "failed to store conversation")
	}
	return &models.ChatReply{SessionID: conv.SessionID, Response: reply.Text, Title: conv.Title}, nil
}

// ListConversations returns the caller's conversations, most recently active first.
func (s *AssistantService) ListConversations(ctx context.Context, actor models.Actor) ([]models.ConversationSummary, error) {
	list, err := s.conversations.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list conversations")
	}
	if list == nil {
		list = []models.ConversationSummary{}
	}
	return list, nil
}

// LoadConversation returns one conversation of the caller with its messages.
func (s *AssistantService) LoadConversation(ctx context.Context, actor models.Actor, sessionID string) (*models.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Upstream(err, "failed to load conversation")
	}
	if conv.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	return conv, nil
}

func (s *AssistantService) loadQuiz(ctx context.Context, actor models.Actor, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Upstream(err, "failed to load quiz")
	}
	if quiz.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
	}
	return quiz, nil
}

func (s *AssistantService) staffContext(ctx context.Context) string {
	if s.directory == nil {
		return assistant.StaffDirectory(nil)
	}
	staff, err := s.directory.List(ctx)
	if err != nil {
		s.logger.Warn("staff directory unavailable", zap.Error(err))
		return assistant.StaffDirectory(nil)
	}
	return assistant.StaffDirectory(staff)
}

func (s *AssistantService) generate(ctx context.Context, kind, prompt string) assistant.Reply {
	reply := s.generator.Generate(ctx, prompt)
	if reply.Available {
		s.metrics.RecordAssistantRequest(kind, "available")
	} else {
		s.metrics.RecordAssistantRequest(kind, "unavailable")
		s.logger.Warn("assistant unavailable", zap.String("kind", kind), zap.String("reason", reply.Reason))
	}
	return reply
}
