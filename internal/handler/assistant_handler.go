package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/assistant"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

const (
	summaryFallback = "Le service de résumé est momentanément indisponible. Réessayez dans quelques instants."
	planFallback    = "Le planificateur de révisions est momentanément indisponible. Réessayez dans quelques instants."
	chatFallback    = "L'assistant est momentanément indisponible. Réessayez dans quelques instants."
)

type assistantService interface {
	Summarize(ctx context.Context, req models.SummaryRequest) (assistant.Reply, error)
	StudyPlan(ctx context.Context, req models.StudyPlanRequest) (assistant.Reply, error)
	GenerateQuiz(ctx context.Context, req models.QuizRequest) (models.QuizContent, bool, error)
	SaveQuiz(ctx context.Context, actor models.Actor, content models.QuizContent, fallback bool) (*models.Quiz, error)
	GradeQuiz(ctx context.Context, actor models.Actor, req models.GradeQuizRequest) (*models.QuizResult, error)
	GetQuiz(ctx context.Context, actor models.Actor, id string) (*models.Quiz, error)
	QuizHint(ctx context.Context, actor models.Actor, req models.QuizHintRequest) (*models.QuizHint, error)
	Chat(ctx context.Context, actor models.Actor, req models.ChatRequest) (*models.ChatReply, error)
	ListConversations(ctx context.Context, actor models.Actor) ([]models.ConversationSummary, error)
	LoadConversation(ctx context.Context, actor models.Actor, sessionID string) (*models.Conversation, error)
}

// AssistantHandler serves the study helpers. Unavailable replies degrade to
// fixed fallback content.
type AssistantHandler struct {
	service assistantService
}

// NewAssistantHandler constructs an AssistantHandler.
func NewAssistantHandler(svc assistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// Summary godoc
// @Summary Summarize course text
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SummaryRequest true "Text"
// @Success 200 {object} response.Envelope
// @Router /assistant/summary [post]
func (h *AssistantHandler) Summary(c *gin.Context) {
	var req models.SummaryRequest
	if err := bindJSON(c, &req, "invalid summary request"); err != nil {
		response.Error(c, err)
		return
	}
	reply, err := h.service.Summarize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, textOrFallback(reply, summaryFallback), nil)
}

// Plan godoc
// @Summary Build a revision plan
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.StudyPlanRequest true "Plan"
// @Success 200 {object} response.Envelope
// @Router /assistant/plan [post]
func (h *AssistantHandler) Plan(c *gin.Context) {
	var req models.StudyPlanRequest
	if err := bindJSON(c, &req, "invalid study plan request"); err != nil {
		response.Error(c, err)
		return
	}
	reply, err := h.service.StudyPlan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, textOrFallback(reply, planFallback), nil)
}

// Quiz godoc
// @Summary Generate a multiple choice quiz
// @Description Correct answers are withheld until the quiz is graded
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.QuizRequest true "Quiz"
// @Success 201 {object} response.Envelope
// @Router /assistant/quiz [post]
func (h *AssistantHandler) Quiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.QuizRequest
	if err := bindJSON(c, &req, "invalid quiz request"); err != nil {
		response.Error(c, err)
		return
	}
	content, generated, err := h.service.GenerateQuiz(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !generated {
		content = fallbackQuiz(req.Subject)
	}
	quiz, err := h.service.SaveQuiz(c.Request.Context(), actor, content, !generated)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hideAnswers(quiz))
}

// GradeQuiz godoc
// @Summary Grade answers to a stored quiz
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.GradeQuizRequest true "Answers"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assistant/quiz/grade [post]
func (h *AssistantHandler) GradeQuiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.GradeQuizRequest
	if err := bindJSON(c, &req, "invalid quiz submission"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.GradeQuiz(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetQuiz godoc
// @Summary Get a stored quiz without its answers
// @Tags Assistant
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assistant/quiz/{id} [get]
func (h *AssistantHandler) GetQuiz(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	quiz, err := h.service.GetQuiz(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hideAnswers(quiz), nil)
}

// QuizHint godoc
// @Summary Get a hint for one quiz question
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.QuizHintRequest true "Question"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assistant/quiz/hint [post]
func (h *AssistantHandler) QuizHint(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.QuizHintRequest
	if err := bindJSON(c, &req, "invalid hint request"); err != nil {
		response.Error(c, err)
		return
	}
	hint, err := h.service.QuizHint(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hint, nil)
}

// Chat godoc
// @Summary Send a message to the assistant
// @Description The exchange is appended to the conversation named by session_id
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChatRequest true "Message"
// @Success 200 {object} response.Envelope
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ChatRequest
	if err := bindJSON(c, &req, "invalid chat message"); err != nil {
		response.Error(c, err)
		return
	}
	reply, err := h.service.Chat(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if reply.Fallback {
		reply.Response = chatFallback
	}
	response.JSON(c, http.StatusOK, reply, nil)
}

// ResetChat godoc
// @Summary Start a new conversation
// @Description Conversations are keyed by the client session id, nothing is stored
// @Tags Assistant
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assistant/chat/reset [post]
func (h *AssistantHandler) ResetChat(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"reset": true}, nil)
}

// Conversations godoc
// @Summary List my conversations
// @Tags Assistant
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assistant/conversations [get]
func (h *AssistantHandler) Conversations(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	list, err := h.service.ListConversations(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Conversation godoc
// @Summary Load one of my conversations
// @Tags Assistant
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assistant/conversations/{id} [get]
func (h *AssistantHandler) Conversation(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	conv, err := h.service.LoadConversation(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conv, nil)
}

func textOrFallback(reply assistant.Reply, fallback string) models.AssistantText {
	if !reply.Available {
		return models.AssistantText{Text: fallback, Fallback: true}
	}
	return models.AssistantText{Text: reply.Text}
}

func fallbackQuiz(subject string) models.QuizContent {
	questions := make([]models.QuizQuestion, 0, assistant.QuizQuestionCount)
	for i := 1; i <= assistant.QuizQuestionCount; i++ {
		questions = append(questions, models.QuizQuestion{
			ID:            fmt.Sprintf("q%d", i),
			Question:      fmt.Sprintf("Question de secours %d sur %s ?", i, subject),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "Option A",
			Hint:          "Relisez vos notes de cours.",
			Explanation:   "Le générateur de quiz est indisponible, cette question sert d'exemple.",
		})
	}
	return models.QuizContent{Subject: subject, Questions: questions}
}

// hideAnswers returns a copy of the quiz without answers or explanations.
func hideAnswers(quiz *models.Quiz) models.Quiz {
	out := *quiz
	questions := make([]models.QuizQuestion, len(quiz.Content.Questions))
	for i, q := range quiz.Content.Questions {
		q.CorrectAnswer = ""
		q.Explanation = ""
		questions[i] = q
	}
	out.Content.Questions = questions
	return out
}
