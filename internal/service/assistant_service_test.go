package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/assistant"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type scriptedGenerator struct {
	reply   assistant.Reply
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) assistant.Reply {
	g.prompts = append(g.prompts, prompt)
	return g.reply
}

type memoryQuizRepo struct {
	quizzes map[string]*models.Quiz
}

func (m *memoryQuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	quiz.ID = "quiz-1"
	m.quizzes[quiz.ID] = quiz
	return nil
}

func (m *memoryQuizRepo) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	if q, ok := m.quizzes[id]; ok {
		return q, nil
	}
	return nil, sql.ErrNoRows
}

type memoryConversationRepo struct {
	convs   map[string]*models.Conversation
	appends int
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{convs: map[string]*models.Conversation{}}
}

func (m *memoryConversationRepo) FindByID(ctx context.Context, sessionID string) (*models.Conversation, error) {
	if c, ok := m.convs[sessionID]; ok {
		cp := *c
		cp.Messages = append(models.ChatMessages(nil), c.Messages...)
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryConversationRepo) Append(ctx context.Context, conv *models.Conversation, msg models.ChatMessage) error {
	m.appends++
	stored, ok := m.convs[conv.SessionID]
	if !ok {
		stored = &models.Conversation{SessionID: conv.SessionID, UserID: conv.UserID, Title: conv.Title}
		m.convs[conv.SessionID] = stored
	}
	stored.Messages = append(stored.Messages, msg)
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func (m *memoryConversationRepo) ListByUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	for _, c := range m.convs {
		if c.UserID == userID {
			out = append(out, models.ConversationSummary{SessionID: c.SessionID, Title: c.Title})
		}
	}
	return out, nil
}

type staticDirectory []models.Staff

func (d staticDirectory) List(ctx context.Context) ([]models.Staff, error) {
	return d, nil
}

const quizReply = "Voici le quiz :\n```json\n" +
	`{"questions":[{"id":"q7","question":"Couche du protocole IP ?","options":["2","3","4"],"correct_answer":3,"explanation":"Réseau"},` +
	`{"question":"Port HTTP ?","options":[80,443],"correct_answer":"80"}]}` +
	"\n```"

func TestAssistantGenerateAndGradeQuiz(t *testing.T) {
	gen := &scriptedGenerator{reply: assistant.Available(quizReply)}
	repo := &memoryQuizRepo{quizzes: map[string]*models.Quiz{}}
	svc := NewAssistantService(gen, repo, nil, nil, NewMetricsService(), nil, nil)
	ctx := context.Background()

	content, ok, err := svc.GenerateQuiz(ctx, models.QuizRequest{Subject: " Réseaux "})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, content.Questions, 2)
	assert.Equal(t, "Réseaux", content.Subject)
	assert.Equal(t, "3", content.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"80", "443"}, content.Questions[1].Options)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Réseaux")

	quiz, err := svc.SaveQuiz(ctx, studentActor, content, false)
	require.NoError(t, err)

	result, err := svc.GradeQuiz(ctx, studentActor, models.GradeQuizRequest{
		QuizID: quiz.ID,
		Answers: map[string]string{
			content.Questions[0].ID: " 3 ",
			content.Questions[1].ID: "443",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 50, result.Score)

	_, err = svc.GradeQuiz(ctx, models.Actor{UserID: "s2", Role: models.RoleStudent}, models.GradeQuizRequest{QuizID: quiz.ID})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.GradeQuiz(ctx, studentActor, models.GradeQuizRequest{QuizID: "missing"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssistantQuizUnavailableOrUnusable(t *testing.T) {
	gen := &scriptedGenerator{reply: assistant.Unavailable("timeout")}
	svc := NewAssistantService(gen, nil, nil, nil, nil, nil, nil)

	_, ok, err := svc.GenerateQuiz(context.Background(), models.QuizRequest{Subject: "Réseaux"})
	require.NoError(t, err)
	assert.False(t, ok)

	gen.reply = assistant.Available("désolé, pas de quiz")
	_, ok, err = svc.GenerateQuiz(context.Background(), models.QuizRequest{Subject: "Réseaux"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.GenerateQuiz(context.Background(), models.QuizRequest{Subject: "  "})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAssistantTextHelpers(t *testing.T) {
	gen := &scriptedGenerator{reply: assistant.Available("Résumé")}
	svc := NewAssistantService(gen, nil, nil, nil, nil, nil, nil)

	reply, err := svc.Summarize(context.Background(), models.SummaryRequest{Text: "TCP/IP", Style: models.SummaryConcise})
	require.NoError(t, err)
	assert.True(t, reply.Available)
	assert.Equal(t, "Résumé", reply.Text)

	_, err = svc.Summarize(context.Background(), models.SummaryRequest{Text: "x", Style: "poem"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.StudyPlan(context.Background(), models.StudyPlanRequest{Days: 0, Subjects: []string{"Réseaux"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	gen.reply = assistant.Unavailable("down")
	reply, err = svc.StudyPlan(context.Background(), models.StudyPlanRequest{Days: 3, Subjects: []string{"Réseaux"}})
	require.NoError(t, err)
	assert.False(t, reply.Available)

	disabled := NewAssistantService(nil, nil, nil, nil, nil, nil, nil)
	reply, err = disabled.Summarize(context.Background(), models.SummaryRequest{Text: "x"})
	require.NoError(t, err)
	assert.False(t, reply.Available)
}

func TestAssistantQuizRetrievalAndHint(t *testing.T) {
	repo := &memoryQuizRepo{quizzes: map[string]*models.Quiz{
		"quiz-1": {ID: "quiz-1", UserID: studentActor.UserID, Content: models.QuizContent{Questions: []models.QuizQuestion{
			{ID: "0", CorrectAnswer: "routeur", Hint: "Couche 3"},
			{ID: "1", CorrectAnswer: "switch"},
		}}},
	}}
	svc := NewAssistantService(nil, repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	quiz, err := svc.GetQuiz(ctx, studentActor, "quiz-1")
	require.NoError(t, err)
	assert.Len(t, quiz.Content.Questions, 2)
	_, err = svc.GetQuiz(ctx, models.Actor{UserID: "s2", Role: models.RoleStudent}, "quiz-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	hint, err := svc.QuizHint(ctx, studentActor, models.QuizHintRequest{QuizID: "quiz-1", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "Couche 3", hint.Hint)
	hint, err = svc.QuizHint(ctx, studentActor, models.QuizHintRequest{QuizID: "quiz-1", Index: 1})
	require.NoError(t, err)
	assert.Equal(t, "La réponse commence par 'S'...", hint.Hint)
	hint, err = svc.QuizHint(ctx, studentActor, models.QuizHintRequest{QuizID: "quiz-1", Index: 9})
	require.NoError(t, err)
	assert.Equal(t, "Question invalide.", hint.Hint)

	_, err = svc.QuizHint(ctx, studentActor, models.QuizHintRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.QuizHint(ctx, studentActor, models.QuizHintRequest{QuizID: "missing"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssistantChatStoresExchanges(t *testing.T) {
	gen := &scriptedGenerator{reply: assistant.Available("Le cours de Réseaux est assuré par M. Haddad.")}
	convs := newMemoryConversationRepo()
	directory := staticDirectory{{FullName: "M. Haddad", Assignments: []models.TeachingAssignment{{Subject: "Réseaux", Type: models.SessionTypeCM}}}}
	svc := NewAssistantService(gen, nil, convs, directory, NewMetricsService(), nil, nil)
	ctx := context.Background()

	reply, err := svc.Chat(ctx, studentActor, models.ChatRequest{SessionID: "chat-1", Message: "Qui enseigne Réseaux ?"})
	require.NoError(t, err)
	assert.False(t, reply.Fallback)
	assert.Equal(t, "Le cours de Réseaux est assuré par M. Haddad.", reply.Response)
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "- Name: M. Haddad | Teaches: Réseaux (CM)")
	assert.Contains(t, gen.prompts[1], "short title")
	assert.Equal(t, "Le cours de Réseaux est assuré par M. Haddad.", reply.Title)

	gen.reply = assistant.Available("Le lundi à 8h.")
	reply, err = svc.Chat(ctx, studentActor, models.ChatRequest{SessionID: "chat-1", Message: "Et quand ?"})
	require.NoError(t, err)
	require.Len(t, gen.prompts, 3)
	assert.Contains(t, gen.prompts[2], "User: Qui enseigne Réseaux ?\nAssistant: Le cours de Réseaux")
	assert.Equal(t, "Le cours de Réseaux est assuré par M. Haddad.", reply.Title)

	conv, err := svc.LoadConversation(ctx, studentActor, "chat-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Et quand ?", conv.Messages[1].User)

	list, err := svc.ListConversations(ctx, studentActor)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.Chat(ctx, models.Actor{UserID: "s2", Role: models.RoleStudent}, models.ChatRequest{SessionID: "chat-1", Message: "Salut"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.LoadConversation(ctx, models.Actor{UserID: "s2", Role: models.RoleStudent}, "chat-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Chat(ctx, studentActor, models.ChatRequest{SessionID: " ", Message: "Salut"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	empty, err := svc.ListConversations(ctx, models.Actor{UserID: "s2"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAssistantChatUnavailableStoresNothing(t *testing.T) {
	gen := &scriptedGenerator{reply: assistant.Unavailable("timeout")}
	convs := newMemoryConversationRepo()
	svc := NewAssistantService(gen, nil, convs, nil, nil, nil, nil)

	reply, err := svc.Chat(context.Background(), studentActor, models.ChatRequest{SessionID: "chat-9", Message: "Bonjour"})
	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Empty(t, reply.Response)
	assert.Zero(t, convs.appends)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "No staff information available.")
}
