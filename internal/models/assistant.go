package models

import (
	"database/sql/driver"
	"time"
)

// SummaryStyle selects the summary format.
type SummaryStyle string

const (
	SummaryBulletPoints SummaryStyle = "bullet_points"
	SummaryParagraph    SummaryStyle = "paragraph"
	SummaryConcise      SummaryStyle = "concise"
)

// SummaryRequest asks for a study summary of a text.
type SummaryRequest struct {
	Text  string       `json:"text" validate:"required,max=50000"`
	Style SummaryStyle `json:"style" validate:"omitempty,oneof=bullet_points paragraph concise"`
}

// StudyPlanRequest asks for a day by day revision plan.
type StudyPlanRequest struct {
	Days      int      `json:"days" validate:"required,min=1,max=60"`
	Subjects  []string `json:"subjects" validate:"required,min=1,dive,required"`
	Goal      string   `json:"goal" validate:"max=500"`
	Resources []string `json:"resources"`
}

// QuizRequest asks for a generated multiple choice quiz.
type QuizRequest struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	Difficulty string `json:"difficulty"`
	Language   string `json:"language"`
}

// AssistantText is a generated text answer.
type AssistantText struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// QuizQuestion is one multiple choice question.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Hint          string   `json:"hint,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizContent is the generated quiz body, persisted as JSONB.
type QuizContent struct {
	Subject   string         `json:"subject"`
	Questions []QuizQuestion `json:"questions"`
}

// Value marshals quiz content.
func (q QuizContent) Value() (driver.Value, error) {
	if q.Questions == nil {
		q.Questions = []QuizQuestion{}
	}
	return jsonValue(map[string]interface{}{"subject": q.Subject, "questions": q.Questions}, "quiz content")
}

// Scan unmarshals quiz content.
func (q *QuizContent) Scan(value interface{}) error {
	*q = QuizContent{}
	return scanJSON(value, q, "quiz content")
}

// Quiz is a stored quiz owned by a user.
type Quiz struct {
	ID        string      `db:"id" json:"quiz_id"`
	UserID    string      `db:"user_id" json:"user_id"`
	Content   QuizContent `db:"content" json:"content"`
	Fallback  bool        `db:"fallback" json:"fallback"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// GradeQuizRequest submits answers keyed by question id.
type GradeQuizRequest struct {
	QuizID  string            `json:"quiz_id" validate:"required"`
	Answers map[string]string `json:"answers"`
}

// QuizCorrection explains one question after grading.
type QuizCorrection struct {
	QuestionID    string `json:"question_id"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Correct       bool   `json:"correct"`
}

// QuizResult is the graded outcome; Score is a rounded percentage.
type QuizResult struct {
	Score       int              `json:"score"`
	Correct     int              `json:"correct"`
	Total       int              `json:"total"`
	Corrections []QuizCorrection `json:"corrections"`
}

// QuizHintRequest asks for a hint on the question at Index.
type QuizHintRequest struct {
	QuizID string `json:"quiz_id" validate:"required"`
	Index  int    `json:"index"`
}

// QuizHint is the hint for one question.
type QuizHint struct {
	Hint string `json:"hint"`
}

// ChatRequest sends a message within a client chosen conversation id.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// ChatMessage is one exchange of a conversation.
type ChatMessage struct {
	User string    `json:"user"`
	AI   string    `json:"ai"`
	Time time.Time `json:"time"`
}

// ChatMessages is the exchange log persisted as JSONB.
type ChatMessages []ChatMessage

// Value marshals the exchanges.
func (m ChatMessages) Value() (driver.Value, error) {
	if m == nil {
		m = ChatMessages{}
	}
	return jsonValue([]ChatMessage(m), "chat messages")
}

// Scan unmarshals the exchanges.
func (m *ChatMessages) Scan(value interface{}) error {
	*m = ChatMessages{}
	return scanJSON(value, (*[]ChatMessage)(m), "chat messages")
}

// Conversation is a stored chat owned by a user.
type Conversation struct {
	SessionID string       `db:"session_id" json:"session_id"`
	UserID    string       `db:"user_id" json:"-"`
	Title     string       `db:"title" json:"title"`
	Messages  ChatMessages `db:"messages" json:"messages"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// ConversationSummary lists a conversation without its messages.
type ConversationSummary struct {
	SessionID string    `db:"session_id" json:"session_id"`
	Title     string    `db:"title" json:"title"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatReply answers a chat message. Fallback is set when no reply could be generated.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Title     string `json:"title"`
	Fallback  bool   `json:"fallback"`
}
