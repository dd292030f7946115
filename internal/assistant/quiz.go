package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// ErrNoQuestions is returned when generated text holds no usable question.
var ErrNoQuestions = errors.New("quiz has no questions")

var fencePattern = regexp.MustCompile("```(?:json)?\\s*")

// ExtractJSON strips code fences and keeps the text between the first '{' and the last '}'.
func ExtractJSON(text string) string {
	text = fencePattern.ReplaceAllString(text, "")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

type rawQuestion struct {
	Question      string          `json:"question"`
	Options       []interface{}   `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Hint          string          `json:"hint"`
	Explanation   string          `json:"explanation"`
}

type rawQuiz struct {
	Subject   string        `json:"subject"`
	Questions []rawQuestion `json:"questions"`
}

// ParseQuiz decodes generated quiz text. Question ids are reassigned to their
// index and options are stringified.
func ParseQuiz(text, subject string) (models.QuizContent, error) {
	var raw rawQuiz
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		return models.QuizContent{}, fmt.Errorf("decode quiz: %w", err)
	}
	content := models.QuizContent{Subject: raw.Subject}
	if strings.TrimSpace(content.Subject) == "" {
		content.Subject = subject
	}
	for _, q := range raw.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		question := models.QuizQuestion{
			ID:            fmt.Sprint(len(content.Questions)),
			Question:      q.Question,
			CorrectAnswer: stringify(q.CorrectAnswer),
			Hint:          q.Hint,
			Explanation:   q.Explanation,
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, fmt.Sprint(opt))
		}
		content.Questions = append(content.Questions, question)
	}
	if len(content.Questions) == 0 {
		return models.QuizContent{}, ErrNoQuestions
	}
	return content, nil
}

// GradeQuiz compares answers keyed by question id with the expected answers.
// Score is the rounded percentage of correct answers.
func GradeQuiz(content models.QuizContent, answers map[string]string) models.QuizResult {
	result := models.QuizResult{Total: len(content.Questions), Corrections: make([]models.QuizCorrection, 0, len(content.Questions))}
	for _, q := range content.Questions {
		expected := strings.TrimSpace(q.CorrectAnswer)
		correct := strings.TrimSpace(answers[q.ID]) == expected
		if correct {
			result.Correct++
		}
		result.Corrections = append(result.Corrections, models.QuizCorrection{
			QuestionID:    q.ID,
			CorrectAnswer: expected,
			Explanation:   q.Explanation,
			Correct:       correct,
		})
	}
	if result.Total > 0 {
		result.Score = int(math.Round(float64(result.Correct) / float64(result.Total) * 100))
	}
	return result
}

// Hint returns the hint of the question at index. Without a stored hint the
// first letter of the answer is revealed.
func Hint(content models.QuizContent, index int) string {
	if index < 0 || index >= len(content.Questions) {
		return "Question invalide."
	}
	q := content.Questions[index]
	if hint := strings.TrimSpace(q.Hint); hint != "" {
		return hint
	}
	answer := []rune(strings.TrimSpace(q.CorrectAnswer))
	if len(answer) == 0 {
		return "Aucun indice."
	}
	return fmt.Sprintf("La réponse commence par '%s'...", strings.ToUpper(string(answer[0])))
}

func stringify(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
