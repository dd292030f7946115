package assistant

import (
	"fmt"
	"strings"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// QuizQuestionCount is the number of questions requested per quiz.
const QuizQuestionCount = 5

// SummaryPrompt asks for an exam-oriented summary in the requested style.
func SummaryPrompt(text string, style models.SummaryStyle) string {
	var format string
	switch style {
	case models.SummaryConcise:
		format = "Format: A very short, high-level executive summary (max 3-4 sentences)."
	case models.SummaryParagraph:
		format = "Format: A coherent, well-written paragraph explaining the content."
	default:
		format = "Format: A structured list of bullet points with bold headers for key topics."
	}
	return fmt.Sprintf(`You are an expert university note-taker.
Summarize the following content for a student who needs to study for an exam.
%s

Rules:
1. Ignore irrelevant text such as page numbers and headers.
2. Focus on definitions, dates and core concepts.
3. Use **bold** for important terms.

Content:
%s`, format, text)
}

// StudyPlanPrompt asks for a day by day revision schedule in Markdown.
func StudyPlanPrompt(days int, subjects []string, goal string, resources []string) string {
	files := "Aucun fichier spécifique téléversé."
	if len(resources) > 0 {
		files = strings.Join(resources, ", ")
	}
	return fmt.Sprintf(`Agis en tant qu'expert en planification académique.
Crée un plan de révision pour un étudiant universitaire.

Contexte:
- Durée: %d jours.
- Matières à réviser: %s.
- Objectif principal: %s.
- Ressources disponibles: [%s].

Instructions:
1. Crée un emploi du temps jour par jour.
2. Sois précis (ex: "Jour 1: 09h00 - 11h00 : Titre du chapitre").
3. Si une matière correspond à une ressource listée, recommande-la explicitement.
4. Réponds en Markdown et inclus des pauses.`, days, strings.Join(subjects, ", "), goal, files)
}

// QuizPrompt asks for a multiple choice quiz as raw JSON.
func QuizPrompt(subject, difficulty, language string) string {
	return fmt.Sprintf(`Act as a professional quiz generator API.
Create a multiple-choice quiz.
- Subject: %q
- Difficulty: %s
- Language: %s
- Question count: %d

Return ONLY raw JSON with this structure:
{"subject": %q, "questions": [{"id": "1", "question": "Question text?", "options": ["A", "B", "C", "D"], "correct_answer": "Exact string of correct option", "hint": "Helpful hint", "explanation": "Why it is correct"}]}`,
		subject, difficulty, language, QuizQuestionCount, subject)
}

// ChatHistoryLimit is the number of previous exchanges replayed to the model.
const ChatHistoryLimit = 10

// DefaultChatTitle names a conversation when no title can be derived.
const DefaultChatTitle = "Nouvelle conversation"

// StaffDirectory renders staff and the subjects they teach for the chat knowledge base.
func StaffDirectory(staff []models.Staff) string {
	if len(staff) == 0 {
		return "No staff information available."
	}
	var b strings.Builder
	b.WriteString("### UNIVERSITY STAFF DIRECTORY ###\n")
	for _, member := range staff {
		seen := make(map[string]bool)
		var subjects []string
		for _, a := range member.Assignments {
			label := fmt.Sprintf("%s (%s)", a.Subject, a.Type)
			if a.Subject == "" || seen[label] {
				continue
			}
			seen[label] = true
			subjects = append(subjects, label)
		}
		teaches := "General Staff"
		if len(subjects) > 0 {
			teaches = strings.Join(subjects, ", ")
		}
		fmt.Fprintf(&b, "- Name: %s | Teaches: %s\n", member.FullName, teaches)
	}
	return b.String()
}

// ChatPrompt replays the last exchanges of a conversation followed by the new message.
func ChatPrompt(directory string, history []models.ChatMessage, message string) string {
	if len(history) > ChatHistoryLimit {
		history = history[len(history)-ChatHistoryLimit:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, `You are a helpful University AI Assistant.

### KNOWLEDGE BASE:
%s
### INSTRUCTIONS:
- Use the knowledge base above to answer questions about teachers and subjects.
- If the user asks "Who teaches X?", look for the subject in the directory.
- Be polite, concise, and helpful.
- If you don't know the answer, strictly say "I don't have that information."
`, directory)
	if len(history) > 0 {
		b.WriteString("\n### CONVERSATION:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", m.User, m.AI)
		}
	}
	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", message)
	return b.String()
}

// ChatTitlePrompt asks for a short title describing the start of a conversation.
func ChatTitlePrompt(message, reply string) string {
	return fmt.Sprintf("Summarize this conversation start into a short title (max 5 words):\nUser: %s\nAI: %s", message, reply)
}

// ChatTitle cleans a generated title. When it is empty the first words of the
// message are used instead.
func ChatTitle(generated, message string) string {
	title := strings.TrimSpace(strings.ReplaceAll(generated, `"`, ""))
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if title == "" {
		words := strings.Fields(message)
		if len(words) > 5 {
			words = words[:5]
		}
		title = strings.Join(words, " ")
	}
	if title == "" {
		return DefaultChatTitle
	}
	return title
}
