package prefs

import (
	"fmt"
	"strings"
)

const questionnaireKey = "questionnaire_answers"

// Answer is one intake questionnaire entry, keyed by the question asked.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionnaireAnswers returns all saved intake answers, in saved order.
func (s *Store) QuestionnaireAnswers() ([]Answer, error) {
	var answers []Answer
	if _, err := s.Get(questionnaireKey, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// SaveAnswer adds or replaces the answer to the same question.
func (s *Store) SaveAnswer(answer Answer) error {
	if answer.Question == "" {
		return fmt.Errorf("questionnaire question must not be empty")
	}

	answers, err := s.QuestionnaireAnswers()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range answers {
		if existing.Question == answer.Question {
			answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		answers = append(answers, answer)
	}
	return s.Set(questionnaireKey, answers)
}

// BackgroundInstructions renders saved answers as an instructions block the
// session can carry. Empty when nothing was answered.
func BackgroundInstructions(answers []Answer) string {
	var lines []string
	for _, answer := range answers {
		if strings.TrimSpace(answer.Answer) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", answer.Question, answer.Answer))
	}
	if len(lines) == 0 {
		return ""
	}
	return "What you already know about the client:\n" + strings.Join(lines, "\n")
}
