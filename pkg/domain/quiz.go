package domain

import (
	"encoding/json"
	"fmt"
)

// Limits enforced on user-submitted quizzes. These mirror the Telegram
// poll API limits so a valid quiz never fails at send time for size reasons.
const (
	MaxQuestions      = 50
	MaxQuestionLength = 300
	MinOptions        = 2
	MaxOptions        = 4
	MaxOptionLength   = 100
	MaxExplanation    = 200
)

// Question is a single multiple-choice question. The short field names
// (q/o/c/e) are the canonical wire form; ParseQuiz also accepts the
// long-form aliases question/options/correct/explanation.
type Question struct {
	Text        string   `json:"q"`
	Options     []string `json:"o"`
	Correct     int      `json:"c"`
	Explanation string   `json:"e,omitempty"`
}

// Quiz is an ordered list of questions submitted as one JSON document.
type Quiz struct {
	Questions []Question `json:"all_q"`
}

// rawQuestion carries every accepted key spelling for a question.
type rawQuestion struct {
	Q           *string  `json:"q"`
	Question    *string  `json:"question"`
	O           []string `json:"o"`
	Options     []string `json:"options"`
	C           *int     `json:"c"`
	Correct     *int     `json:"correct"`
	CorrectID   *int     `json:"correct_option_id"`
	E           *string  `json:"e"`
	Explanation *string  `json:"explanation"`
}

// rawQuiz carries every accepted key spelling for the question array.
type rawQuiz struct {
	AllQ         []rawQuestion `json:"all_q"`
	Q            []rawQuestion `json:"q"`
	AllQuestions []rawQuestion `json:"all_questions"`
}

// ParseQuiz decodes a quiz document, accepting both the short canonical
// keys and their long-form aliases. It does not validate field contents;
// call Validate on the result for that.
func ParseQuiz(data []byte) (*Quiz, error) {
	var rq rawQuiz
	if err := json.Unmarshal(data, &rq); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	questions := rq.AllQ
	if len(questions) == 0 {
		questions = rq.Q
	}
	if len(questions) == 0 {
		questions = rq.AllQuestions
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found: expected an \"all_q\" array")
	}

	quiz := &Quiz{Questions: make([]Question, 0, len(questions))}
	for _, r := range questions {
		quiz.Questions = append(quiz.Questions, r.normalize())
	}

	return quiz, nil
}

// normalize resolves key aliases into a canonical Question. A missing
// correct index is marked with -1 so validation can reject it.
func (r rawQuestion) normalize() Question {
	q := Question{Correct: -1}

	switch {
	case r.Q != nil:
		q.Text = *r.Q
	case r.Question != nil:
		q.Text = *r.Question
	}

	if len(r.O) > 0 {
		q.Options = r.O
	} else {
		q.Options = r.Options
	}

	switch {
	case r.C != nil:
		q.Correct = *r.C
	case r.Correct != nil:
		q.Correct = *r.Correct
	case r.CorrectID != nil:
		q.Correct = *r.CorrectID
	}

	switch {
	case r.E != nil:
		q.Explanation = *r.E
	case r.Explanation != nil:
		q.Explanation = *r.Explanation
	}

	return q
}

// Validate checks quiz-level and per-question constraints. Errors name
// the 1-based question number so users can fix their JSON.
func (q *Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz must contain at least one question")
	}
	if len(q.Questions) > MaxQuestions {
		return fmt.Errorf("quiz has %d questions, maximum is %d", len(q.Questions), MaxQuestions)
	}

	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	return nil
}

// Validate checks a single question against the poll API limits.
func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if len([]rune(q.Text)) > MaxQuestionLength {
		return fmt.Errorf("question text exceeds %d characters", MaxQuestionLength)
	}

	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("expected %d-%d options, got %d", MinOptions, MaxOptions, len(q.Options))
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("option %d is empty", i+1)
		}
		if len([]rune(opt)) > MaxOptionLength {
			return fmt.Errorf("option %d exceeds %d characters", i+1, MaxOptionLength)
		}
	}

	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("correct index %d does not reference a valid option", q.Correct)
	}

	if len([]rune(q.Explanation)) > MaxExplanation {
		return fmt.Errorf("explanation exceeds %d characters", MaxExplanation)
	}

	return nil
}
