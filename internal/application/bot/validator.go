package bot

import (
	"fmt"

	"github.com/aescanero/quizcast/pkg/domain"
)

// Validator turns raw quiz submissions into validated quizzes
type Validator struct{}

// NewValidator creates a new quiz validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate parses a quiz document and checks every constraint the poll
// API enforces, so a valid quiz never fails at send time for schema
// reasons.
func (v *Validator) Validate(data []byte) (*domain.Quiz, error) {
	quiz, err := domain.ParseQuiz(data)
	if err != nil {
		return nil, err
	}

	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return quiz, nil
}
