package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Injection patterns: query fragments that should never appear in a user question.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

const minQuestionLength = 3

// ValidateQuestion validates a user question before it enters the pipeline.
func ValidateQuestion(q Question) error {
	text := strings.TrimSpace(q.Text)

	if utf8.RuneCountInString(text) < minQuestionLength {
		return NewValidationError("text", text, ErrQuestionTooShort)
	}

	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError("text", text, ErrInvalidQuestion)
		}
	}

	return nil
}
