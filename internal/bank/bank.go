package bank

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"trivia-service/internal/domain"
)

// DefaultID is the id the built-in bank is registered under.
const DefaultID = "default"

// ChoicesPerQuestion is the fixed width of the choice list.
const ChoicesPerQuestion = 4

// Default returns the built-in ten-question bank.
func Default() domain.Bank {
	return domain.Bank{
		ID: DefaultID,
		Questions: []domain.Question{
			{Prompt: "Who is Karl Li?", Choices: []string{"Violinist", "Historian", "Computer Nerd", "Hiker"}, Answer: domain.AnyChoiceCorrect()},
			{Prompt: "How old is SHS?", Choices: []string{"75", "100", "104", "158"}, Answer: domain.ChoiceAt(2)},
			{Prompt: "How many teeth does a man have?", Choices: []string{"32", "20", "36", "34"}, Answer: domain.ChoiceAt(0)},
			{Prompt: "How many bones does a shark have?", Choices: []string{"202", "88", "0", "270"}, Answer: domain.ChoiceAt(2)},
			{Prompt: "Where's Mardi Gras held in US?", Choices: []string{"New Orleans", "Houston", "New York", "Boston"}, Answer: domain.ChoiceAt(0)},
			{Prompt: "Where's Area 51?", Choices: []string{"Arizona", "Nevada", "California", "Texas"}, Answer: domain.ChoiceAt(1)},
			{Prompt: "What is 'cynophobia'?", Choices: []string{"Fear of tigers", "Cat lover", "Dog lover", "Fear of dogs"}, Answer: domain.ChoiceAt(3)},
			{Prompt: "Where was ice cream invented?", Choices: []string{"France", "China", "England", "United States"}, Answer: domain.ChoiceAt(1)},
			{Prompt: "How many hearts in an octopus?", Choices: []string{"1", "2", "3", "8"}, Answer: domain.ChoiceAt(2)},
			{Prompt: "What was Walt Disney afraid of?", Choices: []string{"Dogs", "Cats", "Ducks", "Mice"}, Answer: domain.ChoiceAt(3)},
		},
	}
}

// Validate checks that every question is playable.
func Validate(b domain.Bank) error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("bank %q has no questions: %w", b.ID, domain.ErrInvalidBank)
	}
	for i, q := range b.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("bank %q question %d: empty prompt: %w", b.ID, i, domain.ErrInvalidBank)
		}
		if len(q.Choices) != ChoicesPerQuestion {
			return fmt.Errorf("bank %q question %d: want %d choices, got %d: %w", b.ID, i, ChoicesPerQuestion, len(q.Choices), domain.ErrInvalidBank)
		}
		if lo.ContainsBy(q.Choices, func(c string) bool { return strings.TrimSpace(c) == "" }) {
			return fmt.Errorf("bank %q question %d: empty choice: %w", b.ID, i, domain.ErrInvalidBank)
		}
		if len(lo.Uniq(q.Choices)) != len(q.Choices) {
			return fmt.Errorf("bank %q question %d: duplicate choices: %w", b.ID, i, domain.ErrInvalidBank)
		}
		if idx, ok := q.Answer.Index(); ok && (idx < 0 || idx >= len(q.Choices)) {
			return fmt.Errorf("bank %q question %d: answer %d out of range: %w", b.ID, i, idx, domain.ErrInvalidBank)
		}
	}
	return nil
}
