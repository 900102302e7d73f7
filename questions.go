package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Question is a yes/no question about the secret character, carried in the
// three locales the client can render. Rooms reference questions by ID only.
type Question struct {
	ID     string `json:"id"`
	TextFR string `json:"text_fr"`
	TextEN string `json:"text_en"`
	TextES string `json:"text_es"`
}

// QuestionSupplier provides the shared read-only question pool. The room
// state machine performs its own uniform-random draws from the full list.
type QuestionSupplier interface {
	ListAll() []Question
}

//go:embed questions.json
var embeddedQuestions []byte

type staticSupplier struct {
	questions []Question
}

func (s *staticSupplier) ListAll() []Question {
	return s.questions
}

// loadQuestions builds the question supplier from an override file when one
// is configured, otherwise from the embedded pool.
func loadQuestions(cfg *Config) (QuestionSupplier, error) {
	data := embeddedQuestions

	if cfg.questions != "" {
		override, err := os.ReadFile(cfg.questions)
		if err != nil {
			return nil, fmt.Errorf("reading question pool %q: %w", cfg.questions, err)
		}
		data = override
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing question pool: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question pool is empty")
	}

	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question with empty id: %q", q.TextFR)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id: %q", q.ID)
		}
		seen[q.ID] = true
	}

	return &staticSupplier{questions: questions}, nil
}
