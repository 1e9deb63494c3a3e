package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/quizroom-backend/internal/model"
)

func newSeedQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-questions <file.json>",
		Short: "Import questions from a JSON array",
		Long:  "Import questions from a JSON array of {text, subject, options: [{id, text}], correct_option_id}. The import is all or nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			reqs, err := loadQuestions(args[0])
			if err != nil {
				return err
			}
			n, err := a.questions.Import(cmd.Context(), reqs)
			if err != nil {
				return fmt.Errorf("import questions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions\n", n)
			return nil
		}),
	}
}

func loadQuestions(path string) ([]model.QuestionRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var reqs []model.QuestionRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return reqs, nil
}
