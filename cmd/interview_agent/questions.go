package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-assistant/internal/ingestion"
	"github.com/jonathan/interview-assistant/internal/observability"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate the interview question battery for a resume",
	RunE:  runQuestions,
}

var questionsResume string

func init() {
	questionsCmd.Flags().StringVarP(&questionsResume, "resume", "r", "", "Path to the resume (.pdf or .docx)")
	_ = questionsCmd.MarkFlagRequired("resume")
	rootCmd.AddCommand(questionsCmd)
}

func runQuestions(cmd *cobra.Command, _ []string) error {
	a, err := newGatewayApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resume, err := ingestion.IngestFromFile(questionsResume)
	if err != nil {
		return fmt.Errorf("failed to ingest resume: %w", err)
	}

	questions := a.gateway.GenerateQuestions(cmd.Context(), resume.Text)

	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintQuestions(questions)
	st := a.gateway.Status()
	p.PrintAssessmentStatus(st.Available, st.QuotaExceeded, st.Offline)
	return nil
}
