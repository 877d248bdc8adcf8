package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/ingestion"
	"github.com/jonathan/interview-assistant/internal/observability"
	"github.com/jonathan/interview-assistant/internal/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract text and contact details from a resume",
	Long:  "Extract text from a PDF or DOCX resume, clean it, detect contact details and write resume.cleaned.txt and resume.meta.json.",
	RunE:  runIngest,
}

var (
	ingestResume string
	ingestOut    string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestResume, "resume", "r", "", "Path to the resume (.pdf or .docx)")
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "Output directory (required)")

	_ = ingestCmd.MarkFlagRequired("resume")
	_ = ingestCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	a, err := newGatewayApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resume, err := ingestion.IngestFromFile(ingestResume)
	if err != nil {
		return fmt.Errorf("failed to ingest resume: %w", err)
	}
	if err := ingestion.WriteOutput(ingestOut, resume); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	contact := resume.Contact
	if !resume.Placeholder {
		contact = a.gateway.ExtractContactInfo(cmd.Context(), resume.Text)
	}
	candidate := &types.Candidate{Name: contact.Name, Email: contact.Email, Phone: contact.Phone}
	observability.NewPrinter(cmd.OutOrStdout()).PrintContact(candidate, fallback.MissingFields(contact))

	out := cmd.OutOrStdout()
	if resume.Placeholder {
		fmt.Fprintln(out, "Warning: resume could not be parsed, placeholder contact used")
	}
	fmt.Fprintf(out, "Cleaned text: %s/resume.cleaned.txt\n", ingestOut)
	fmt.Fprintf(out, "Metadata: %s/resume.meta.json\n", ingestOut)
	return nil
}
