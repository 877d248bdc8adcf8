package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/observability"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List candidates and their scores",
	RunE:  runCandidates,
}

var (
	candidatesSort string
	candidatesShow string
)

func init() {
	candidatesCmd.Flags().StringVarP(&candidatesSort, "sort", "s", "date", "Sort order: score, name or date")
	candidatesCmd.Flags().StringVar(&candidatesShow, "show", "", "Print the full result for one candidate id")
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidates(cmd *cobra.Command, _ []string) error {
	key, err := interview.ParseSortKey(candidatesSort)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p := observability.NewPrinter(cmd.OutOrStdout())
	if candidatesShow != "" {
		c, err := a.svc.Candidate(cmd.Context(), candidatesShow)
		if err != nil {
			return err
		}
		p.PrintResult(c)
		return nil
	}

	p.PrintCandidates(a.svc.Candidates(cmd.Context(), key))
	return nil
}
