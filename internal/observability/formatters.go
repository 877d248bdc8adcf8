// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/interview-assistant/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// textWidth is the usable width inside a box
	textWidth = boxWidth - 4
)

// Printer handles formatted output for the interactive CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", textWidth, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, textWidth) {
			fmt.Fprintf(p.out, "│ %-*s │\n", textWidth, wrapped)
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// wrap splits line on word boundaries so every piece fits in width runes.
// Words longer than width are cut.
func wrap(line string, width int) []string {
	if len([]rune(line)) <= width {
		return []string{line}
	}

	var out []string
	var cur []rune
	for _, word := range strings.Fields(line) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			out = append(out, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// PrintContact outputs the contact details extracted from a resume.
func (p *Printer) PrintContact(c *types.Candidate, missing []string) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:   %s\n", orDash(c.Name)))
	sb.WriteString(fmt.Sprintf("Email:  %s\n", orDash(c.Email)))
	sb.WriteString(fmt.Sprintf("Phone:  %s\n", orDash(c.Phone)))
	sb.WriteString(fmt.Sprintf("Resume: %s", orDash(c.ResumeFileName)))
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\n\nMissing: %s", strings.Join(missing, ", ")))
	}

	p.printBox("CANDIDATE", sb.String())
}

// PrintQuestions outputs a question battery with difficulty and time limits.
func (p *Printer) PrintQuestions(questions []types.Question) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("%d. [%s, %ds] %s\n", i+1, q.Difficulty, q.TimeLimit, q.Category))
		sb.WriteString(fmt.Sprintf("   %s", q.Text))
		if i < len(questions)-1 {
			sb.WriteString("\n\n")
		}
	}

	p.printBox(fmt.Sprintf("INTERVIEW QUESTIONS (%d)", len(questions)), sb.String())
}

// PrintQuestion outputs the question currently being asked.
func (p *Printer) PrintQuestion(q *types.Question, index, total, remaining int) {
	if q == nil {
		return
	}

	title := fmt.Sprintf("QUESTION %d/%d  %s  %s", index+1, total, strings.ToUpper(string(q.Difficulty)), formatSeconds(remaining))
	p.printBox(title, fmt.Sprintf("Category: %s\n\n%s", q.Category, q.Text))
}

// PrintResult outputs a finished interview with per-answer scores and the summary.
func (p *Printer) PrintResult(c *types.Candidate) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidate:   %s\n", orDash(c.Name)))
	sb.WriteString(fmt.Sprintf("Final score: %s\n", formatScore(c.FinalScore)))

	if len(c.Answers) > 0 {
		sb.WriteString("\n")
		for i, a := range c.Answers {
			q, _ := c.QuestionByID(a.QuestionID)
			sb.WriteString(fmt.Sprintf("Q%d %-6s %s  (%s)\n", i+1, q.Difficulty, formatScore(a.Score), formatSeconds(a.TimeSpent)))
		}
	}

	if c.AISummary != "" {
		sb.WriteString("\n")
		sb.WriteString(c.AISummary)
	}

	p.printBox("INTERVIEW RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidates outputs the dashboard table.
func (p *Printer) PrintCandidates(list []*types.Candidate) {
	if len(list) == 0 {
		p.printBox("CANDIDATES", "No candidates yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %-11s %5s  %s\n", "Name", "Status", "Score", "Added"))
	for _, c := range list {
		name := orDash(c.Name)
		if r := []rune(name); len(r) > 20 {
			name = string(r[:17]) + "..."
		}
		sb.WriteString(fmt.Sprintf("%-20s %-11s %5s  %s\n",
			name, c.InterviewStatus, formatScore(c.FinalScore), formatDate(c.CreatedAt)))
	}

	p.printBox(fmt.Sprintf("CANDIDATES (%d)", len(list)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAssessmentStatus outputs the assessment service availability.
func (p *Printer) PrintAssessmentStatus(available, quotaExceeded, offline bool) {
	var state string
	switch {
	case offline:
		state = "offline (no API key), using local fallback"
	case quotaExceeded:
		state = "quota exceeded, using local fallback"
	case available:
		state = "available"
	default:
		state = "unavailable, using local fallback"
	}
	p.printBox("ASSESSMENT SERVICE", state)
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
