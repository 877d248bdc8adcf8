package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/observability"
	"github.com/jonathan/interview-assistant/internal/session"
	"github.com/jonathan/interview-assistant/internal/types"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive timed interview in the terminal",
	Long: `Run an interview in the terminal. Each question is answered with one line of input;
an unanswered question is submitted automatically when its time runs out.
An unfinished interview is offered for resumption on the next run.`,
	RunE: runInterview,
}

var (
	interviewResume string
	interviewName   string
	interviewEmail  string
	interviewPhone  string
)

func init() {
	interviewCmd.Flags().StringVarP(&interviewResume, "resume", "r", "", "Path to the resume (.pdf or .docx)")
	interviewCmd.Flags().StringVar(&interviewName, "name", "", "Candidate name (overrides the resume)")
	interviewCmd.Flags().StringVar(&interviewEmail, "email", "", "Candidate email (overrides the resume)")
	interviewCmd.Flags().StringVar(&interviewPhone, "phone", "", "Candidate phone (overrides the resume)")
	rootCmd.AddCommand(interviewCmd)
}

// console bundles the terminal streams of one interview run.
type console struct {
	in      io.Reader
	out     io.Writer
	lines   *bufio.Reader
	printer *observability.Printer
}

func newConsole(cmd *cobra.Command) *console {
	return &console{
		in:      cmd.InOrStdin(),
		out:     cmd.OutOrStdout(),
		printer: observability.NewPrinter(cmd.OutOrStdout()),
	}
}

func (c *console) prompt(p promptui.Prompt) (string, error) {
	p.Stdin = io.NopCloser(c.in)
	p.Stdout = nopWriteCloser{c.out}
	return p.Run()
}

// readLine reads one answer. The reader is created on first use so earlier
// promptui prompts see unbuffered input.
func (c *console) readLine() (string, error) {
	if c.lines == nil {
		c.lines = bufio.NewReader(c.in)
	}
	line, err := c.lines.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func runInterview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	con := newConsole(cmd)
	if a.cfg.Offline() {
		fmt.Fprintln(con.out, "Running offline: questions and scores come from the local fallback.")
	}

	id, restored, err := welcomeBack(ctx, a.svc, con)
	if err != nil {
		return err
	}
	if !restored {
		if interviewResume == "" {
			return errors.New("--resume is required to start a new interview")
		}
		if id, err = addCandidate(ctx, a.svc, con); err != nil {
			return err
		}
		if _, err := a.svc.StartInterview(ctx, id); err != nil {
			return err
		}
	}

	return askQuestions(ctx, a.svc, con, id)
}

// welcomeBack offers to resume an unfinished interview.
func welcomeBack(ctx context.Context, svc *interview.Service, con *console) (string, bool, error) {
	pending, err := svc.WelcomeBack(ctx)
	if err != nil || pending == nil {
		return "", false, err
	}

	label := fmt.Sprintf("Welcome back %s, you answered %d of %d questions. Resume",
		displayName(pending.Name), len(pending.Answers), len(pending.Questions))
	_, err = con.prompt(promptui.Prompt{Label: label, IsConfirm: true})
	switch {
	case err == nil:
		if _, err := svc.Restore(ctx, pending.ID); err != nil {
			return "", false, err
		}
		return pending.ID, true, nil
	case errors.Is(err, promptui.ErrAbort):
		return "", false, svc.Clear(ctx)
	default:
		return "", false, err
	}
}

// addCandidate ingests the resume and asks for any contact detail the
// resume did not provide.
func addCandidate(ctx context.Context, svc *interview.Service, con *console) (string, error) {
	res, err := svc.AddCandidateFromFile(ctx, interviewResume, types.ContactInfo{
		Name:  interviewName,
		Email: interviewEmail,
		Phone: interviewPhone,
	})
	if err != nil {
		return "", err
	}
	c := res.Candidate
	if res.Placeholder {
		fmt.Fprintln(con.out, "Warning: resume could not be parsed, placeholder contact used")
	}
	con.printer.PrintContact(c, res.MissingFields)
	if len(res.MissingFields) == 0 {
		return c.ID, nil
	}

	req := &types.UpdateContactRequest{Name: c.Name, Email: c.Email, Phone: c.Phone}
	validate := validator.New()
	for _, field := range res.MissingFields {
		target, rule := contactField(req, field)
		if target == nil {
			continue
		}
		v, err := con.prompt(promptui.Prompt{
			Label: "Your " + field,
			Validate: func(s string) error {
				return validate.Var(strings.TrimSpace(s), rule)
			},
		})
		if err != nil {
			return "", err
		}
		*target = strings.TrimSpace(v)
	}

	if _, err := svc.UpdateContact(ctx, c.ID, req); err != nil {
		return "", err
	}
	return c.ID, nil
}

// contactField returns the request field and validation rule for a missing field name.
func contactField(req *types.UpdateContactRequest, field string) (*string, string) {
	switch field {
	case "name":
		return &req.Name, "required"
	case "email":
		return &req.Email, "required,email"
	case "phone":
		return &req.Phone, "required,min=7"
	}
	return nil, ""
}

// askQuestions runs the answer loop until the interview completes or input ends.
func askQuestions(ctx context.Context, svc *interview.Service, con *console, id string) error {
	for {
		st := svc.Session()
		if st.Completed || !st.IsActive || st.CurrentQuestion == nil {
			break
		}
		q := st.CurrentQuestion
		con.printer.PrintQuestion(q, st.QuestionIndex, st.TotalQuestions, st.TimeRemaining)
		fmt.Fprint(con.out, "> ")

		text, readErr := con.readLine()
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if errors.Is(readErr, io.EOF) && text == "" {
			fmt.Fprintln(con.out, "\nInput closed. Progress is saved; run interview again to resume.")
			return nil
		}

		_, err := svc.Submit(ctx, q.ID, text)
		switch {
		case errors.Is(err, session.ErrQuestionClosed), errors.Is(err, session.ErrNoActiveQuestion):
			fmt.Fprintln(con.out, "Time ran out; your draft was submitted automatically.")
		case err != nil:
			return err
		}

		if errors.Is(readErr, io.EOF) && !svc.Session().Completed {
			fmt.Fprintln(con.out, "Input closed. Progress is saved; run interview again to resume.")
			return nil
		}
	}

	// A final timeout finalizes in the background.
	svc.Wait()
	c, err := svc.Candidate(ctx, id)
	if err != nil {
		return err
	}
	con.printer.PrintResult(c)
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
