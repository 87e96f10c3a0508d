package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
)

// NewPlayCmd builds the CLI subcommand that runs the quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Take the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath)
		},
	}
}

func runPlay(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer service.Close()

	in := bufio.NewScanner(os.Stdin)
	out := os.Stdout

	if err := promptEmail(in, out, service); err != nil {
		return err
	}

	for {
		snapshot := service.Snapshot()
		switch snapshot.Status {
		case domain.StatusIdle:
			fmt.Fprintln(out, "Loading questions...")
			if err := service.BeginLoad(ctx); err != nil {
				// Guard failures never reach the error state; surface them here.
				if service.Snapshot().Status != domain.StatusError {
					return err
				}
			}
		case domain.StatusError:
			fmt.Fprintf(out, "Something went wrong: %s\n", snapshot.Error)
			fmt.Fprint(out, "Retry? [y/n] ")
			if !in.Scan() || strings.TrimSpace(in.Text()) != "y" {
				return nil
			}
			if err := service.Retry(); err != nil {
				return err
			}
		case domain.StatusReady:
			done, err := playRound(in, out, service)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		case domain.StatusSubmitted:
			renderReport(out, service.Report())
			return nil
		default:
			return fmt.Errorf("unexpected session status %q", snapshot.Status)
		}
	}
}

// promptEmail collects a valid address, offering to resume or discard a saved
// quiz when one exists.
func promptEmail(in *bufio.Scanner, out io.Writer, service *app.QuizService) error {
	snapshot := service.Snapshot()
	if snapshot.Email != "" && len(snapshot.Questions) > 0 && snapshot.Status == domain.StatusReady {
		fmt.Fprintf(out, "Found a saved quiz for %s. Continue? [y/n] ", snapshot.Email)
		if in.Scan() && strings.TrimSpace(in.Text()) == "y" {
			return nil
		}
		service.Reset()
		snapshot = service.Snapshot()
	}

	for {
		if snapshot.Email != "" {
			fmt.Fprintf(out, "Email address [%s]: ", snapshot.Email)
		} else {
			fmt.Fprint(out, "Email address: ")
		}
		if !in.Scan() {
			return fmt.Errorf("no email supplied")
		}
		addr := strings.TrimSpace(in.Text())
		if addr == "" && snapshot.Email != "" {
			addr = snapshot.Email
		}
		if !domain.ValidEmail(addr) {
			fmt.Fprintln(out, "Please enter a valid email address.")
			continue
		}
		service.SetEmail(addr)
		return nil
	}
}

// playRound renders the current question and applies one command. It returns
// done=true when the taker quits; submission is detected by the caller via
// the status change.
func playRound(in *bufio.Scanner, out io.Writer, service *app.QuizService) (bool, error) {
	snapshot := service.Snapshot()
	if snapshot.Status != domain.StatusReady {
		return false, nil
	}
	renderQuestion(out, snapshot)

	if !in.Scan() {
		return true, nil
	}
	input := strings.TrimSpace(in.Text())
	current := snapshot.CurrentIndex
	question := snapshot.Questions[current]

	switch {
	case input == "q":
		fmt.Fprintln(out, "Progress saved. Bye.")
		return true, nil
	case input == "n":
		if err := service.Navigate(current + 1); err == domain.ErrIndexOutOfRange {
			fmt.Fprintln(out, "Already at the last question.")
		}
	case input == "p":
		if err := service.Navigate(current - 1); err == domain.ErrIndexOutOfRange {
			fmt.Fprintln(out, "Already at the first question.")
		}
	case strings.HasPrefix(input, "g "):
		target, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(input, "g ")))
		if err != nil || service.Navigate(target-1) != nil {
			fmt.Fprintln(out, "No such question.")
		}
	case input == "s":
		fmt.Fprint(out, "Submit quiz? You can't change answers after submission. [y/n] ")
		if in.Scan() && strings.TrimSpace(in.Text()) == "y" {
			// Losing the race against the countdown is fine, the quiz is
			// submitted either way.
			_ = service.Submit()
		}
	default:
		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(question.Options) {
			fmt.Fprintln(out, "Unknown command.")
			break
		}
		if err := service.SelectAnswer(current, question.Options[choice-1]); err != nil {
			fmt.Fprintln(out, "Could not record that answer.")
		}
	}
	return false, nil
}

func renderQuestion(out io.Writer, snapshot domain.Session) {
	question := snapshot.Questions[snapshot.CurrentIndex]
	fmt.Fprintf(out, "\n[%s]  Question %d of %d  (answered %d)\n",
		formatClock(snapshot.RemainingTime),
		snapshot.CurrentIndex+1, len(snapshot.Questions),
		snapshot.AttemptedCount())
	fmt.Fprintln(out, question.Text)
	for i, option := range question.Options {
		marker := " "
		if snapshot.Attempted(snapshot.CurrentIndex) && *snapshot.SelectedAnswers[snapshot.CurrentIndex] == option {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", marker, i+1, option)
	}
	fmt.Fprintln(out, "answer: 1-"+strconv.Itoa(len(question.Options))+" | n next | p prev | g <n> goto | s submit | q quit")
}

func renderReport(out io.Writer, report domain.Report) {
	fmt.Fprintf(out, "\nQuiz Report for %s\n", report.Email)
	fmt.Fprintf(out, "Attempted %d / %d,  Score %d / %d\n", report.Attempted, report.Total, report.Correct, report.Total)
	for _, row := range report.Rows {
		fmt.Fprintf(out, "\nQ%d. %s\n", row.Index+1, row.Question)
		if row.Answered {
			verdict := "wrong"
			if row.Correct {
				verdict = "correct"
			}
			fmt.Fprintf(out, "  Your answer: %s (%s)\n", row.Selected, verdict)
		} else {
			fmt.Fprintln(out, "  Your answer: not answered")
		}
		fmt.Fprintf(out, "  Correct answer: %s\n", row.CorrectAnswer)
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
