package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// TerminalPrompter asks the user how to handle each conflict
// End of input cancels the run
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer

	title  lipgloss.Style
	path   lipgloss.Style
	option lipgloss.Style
	warn   lipgloss.Style
}

// NewTerminalPrompter creates a prompter reading answers from in
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	r := lipgloss.NewRenderer(out)
	return &TerminalPrompter{
		in:     bufio.NewReader(in),
		out:    out,
		title:  r.NewStyle().Bold(true),
		path:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#64B5F6"}),
		option: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}),
		warn:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB74D"}),
	}
}

// Resolve shows the conflict and reads a decision about subject
func (p *TerminalPrompter) Resolve(ctx context.Context, c models.Conflict, subject models.FileRecord) (models.Decision, error) {
	fmt.Fprintf(p.out, "\n%s %s\n", p.title.Render("Duplicate detected for:"), c.Incoming.Name())
	fmt.Fprintf(p.out, "Target location: %s\n", p.path.Render(c.TargetPath))

	var duplicates []string
	for _, rec := range c.Existing {
		if rec.SameContent(c.Incoming.Fingerprint) {
			duplicates = append(duplicates, rec.Path)
		}
	}
	if len(duplicates) > 0 {
		fmt.Fprintf(p.out, "Content duplicates found at:\n")
		for _, d := range duplicates {
			fmt.Fprintf(p.out, "  - %s\n", p.path.Render(d))
		}
	}
	if _, ok := c.Occupant(); ok {
		fmt.Fprintf(p.out, "Filename conflict at: %s\n", p.path.Render(c.TargetPath))
	}
	if subject.Path != "" {
		fmt.Fprintf(p.out, "Existing file concerned: %s\n", p.path.Render(subject.Path))
	}

	for {
		fmt.Fprintf(p.out, "\nChoose action:\n")
		fmt.Fprintf(p.out, "  %s) Skip this file\n", p.option.Render("s"))
		fmt.Fprintf(p.out, "  %s) Overwrite existing file(s)\n", p.option.Render("o"))
		fmt.Fprintf(p.out, "  %s) Rename with suffix\n", p.option.Render("r"))
		fmt.Fprintf(p.out, "  %s) Redirect to duplicates directory\n", p.option.Render("R"))
		fmt.Fprintf(p.out, "Your choice [s/o/r/R]: ")

		line, err := readLine(ctx, p.in)
		if err != nil {
			fmt.Fprintln(p.out)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %w", models.ErrInteractiveCancelled, ctxErr)
			}
			if errors.Is(err, io.EOF) {
				return "", models.ErrInteractiveCancelled
			}
			return "", fmt.Errorf("failed to read answer: %w", err)
		}

		if decision, ok := parseDecision(line); ok {
			return decision, nil
		}
		fmt.Fprintln(p.out, p.warn.Render("Invalid choice. Please enter s, o, r, or R."))
	}
}

// parseDecision maps an answer to a decision
// Single letters are case sensitive so that "r" and "R" differ
func parseDecision(answer string) (models.Decision, bool) {
	answer = strings.TrimSpace(answer)
	switch answer {
	case "s":
		return models.DecisionSkip, true
	case "o":
		return models.DecisionOverwrite, true
	case "r":
		return models.DecisionRename, true
	case "R":
		return models.DecisionRedirect, true
	}
	switch strings.ToLower(answer) {
	case "skip":
		return models.DecisionSkip, true
	case "overwrite":
		return models.DecisionOverwrite, true
	case "rename":
		return models.DecisionRename, true
	case "redirect":
		return models.DecisionRedirect, true
	}
	return "", false
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one answer, giving up when ctx is cancelled
// A final line without newline is still an answer
func readLine(ctx context.Context, r *bufio.Reader) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) && strings.TrimSpace(res.line) != "" {
				return res.line, nil
			}
			return "", res.err
		}
		return res.line, nil
	}
}

// confirmDryRunMove asks whether to simulate a move when no transfer mode was given
// End of input counts as yes
func confirmDryRunMove(ctx context.Context, in io.Reader, out io.Writer, version string) (bool, error) {
	r := lipgloss.NewRenderer(out)
	warn := r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB74D"})

	fmt.Fprintf(out, "orgphoto %s\n", version)
	fmt.Fprintln(out, warn.Render("Warning: Neither --move nor --copy specified."))
	fmt.Fprint(out, "Would you like to run in dryrun mode simulating moving files? [Y/n]: ")

	line, err := readLine(ctx, bufio.NewReader(in))
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			line = "y"
		} else {
			return false, err
		}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		fmt.Fprintln(out, "Running in dryrun mode simulating moving files.")
		return true, nil
	default:
		fmt.Fprintln(out, "No action selected. Exiting.")
		return false, nil
	}
}
