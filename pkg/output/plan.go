package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// planOrder lists outcomes in the order the plan report shows them
var planOrder = []models.Outcome{
	models.OutcomeFailed,
	models.OutcomeDemotedOther,
	models.OutcomeOverwritten,
	models.OutcomeRedirected,
	models.OutcomeRenamed,
	models.OutcomePlaced,
	models.OutcomeSkipped,
}

var planLabels = map[models.Outcome]string{
	models.OutcomeFailed:       "Failures",
	models.OutcomeDemotedOther: "Existing Files Demoted",
	models.OutcomeOverwritten:  "Files Overwritten",
	models.OutcomeRedirected:   "Files Redirected",
	models.OutcomeRenamed:      "Files Renamed",
	models.OutcomePlaced:       "Files Placed",
	models.OutcomeSkipped:      "Files Skipped",
}

// WritePlanReportFile writes the plan report to a file
// Format can be "human" or "json"
func WritePlanReportFile(report *models.RunReport, path string, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plan report file: %w", err)
	}
	defer file.Close()

	return WritePlanReport(file, report, format)
}

// WritePlanReport lists every action of a run grouped by outcome
func WritePlanReport(w io.Writer, report *models.RunReport, format string) error {
	switch format {
	case "json":
		return writePlanJSON(report, w)
	default: // "human"
		return writePlanHuman(report, w)
	}
}

// writePlanHuman writes the plan in human-readable format
func writePlanHuman(report *models.RunReport, w io.Writer) error {
	fmt.Fprintf(w, "Plan Report\n")
	fmt.Fprintf(w, "===========\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	fmt.Fprintf(w, "Source: %s\n", report.SourcePath)
	fmt.Fprintf(w, "Destination: %s\n", report.DestPath)
	fmt.Fprintf(w, "Duplicate Handling: %s\n", report.Mode)
	fmt.Fprintf(w, "Transfer: %s\n", report.Transfer)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)

	fmt.Fprintf(w, "Total Actions: %d\n\n", len(report.Events))

	byOutcome := make(map[models.Outcome][]models.Event)
	for _, ev := range report.Events {
		byOutcome[ev.Outcome] = append(byOutcome[ev.Outcome], ev)
	}

	for _, outcome := range planOrder {
		events := byOutcome[outcome]
		if len(events) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d)", planLabels[outcome], len(events))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, ev := range events {
			switch outcome {
			case models.OutcomeDemotedOther:
				fmt.Fprintf(w, "  %s\n", ev.SubjectPath)
				fmt.Fprintf(w, "    To:      %s\n", ev.FinalPath)
				fmt.Fprintf(w, "    For:     %s\n", ev.IncomingPath)
			case models.OutcomeFailed:
				fmt.Fprintf(w, "  %s\n", ev.IncomingPath)
				if ev.Err != nil {
					fmt.Fprintf(w, "    Error:   %v\n", ev.Err)
				}
			default:
				fmt.Fprintf(w, "  %s\n", ev.IncomingPath)
				if ev.FinalPath != "" {
					fmt.Fprintf(w, "    To:      %s\n", ev.FinalPath)
				}
			}
			if ev.Reason != "" {
				fmt.Fprintf(w, "    Reason:  %s\n", ev.Reason)
			}
			if ev.ConflictKind != "" && ev.ConflictKind != models.ConflictNone {
				fmt.Fprintf(w, "    Conflict: %s\n", ev.ConflictKind)
			}
			fmt.Fprintf(w, "\n")
		}

		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writePlanJSON writes the plan in JSON format
func writePlanJSON(report *models.RunReport, w io.Writer) error {
	actions := make([]JSONEventData, 0, len(report.Events))
	for _, ev := range report.Events {
		actions = append(actions, newJSONEvent(ev))
	}

	output := struct {
		Generated  string          `json:"generated"`
		RunID      string          `json:"run_id"`
		SourcePath string          `json:"source"`
		DestPath   string          `json:"destination"`
		Mode       string          `json:"duplicate_handling"`
		Transfer   string          `json:"transfer"`
		DryRun     bool            `json:"dry_run"`
		TotalCount int             `json:"total_count"`
		Actions    []JSONEventData `json:"actions"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		RunID:      report.RunID,
		SourcePath: report.SourcePath,
		DestPath:   report.DestPath,
		Mode:       string(report.Mode),
		Transfer:   string(report.Transfer),
		DryRun:     report.DryRun,
		TotalCount: len(report.Events),
		Actions:    actions,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
