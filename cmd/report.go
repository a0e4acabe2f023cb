package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/meetsight/attendance/internal/attendance"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the attendance report for a session",
	Long: `Calculate and print the attendance report for a tracked session.
The report lists every registered student with their presence verdict,
matched ping counts and average match confidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("csv", "", "Write the report as CSV to the given file ('-' for stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.reporter.Calculate(context.Background(), sessionID)
	if err != nil {
		return err
	}

	if csvPath := mustGetString(cmd, "csv"); csvPath != "" {
		return writeReportCSV(csvPath, report)
	}

	printReport(sessionID, report)
	return nil
}

func writeReportCSV(path string, report []attendance.Entry) error {
	if path == "-" {
		return attendance.WriteCSV(os.Stdout, report)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer f.Close()

	if err := attendance.WriteCSV(f, report); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}

func printReport(sessionID int64, report []attendance.Entry) {
	if len(report) == 0 {
		fmt.Printf("Session %d has no recorded pings.\n", sessionID)
		return
	}

	fmt.Printf("Attendance for session %d\n\n", sessionID)
	fmt.Printf("%-15s %-25s %-8s %8s %8s %8s %8s\n",
		"STUDENT ID", "NAME", "STATUS", "MATCHED", "TOTAL", "RATIO", "CONF")
	for _, e := range report {
		fmt.Printf("%-15s %-25s %-8s %8d %8d %8.2f %8.3f\n",
			e.StudentID, e.Name, e.Status, e.PingsMatched, e.TotalPings, e.PresenceRatio, e.AvgConfidence)
	}
}
