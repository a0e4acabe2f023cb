package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meetsight/attendance/internal/bot"
	"github.com/meetsight/attendance/internal/database"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <frames-dir>",
	Short: "Replay a directory of frames as a meeting",
	Long: `Simulate a tracked meeting from a directory of frame images. Each image
plays one captured frame, in filename order, spaced by the configured
ping interval of virtual time. Prints the attendance report afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().String("csv", "", "Also write the report as CSV to the given file")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	framesDir := args[0]

	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	sim := bot.NewSimClient()
	info, err := sim.Dispatch(ctx, framesDir)
	if err != nil {
		return err
	}
	if info.FrameCount == 0 {
		return fmt.Errorf("no frame images found in %s", framesDir)
	}

	session := &database.Session{MeetingURL: framesDir, BotID: info.ID}
	if err := a.sessions.Create(ctx, session); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	// Space the replayed frames over virtual capture time; one frame plays
	// one ping-interval capture.
	interval := time.Duration(a.cfg.Matching.PingIntervalMinutes) * time.Minute
	capturedAt := time.Now().UTC()
	a.processor.SetClock(func() time.Time { return capturedAt })

	frames := sim.Frames(info.ID)
	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("Processing frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var totalMatches int
	for _, framePath := range frames {
		image, err := os.ReadFile(framePath)
		if err != nil {
			return fmt.Errorf("reading frame %s: %w", framePath, err)
		}

		results, err := a.processor.ProcessFrame(ctx, image, session.ID)
		if err != nil {
			return fmt.Errorf("processing frame %s: %w", framePath, err)
		}
		totalMatches += len(results)

		capturedAt = capturedAt.Add(interval)
		bar.Add(1)
	}
	fmt.Println()

	if err := a.sessions.Close(ctx, session.ID, capturedAt); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}

	fmt.Printf("Processed %d frames, %d matches recorded (session %d)\n\n",
		len(frames), totalMatches, session.ID)

	report, err := a.reporter.Calculate(ctx, session.ID)
	if err != nil {
		return err
	}
	printReport(session.ID, report)

	if csvPath := mustGetString(cmd, "csv"); csvPath != "" {
		return writeReportCSV(csvPath, report)
	}
	return nil
}
