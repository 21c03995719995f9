package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Run live attendance from a camera snapshot URL",
	Long: `Poll a camera snapshot URL, detect faces in each frame and mark
matched identities present in today's attendance ledger. Each identity
is marked at most once per day; seeing an already marked identity is
reported once per run and then stays silent.

The loop stops on Ctrl+C or when --duration elapses. A failing camera
or embedding server ends the run with an error; marks recorded so far
are already persisted.

Examples:
  # Run until interrupted, one frame every 500ms
  face-attendance stream

  # Slow down polling and stop after two hours
  face-attendance stream --interval 2s --duration 2h

  # Override the camera from the command line
  face-attendance stream --camera-url http://cam.local/snapshot.jpg`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().Duration("interval", 500*time.Millisecond, "Delay between camera snapshots")
	streamCmd.Flags().Duration("duration", 0, "Stop after this long (0 = run until interrupted)")
	streamCmd.Flags().String("camera-url", "", "Camera snapshot URL (defaults to CAMERA_URL)")
	streamCmd.Flags().String("date", "", "Ledger date key (defaults to today)")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cameraURL := mustGetString(cmd, "camera-url")
	if cameraURL == "" {
		cameraURL = cfg.Camera.URL
	}
	if cameraURL == "" {
		return errors.New("camera snapshot URL is required (--camera-url or CAMERA_URL)")
	}

	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := mustGetDuration(cmd, "duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	store, _, err := loadRosterStore(ctx, s.roster, cfg)
	if err != nil {
		return err
	}

	dateKey := mustGetString(cmd, "date")
	if dateKey == "" {
		dateKey = time.Now().Format(cfg.Ledger.DateFormat)
	}
	led, err := ledger.Open(ctx, s.ledger, dateKey)
	if err != nil {
		return fmt.Errorf("opening attendance ledger: %w", err)
	}
	fmt.Printf("Attendance ledger %s: %d already marked\n", dateKey, len(led.Snapshot().MarkedIDs))

	ctl := session.New(store, led, cfg.Match.Threshold)
	camera := detector.NewFrameSource(cameraURL)
	client := detector.NewClient(cfg.Detector.URL)

	fmt.Printf("Streaming from %s (run %s), press Ctrl+C to stop\n", cameraURL, ctl.ID())

	interval := mustGetDuration(cmd, "interval")
	frames, newMarks := 0, 0
	for {
		frame, err := camera.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("camera snapshot: %w", err)
		}

		resp, err := client.DetectFaces(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("detecting faces: %w", err)
		}

		unit, err := ctl.ProcessUnit(ctx, toDetections(resp.Faces), time.Now())
		if err != nil {
			return fmt.Errorf("persisting attendance: %w", err)
		}
		printUnitResults(unit)
		frames++
		newMarks += unit.NewMarks

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
		if ctx.Err() != nil {
			break
		}
	}

	// The context is done; flush any marks not yet written.
	if err := ctl.Flush(context.Background()); err != nil {
		return fmt.Errorf("persisting attendance: %w", err)
	}

	fmt.Printf("\nStream run %s finished: %d frames, %d newly marked, %d present total\n",
		ctl.ID(), frames, newMarks, len(ctl.Ledger().Snapshot().MarkedIDs))
	return nil
}
