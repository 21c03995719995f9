package cmd

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/annotate"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	_ "golang.org/x/image/bmp"
)

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Mark attendance from a directory of photos",
	Long: `Process every image in a directory in file name order, detect faces
and mark matched identities present. The ledger is persisted after each
image, so an interrupted run keeps everything processed so far.

Each processed image is saved next to the original as out_<name>.jpg
with recognized faces boxed in green and unknown faces in red.

Examples:
  # Process today's group photos
  face-attendance batch ./group_photos

  # Backfill a past day
  face-attendance batch ./group_photos --date 2026-08-28

  # Skip writing annotated copies
  face-attendance batch ./group_photos --no-annotate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("date", "", "Ledger date key (defaults to today)")
	batchCmd.Flags().String("out-dir", "", "Directory for annotated images (defaults to the input directory)")
	batchCmd.Flags().Bool("no-annotate", false, "Do not write annotated images")
	batchCmd.Flags().Int("line-width", 3, "Bounding box line width in pixels")
	batchCmd.Flags().Int("max-size", 1600, "Max dimension of annotated copies in pixels (0 = keep original size)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dir := "group_photos"
	if len(args) == 1 {
		dir = args[0]
	}
	paths, err := collectImages(dir)
	if err != nil {
		return err
	}

	outDir := mustGetString(cmd, "out-dir")
	if outDir == "" {
		outDir = dir
	}
	annotateImages := !mustGetBool(cmd, "no-annotate")
	lineWidth := mustGetInt(cmd, "line-width")
	maxSize := mustGetInt(cmd, "max-size")

	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
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

	ctl := session.New(store, led, cfg.Match.Threshold)
	client := detector.NewClient(cfg.Detector.URL)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	newMarks, faces, failed := 0, 0, 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("\nWarning: %s: %v\n", path, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		resp, err := client.DetectFaces(ctx, data)
		if err != nil {
			fmt.Printf("\nWarning: %s: detecting faces: %v\n", path, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		unit, err := ctl.ProcessUnit(ctx, toDetections(resp.Faces), time.Now())
		if err != nil {
			return fmt.Errorf("persisting attendance: %w", err)
		}
		fmt.Printf("\n%s: %d faces\n", filepath.Base(path), len(unit.Results))
		printUnitResults(unit)
		newMarks += unit.NewMarks
		faces += len(unit.Results)

		if annotateImages {
			if err := writeAnnotated(path, outDir, data, unit, lineWidth, maxSize); err != nil {
				fmt.Printf("Warning: %s: %v\n", path, err)
			}
		}
		_ = bar.Add(1)
	}
	fmt.Println()

	if err := ctl.Flush(ctx); err != nil {
		return fmt.Errorf("persisting attendance: %w", err)
	}

	fmt.Printf("Batch run %s finished: %d images (%d failed), %d faces, %d newly marked, %d present total\n",
		ctl.ID(), len(paths), failed, faces, newMarks, len(ctl.Ledger().Snapshot().MarkedIDs))
	return nil
}

// writeAnnotated saves a copy of the image with recognized faces boxed in
// green and unknown faces in red, as out_<name>.jpg in outDir. Copies are
// scaled down to maxSize on the longer side; 0 keeps the original size.
// Boxes are drawn before scaling, so bbox pixel coordinates stay valid.
func writeAnnotated(path, outDir string, data []byte, unit *session.UnitResult, lineWidth, maxSize int) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	boxes := make([]annotate.Box, 0, len(unit.Results))
	for _, res := range unit.Results {
		if len(res.Detection.BBox) != 4 {
			continue
		}
		c := annotate.Unknown
		if res.Match.Matched {
			c = annotate.Recognized
		}
		boxes = append(boxes, annotate.Box{BBox: res.Detection.BBox, Color: c})
	}

	annotated := annotate.Boxes(img, boxes, lineWidth)
	if maxSize > 0 {
		annotated = annotate.Resize(annotated, maxSize)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(outDir, "out_"+base+".jpg")
	if err := annotate.SaveJPEG(out, annotated); err != nil {
		return fmt.Errorf("writing annotated image: %w", err)
	}
	return nil
}

// collectImages returns image paths in a directory sorted by file name,
// so repeated runs process images in a deterministic order.
func collectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		if strings.HasPrefix(entry.Name(), "out_") {
			// Annotated output from a previous run.
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return paths, nil
}
