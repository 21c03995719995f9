package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image]",
	Short: "Enroll identities into the roster from face photos",
	Long: `Enroll one identity from a single photo, or a whole directory of photos.

Each photo is sent to the face embedding server; the first detected face
becomes the identity's reference embedding. Before storing, the new
embedding is compared against the existing roster using an HNSW index -
a close match under a different ID usually means a duplicate enrollment.

In directory mode file names must follow <id>_<display name>.<ext>,
e.g. 42_jane-doe.jpg.

Examples:
  # Enroll a single person
  face-attendance enroll photo.jpg --id 42 --name "Jane Doe"

  # Enroll everyone in a directory
  face-attendance enroll --dir ./faces

  # Overwrite despite a duplicate warning
  face-attendance enroll photo.jpg --id 42 --name "Jane Doe" --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Identity ID (single photo mode)")
	enrollCmd.Flags().String("name", "", "Display name (single photo mode)")
	enrollCmd.Flags().String("dir", "", "Enroll all photos in a directory, file names as <id>_<name>.<ext>")
	enrollCmd.Flags().Bool("force", false, "Store the embedding even when it duplicates an existing identity")
}

// enrollment is one parsed unit of work: a photo plus its target identity.
type enrollment struct {
	path string
	id   string
	name string
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dir := mustGetString(cmd, "dir")
	force := mustGetBool(cmd, "force")

	var jobs []enrollment
	switch {
	case dir != "" && len(args) > 0:
		return errors.New("provide either an image argument or --dir, not both")
	case dir != "":
		var err error
		jobs, err = collectEnrollments(dir)
		if err != nil {
			return err
		}
	case len(args) == 1:
		id := mustGetString(cmd, "id")
		name := mustGetString(cmd, "name")
		if id == "" || name == "" {
			return errors.New("single photo mode requires --id and --name")
		}
		jobs = []enrollment{{path: args[0], id: id, name: name}}
	default:
		return errors.New("provide an image argument or --dir")
	}

	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	client := detector.NewClient(cfg.Detector.URL)

	// Existing roster feeds the duplicate check.
	existing, err := s.roster.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	index := roster.NewIndex()
	index.BuildFromRecords(existing)

	enrolled := 0
	for _, job := range jobs {
		if err := enrollOne(ctx, cfg, client, s.roster, index, job, force); err != nil {
			fmt.Printf("Warning: %s: %v\n", job.path, err)
			continue
		}
		enrolled++
	}

	fmt.Printf("Enrolled %d of %d identities\n", enrolled, len(jobs))
	return nil
}

func enrollOne(
	ctx context.Context,
	cfg *config.Config,
	client *detector.Client,
	repo *postgres.RosterRepository,
	index *roster.Index,
	job enrollment,
	force bool,
) error {
	data, err := os.ReadFile(job.path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	resp, err := client.DetectFaces(ctx, data)
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	if resp.FacesCount == 0 {
		return errors.New("no face detected")
	}
	if resp.FacesCount > 1 {
		fmt.Printf("  %s: %d faces detected, using the first one\n", job.path, resp.FacesCount)
	}

	face := resp.Faces[0]
	if cfg.Detector.Dim > 0 && len(face.Embedding) != cfg.Detector.Dim {
		return fmt.Errorf("embedding dimension %d, expected %d", len(face.Embedding), cfg.Detector.Dim)
	}

	if neighbors := index.Nearest(face.Embedding, 1); len(neighbors) > 0 {
		n := neighbors[0]
		if n.ID != job.id && n.Similarity >= cfg.Match.Threshold {
			if !force {
				return fmt.Errorf("looks like already enrolled identity %s (%s), similarity %.3f; use --force to store anyway",
					n.ID, n.DisplayName, n.Similarity)
			}
			fmt.Printf("  %s: storing despite similarity %.3f to %s (%s)\n",
				job.path, n.Similarity, n.ID, n.DisplayName)
		}
	}

	rec := roster.Record{ID: job.id, DisplayName: job.name, Embedding: face.Embedding}
	if err := repo.Upsert(ctx, rec, cfg.Match.Model); err != nil {
		return fmt.Errorf("storing identity: %w", err)
	}
	index.Add(job.id, job.name, face.Embedding)

	fmt.Printf("Enrolled %s (%s) from %s\n", job.name, job.id, job.path)
	return nil
}

// collectEnrollments scans a directory for image files named
// <id>_<display name>.<ext> and returns jobs in file name order.
func collectEnrollments(dir string) ([]enrollment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var jobs []enrollment
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		id, name, ok := strings.Cut(base, "_")
		if !ok || id == "" || name == "" {
			fmt.Printf("Warning: skipping %s: file name is not <id>_<name>.<ext>\n", entry.Name())
			continue
		}
		jobs = append(jobs, enrollment{
			path: filepath.Join(dir, entry.Name()),
			id:   id,
			name: strings.ReplaceAll(name, "_", " "),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no enrollable images found in %s", dir)
	}
	return jobs, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}
