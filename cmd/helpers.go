package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/store/mysql"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

// stores bundles the database handles a command needs. Close releases
// them in reverse order of acquisition.
type stores struct {
	pool   *postgres.Pool
	roster *postgres.RosterRepository
	ledger ledger.Store
	mysql  *mysql.LedgerStore
}

// openStores connects to PostgreSQL (roster plus default attendance sink)
// and, when LEDGER_MYSQL_DSN is set, routes the attendance ledger to
// MariaDB/MySQL instead.
func openStores(cfg *config.Config) (*stores, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	s := &stores{
		pool:   pool,
		roster: postgres.NewRosterRepository(pool),
		ledger: postgres.NewLedgerRepository(pool),
	}

	if cfg.Ledger.MySQLDSN != "" {
		my, err := mysql.Open(cfg.Ledger.MySQLDSN)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to open MySQL ledger store: %w", err)
		}
		s.mysql = my
		s.ledger = my
		fmt.Println("Attendance ledger: MariaDB/MySQL")
	}

	return s, nil
}

func (s *stores) Close() {
	if s.mysql != nil {
		if err := s.mysql.Close(); err != nil {
			fmt.Printf("Warning: closing MySQL ledger store: %v\n", err)
		}
	}
	if err := s.pool.Close(); err != nil {
		fmt.Printf("Warning: closing PostgreSQL pool: %v\n", err)
	}
}

// loadRosterStore fetches all enrolled records and builds the in-memory
// embedding store, printing a warning per skipped record.
func loadRosterStore(ctx context.Context, src roster.Source, cfg *config.Config) (*roster.Store, []roster.Record, error) {
	records, err := src.ListRecords(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading roster: %w", err)
	}

	store, skipped := roster.Load(records, cfg.Match.MinEmbeddingLength)
	for _, reason := range skipped {
		fmt.Printf("Warning: skipping roster record: %s\n", reason)
	}
	if err := store.RequireNonEmpty(); err != nil {
		return nil, nil, err
	}

	fmt.Printf("Roster loaded: %d identities (model %s, dim %d)\n",
		store.Size(), cfg.Match.Model, store.Dim())
	return store, records, nil
}

// toDetections converts detector faces to session detections.
func toDetections(faces []detector.Face) []session.Detection {
	dets := make([]session.Detection, 0, len(faces))
	for _, f := range faces {
		dets = append(dets, session.Detection{
			Embedding: f.Embedding,
			BBox:      f.BBox,
			DetScore:  f.DetScore,
		})
	}
	return dets
}

// printUnitResults prints the per-detection outcomes of one frame or image.
func printUnitResults(unit *session.UnitResult) {
	for _, res := range unit.Results {
		switch {
		case res.Skipped:
			fmt.Printf("  skipped face: %v\n", res.Err)
		case !res.Match.Matched:
			fmt.Printf("  unknown face (best score %.3f)\n", res.Match.Score)
		case res.NewlyMarked:
			fmt.Printf("  MARKED %s (%s) score %.3f\n",
				res.Match.DisplayName, res.Match.ID, res.Match.Score)
		case res.Notice:
			fmt.Printf("  %s (%s) already marked today\n",
				res.Match.DisplayName, res.Match.ID)
		}
	}
}
