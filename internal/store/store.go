// Package store keeps a history of generated layouts in SQLite through
// GORM.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
)

// Run is one generated image layout.
type Run struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt       time.Time      `json:"created_at" gorm:"index"`
	SiteName        string         `json:"site_name"`
	SpecVersion     string         `json:"spec_version"`
	Preset          string         `json:"geological_preset"`
	Seed            int64          `json:"seed"`
	ImageIndex      int            `json:"image_index" gorm:"index"`
	RequestedGroups int            `json:"requested_groups"`
	PlacedGroups    int            `json:"placed_groups"`
	PileCount       int            `json:"pile_count"`
	Summary         datatypes.JSON `json:"summary"`
}

// Plan is one persisted pile of a run.
type Plan struct {
	ID       uint           `json:"-" gorm:"primaryKey;autoIncrement"`
	RunID    string         `json:"run_id" gorm:"index;size:36"`
	PileID   string         `json:"pile_id"`
	GroupID  int            `json:"group_id"`
	Slot     int            `json:"slot"`
	Type     string         `json:"pile_type"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	TerrainZ float64        `json:"terrain_z"`
	TopZ     float64        `json:"top_z"`
	TiltX    float64        `json:"tilt_x"`
	TiltY    float64        `json:"tilt_y"`
	Yaw      float64        `json:"yaw"`
	InRow    bool           `json:"in_row"`
	Params   datatypes.JSON `json:"params"`
}

// Store wraps the run history database.
type Store struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Open opens or creates the SQLite database at path and migrates the
// schema. An empty path opens a private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&Run{}, &Plan{}); err != nil {
		return nil, fmt.Errorf("migrating run store: %w", err)
	}
	log.Debug().Str("path", path).Msg("run store ready")
	return &Store{DB: db, Logger: log}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun persists run and the piles of l in one transaction. A run
// without an ID gets a new UUID; summary, when non-nil, is stored as JSON.
func (s *Store) SaveRun(run *Run, l *layout.Layout, summary any) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.RequestedGroups = l.RequestedGroups
	run.PlacedGroups = len(l.Groups)
	run.PileCount = len(l.Piles)
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encoding run summary: %w", err)
		}
		run.Summary = datatypes.JSON(b)
	}

	plans := make([]Plan, 0, len(l.Piles))
	for _, p := range l.Piles {
		params, err := json.Marshal(p.Params)
		if err != nil {
			return fmt.Errorf("encoding params of %s: %w", p.ID, err)
		}
		plans = append(plans, Plan{
			RunID:    run.ID,
			PileID:   p.ID,
			GroupID:  p.GroupID,
			Slot:     p.Slot,
			Type:     string(p.Type),
			X:        p.Position.X,
			Y:        p.Position.Y,
			TerrainZ: p.TerrainZ,
			TopZ:     p.TopZ,
			TiltX:    p.Tilt.X,
			TiltY:    p.Tilt.Y,
			Yaw:      p.Tilt.Z,
			InRow:    p.InRow,
			Params:   datatypes.JSON(params),
		})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(plans) == 0 {
			return nil
		}
		return tx.CreateInBatches(plans, 500).Error
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	s.Logger.Info().Str("run", run.ID).Int("piles", len(plans)).Msg("run saved")
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit
// returns all runs.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	q := s.DB.Order("created_at desc, image_index desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Run returns one run by ID.
func (s *Store) Run(id string) (*Run, error) {
	var run Run
	if err := s.DB.First(&run, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return &run, nil
}

// Plans returns the piles of a run in layout order.
func (s *Store) Plans(runID string) ([]Plan, error) {
	var plans []Plan
	if err := s.DB.Where("run_id = ?", runID).Order("id").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("loading plans of %s: %w", runID, err)
	}
	return plans, nil
}
