// Package journal remembers which videos a batch run has already finished,
// so that an interrupted run can pick up where it left off.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// Video is a completed video
type Video struct {
	Annotation    string      `gorm:"primaryKey" json:"annotation"` // Annotation file that the video was processed from
	Output        string      `json:"output"`                       // Detections file that we wrote
	NumFrames     int         `json:"numFrames"`                    // Number of frames that we ran through the detector
	NumCandidates int         `json:"numCandidates"`                // Total number of candidates written
	Threshold     float64     `json:"threshold"`                    // Score threshold used for the run
	CompletedAt   dbh.IntTime `json:"completedAt"`
}

func (Video) TableName() string {
	return "video"
}

type Journal struct {
	log logs.Log
	db  *gorm.DB
}

// Open or create a journal
func Open(log logs.Log, dbFilename string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbFilename), 0755); err != nil {
		return nil, err
	}
	log.Infof("Opening run journal at '%v'", dbFilename)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open journal %v: %w", dbFilename, err)
	}
	return &Journal{
		log: log,
		db:  db,
	}, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Returns the record for the annotation, or nil if the annotation has not been completed
func (j *Journal) Get(annotation string) (*Video, error) {
	v := Video{}
	err := j.db.Where("annotation = ?", annotation).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &v, nil
}

// IsComplete returns true if the annotation has been processed with the same threshold.
// A different threshold produces a different output file, so it doesn't count.
func (j *Journal) IsComplete(annotation string, threshold float64) (bool, error) {
	v, err := j.Get(annotation)
	if err != nil || v == nil {
		return false, err
	}
	return v.Threshold == threshold, nil
}

// Record a completed video, replacing any previous record for the same annotation
func (j *Journal) MarkComplete(v Video) error {
	if v.CompletedAt.IsZero() {
		v.CompletedAt = dbh.MakeIntTime(time.Now())
	}
	return j.db.Save(&v).Error
}

// Return all completed videos, ordered by annotation path
func (j *Journal) List() ([]Video, error) {
	videos := []Video{}
	if err := j.db.Order("annotation").Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}
