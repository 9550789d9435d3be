package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

// ErrNotFound is returned when an archived report does not exist.
var ErrNotFound = errors.New("archived report not found")

// KPIRecord is the history row written for every published view.
type KPIRecord struct {
	ViewID      string        `json:"view_id"`
	Generation  uint64        `json:"generation"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Counts      funnel.Counts `json:"counts"`
	Warnings    int           `json:"warnings"`
}

func recordOf(v *dashboard.View) KPIRecord {
	r := KPIRecord{
		ViewID:      v.ID,
		Generation:  v.Generation,
		RefreshedAt: v.RefreshedAt.UTC(),
		Warnings:    len(v.Warnings),
	}
	if v.Report != nil {
		r.Counts = v.Report.Counts
	}
	return r
}

// Storage archives published views and their KPI history, either on the
// local disk or in S3 and DynamoDB.
type Storage struct {
	config config.ArchiveConfig
	mu     sync.RWMutex

	// AWS storage (optional)
	aws *AWSStorage

	// history is the local KPI history, oldest first.
	history []KPIRecord
	log     *logger.Logger
}

// New creates a Storage for cfg.Type "local" or "aws".
func New(ctx context.Context, cfg config.ArchiveConfig) (*Storage, error) {
	s := &Storage{config: cfg, history: []KPIRecord{}, log: logger.New("storage")}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage
	case "local", "":
		s.config.Type = "local"
		if s.config.LocalPath == "" {
			s.config.LocalPath = "./data"
		}
		if err := os.MkdirAll(filepath.Join(s.config.LocalPath, "reports"), 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
		if err := s.loadFromDisk(); err != nil {
			s.log.Warn("could not load existing history", "error", err)
		}
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}

	return s, nil
}

// NewWithAWS creates an aws-type Storage over an existing AWSStorage.
func NewWithAWS(a *AWSStorage) *Storage {
	return &Storage{config: config.ArchiveConfig{Type: "aws"}, aws: a, log: logger.New("storage")}
}

// Type returns the active backend name.
func (s *Storage) Type() string { return s.config.Type }

// SaveView archives the full view and appends its KPI record to the history.
func (s *Storage) SaveView(ctx context.Context, v *dashboard.View) error {
	rec := recordOf(v)

	if s.aws != nil {
		if err := s.aws.SaveReport(ctx, v); err != nil {
			return err
		}
		return s.aws.SaveKPI(ctx, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveToFile(filepath.Join("reports", filepath.Base(v.ID)+".json"), v); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	s.history = append(s.history, rec)
	sort.SliceStable(s.history, func(i, j int) bool {
		return s.history[i].RefreshedAt.Before(s.history[j].RefreshedAt)
	})
	if err := s.saveToFile("history.json", s.history); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// History returns the KPI records refreshed within [from, to], oldest
// first. A zero bound is open.
func (s *Storage) History(ctx context.Context, from, to time.Time) ([]KPIRecord, error) {
	if s.aws != nil {
		return s.aws.QueryKPIs(ctx, from, to)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []KPIRecord{}
	for _, r := range s.history {
		if !from.IsZero() && r.RefreshedAt.Before(from) {
			continue
		}
		if !to.IsZero() && r.RefreshedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Report returns an archived view by ID.
func (s *Storage) Report(ctx context.Context, id string) (*dashboard.View, error) {
	if s.aws != nil {
		return s.aws.GetReport(ctx, id)
	}

	data, err := os.ReadFile(filepath.Join(s.config.LocalPath, "reports", filepath.Base(id)+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var v dashboard.View
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &v, nil
}

// saveToFile writes data as indented JSON under the local path.
func (s *Storage) saveToFile(name string, data interface{}) error {
	path := filepath.Join(s.config.LocalPath, name)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// loadFromDisk loads the KPI history written by previous runs.
func (s *Storage) loadFromDisk() error {
	data, err := os.ReadFile(filepath.Join(s.config.LocalPath, "history.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.history)
}
