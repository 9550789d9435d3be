package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
)

// View is one published classification run.
type View struct {
	ID          string         `json:"id"`
	Generation  uint64         `json:"generation"`
	RefreshedAt time.Time      `json:"refreshed_at"`
	Report      *funnel.Report `json:"report"`
	Warnings    []Warning      `json:"warnings"`
}

// Settings tunes the service. Zero values take defaults.
type Settings struct {
	Funnel funnel.Config
	// MaxAge is how long a published view is served before a refresh.
	MaxAge time.Duration
	Now    func() time.Time
}

type published struct {
	view  *View
	index *funnel.Index
}

// Service owns the latest funnel view. It is safe for concurrent use.
type Service struct {
	src        RecordSource
	cache      ViewCache
	archive    Archiver
	classifier *funnel.Classifier
	settings   Settings
	log        *logger.Logger

	mu      sync.RWMutex
	nextGen uint64
	latest  *published
}

// NewService creates a dashboard service reading from src. cache and
// archive may be nil.
func NewService(src RecordSource, cache ViewCache, archive Archiver, settings Settings) *Service {
	if settings.MaxAge <= 0 {
		settings.MaxAge = 5 * time.Minute
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Service{
		src:        src,
		cache:      cache,
		archive:    archive,
		classifier: funnel.NewClassifier(settings.Funnel),
		settings:   settings,
		log:        logger.New("dashboard"),
	}
}

// Classifier returns the classifier used for every refresh.
func (s *Service) Classifier() *funnel.Classifier { return s.classifier }

func (s *Service) takeGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	return s.nextGen
}

// Refresh loads the record sets, classifies them and publishes the result
// unless a newer refresh has already been published. It returns the view
// that is current afterwards. Nothing is published when ctx ends during
// the load.
func (s *Service) Refresh(ctx context.Context) (*View, error) {
	gen := s.takeGeneration()
	started := s.settings.Now()

	snap, warnings := load(ctx, s.src)
	if err := ctx.Err(); err != nil {
		// The loads were cut short; publishing would replace a good view with empty sets.
		return nil, err
	}
	idx := funnel.NewIndex(snap)
	now := s.settings.Now()
	view := &View{
		ID:          uuid.New().String(),
		Generation:  gen,
		RefreshedAt: now,
		Report:      s.classifier.ClassifyIndexed(snap, idx, now),
		Warnings:    warnings,
	}
	if view.Warnings == nil {
		view.Warnings = []Warning{}
	}

	current, ok := s.publish(&published{view: view, index: idx})
	if !ok {
		s.log.Debug("refresh superseded", "generation", gen, "current", current.view.Generation)
		return current.view, nil
	}

	c := view.Report.Counts
	s.log.Info("funnel refreshed",
		"generation", gen,
		"took", now.Sub(started).String(),
		"paid_total", c.PaidTotal,
		"paid_not_signed_recent", c.PaidNotSignedRecent,
		"warnings", len(view.Warnings),
	)

	if s.cache != nil {
		if err := s.cache.SetView(ctx, view); err != nil {
			s.log.Warn("cache view failed", "error", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.SaveView(ctx, view); err != nil {
			s.log.Warn("archive view failed", "error", err)
		}
	}
	return view, nil
}

// publish installs p as the latest unless a newer generation is already
// installed. It returns what is installed afterwards.
func (s *Service) publish(p *published) (*published, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && s.latest.view.Generation > p.view.Generation {
		return s.latest, false
	}
	s.latest = p
	return p, true
}

func (s *Service) current() *published {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Service) fresh(p *published) bool {
	return p != nil && s.settings.Now().Sub(p.view.RefreshedAt) < s.settings.MaxAge
}

// View returns the latest view: the local one while fresh, then a cached
// one from another replica, and otherwise the result of a new refresh.
func (s *Service) View(ctx context.Context) (*View, error) {
	if p := s.current(); s.fresh(p) {
		return p.view, nil
	}
	if s.cache != nil {
		v, ok, err := s.cache.GetView(ctx)
		if err != nil {
			s.log.Warn("read cached view failed", "error", err)
		}
		if ok && v != nil && v.Report != nil && s.settings.Now().Sub(v.RefreshedAt) < s.settings.MaxAge {
			return v, nil
		}
	}
	return s.Refresh(ctx)
}

// indexed returns a fresh local view with its index, refreshing when the
// local view is missing or old. Cached views carry no index.
func (s *Service) indexed(ctx context.Context) (*published, error) {
	if p := s.current(); s.fresh(p) {
		return p, nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	p := s.current()
	if p == nil {
		return nil, ErrNoView
	}
	return p, nil
}

// Lookup cross-references one identity against the subscription, deleted
// and form-agreement sets.
func (s *Service) Lookup(ctx context.Context, email, phone *string) (funnel.CrossReference, error) {
	p, err := s.indexed(ctx)
	if err != nil {
		return funnel.CrossReference{}, err
	}
	return p.index.Lookup(email, phone), nil
}
