// Package attendance runs the register, mark and delete workflows over the
// identity index, the roster and the attendance ledger.
//
// Lock order is always roster before index. Register and Delete mutate the
// index from inside the roster update, after the roster has been written,
// so a crash can leave the roster ahead of the index but never the
// reverse; the next Reload repairs it.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/assets"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var (
	ErrMissingFields     = errors.New("all fields required")
	ErrMissingRegNo      = errors.New("reg_no required")
	ErrInvalidRegNo      = errors.New("reg_no cannot be used as a file name")
	ErrNoFaceInPhoto     = errors.New("no face detected in uploaded photo")
	ErrAlreadyRegistered = errors.New("student already registered")
	ErrDetection         = errors.New("face detection error")

	ErrInvalidImage  = extractor.ErrInvalidImage
	ErrPhotoNotFound = assets.ErrNotFound
)

// Service owns the handles shared by all request handlers.
type Service struct {
	index    *identity.Index
	roster   *roster.Roster
	ledger   *ledger.Ledger
	assets   assets.Store
	detector extractor.Detector
	cache    embedcache.Cache
	images   config.ImagesConfig
	stats    config.AnalyticsConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Deps lists the collaborators of a Service. Cache, Metrics and Now are
// optional.
type Deps struct {
	Index     *identity.Index
	Roster    *roster.Roster
	Ledger    *ledger.Ledger
	Assets    assets.Store
	Detector  extractor.Detector
	Cache     embedcache.Cache
	Images    config.ImagesConfig
	Analytics config.AnalyticsConfig
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// NewService wires a Service.
func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		index:    d.Index,
		roster:   d.Roster,
		ledger:   d.Ledger,
		assets:   d.Assets,
		detector: d.Detector,
		cache:    d.Cache,
		images:   d.Images,
		stats:    d.Analytics,
		metrics:  d.Metrics,
		now:      now,
	}
}

// Index returns the identity index.
func (s *Service) Index() *identity.Index {
	return s.index
}

// Reload rebuilds the identity index from the stored photos. It is meant
// for startup, before requests are served.
func (s *Service) Reload(ctx context.Context, concurrency int) (identity.LoadStats, error) {
	loader := &identity.Loader{
		Assets:      s.assets,
		Detector:    s.detector,
		Cache:       s.cache,
		Extensions:  s.images.Extensions,
		Concurrency: concurrency,
	}
	owners := identity.PhotoOwners(s.images.Extensions, roster.Owners(s.roster.List(ctx)))

	stats, err := loader.Load(ctx, s.index, owners)
	if err != nil {
		return stats, fmt.Errorf("loading known faces: %w", err)
	}
	s.metrics.SetIndexEntries(s.index.Len())
	return stats, nil
}

// Students returns the roster, filtered by query when it is not empty.
func (s *Service) Students(ctx context.Context, query string) []roster.Student {
	if strings.TrimSpace(query) == "" {
		return s.roster.List(ctx)
	}
	return s.roster.Search(ctx, query)
}

// Attendance returns every ledger record.
func (s *Service) Attendance(ctx context.Context) []ledger.Record {
	return s.ledger.List(ctx)
}

// Analytics summarises the ledger.
func (s *Service) Analytics(ctx context.Context) ledger.Summary {
	return ledger.Summarize(s.ledger.List(ctx), s.roster.List(ctx), s.stats.TopStudents, s.stats.RecentRecords)
}

// ExportCSV writes the ledger as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	return ledger.WriteCSV(w, s.ledger.List(ctx))
}

// ResetAttendance clears the ledger.
func (s *Service) ResetAttendance(ctx context.Context) (int, error) {
	return s.ledger.Reset(ctx)
}

// Photo returns a stored student photo.
func (s *Service) Photo(ctx context.Context, name string) ([]byte, error) {
	if err := assets.ValidateName(name); err != nil {
		return nil, ErrPhotoNotFound
	}
	if !s.images.IsAllowedExtension(filepath.Ext(name)) {
		return nil, ErrPhotoNotFound
	}
	return s.assets.Get(ctx, name)
}

// firstEmbedding returns the embedding of the first detected face.
func firstEmbedding(faces []extractor.Face) []float32 {
	if len(faces) == 0 || len(faces[0].Embedding) == 0 {
		return nil
	}
	return faces[0].Embedding
}
