package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/admin"
	"github.com/kozaktomas/face-attendance/internal/assets"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/sqlstore"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// backends holds the storage handles selected by configuration.
type backends struct {
	store  store.Backend
	sql    *sqlstore.Store // nil for the file driver
	assets assets.Store
	cache  embedcache.Cache
}

// openBackends connects the persistent store, asset storage and embedding
// cache named by cfg.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	b.store = backend
	if s, ok := backend.(*sqlstore.Store); ok {
		b.sql = s
		fmt.Printf("Using %s store\n", s.Dialect())
	} else {
		fmt.Printf("Using file store in %s\n", cfg.Store.Dir)
	}

	b.assets, err = openAssets(ctx, cfg.Assets)
	if err != nil {
		b.Close()
		return nil, err
	}

	b.cache, err = b.openCache(ctx, cfg.Cache)
	if err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func openAssets(ctx context.Context, cfg config.AssetsConfig) (assets.Store, error) {
	switch cfg.Driver {
	case "dir", "":
		d, err := assets.NewDirStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening known faces directory: %w", err)
		}
		fmt.Printf("Known faces in %s\n", d.Dir())
		return d, nil
	case "s3":
		s, err := assets.NewS3Store(ctx, assets.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("opening S3 asset store: %w", err)
		}
		fmt.Printf("Known faces in s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.Prefix)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown ASSETS_DRIVER %q", cfg.Driver)
	}
}

func (b *backends) openCache(ctx context.Context, cfg config.CacheConfig) (embedcache.Cache, error) {
	switch cfg.Driver {
	case "none", "":
		return embedcache.Noop{}, nil
	case "file":
		c, err := embedcache.OpenFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening embedding cache: %w", err)
		}
		fmt.Printf("Embedding cache %s (%d entries)\n", cfg.Path, c.Len())
		return c, nil
	case "postgres":
		if b.sql == nil || b.sql.Dialect() != sqlstore.Postgres {
			return nil, errors.New("EMBEDDING_CACHE=postgres requires STORE_DRIVER=postgres")
		}
		c, err := embedcache.NewPostgres(ctx, b.sql.DB())
		if err != nil {
			return nil, fmt.Errorf("opening embedding cache: %w", err)
		}
		fmt.Printf("Embedding cache in PostgreSQL\n")
		return c, nil
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_CACHE %q", cfg.Driver)
	}
}

// sessionRepository returns the SQL session table, or nil for the file
// driver.
func (b *backends) sessionRepository() middleware.SessionRepository {
	if b.sql == nil {
		return nil
	}
	return sqlstore.NewSessionRepository(b.sql)
}

func (b *backends) Close() {
	if b.cache != nil {
		if err := embedcache.Flush(b.cache); err != nil {
			log.Printf("warning: saving embedding cache: %v", err)
		}
	}
	if b.store == nil {
		return
	}
	if err := b.store.Close(); err != nil {
		log.Printf("warning: closing store: %v", err)
	}
}

// newIndex builds the identity index the matching config asks for.
func newIndex(cfg config.MatchingConfig) (*identity.Index, error) {
	opts := []identity.Option{identity.WithTolerance(cfg.Tolerance)}
	switch cfg.Index {
	case "linear", "":
	case "hnsw":
		opts = append(opts, identity.WithHNSW(cfg.HNSWCandidates))
	default:
		return nil, fmt.Errorf("unknown INDEX_BACKEND %q", cfg.Index)
	}
	return identity.NewIndex(opts...), nil
}

// newService wires the attendance service over b.
func newService(cfg *config.Config, b *backends, m *metrics.Metrics) (*attendance.Service, error) {
	idx, err := newIndex(cfg.Defaults.Matching)
	if err != nil {
		return nil, err
	}
	return attendance.NewService(attendance.Deps{
		Index:     idx,
		Roster:    roster.New(b.store),
		Ledger:    ledger.New(b.store),
		Assets:    b.assets,
		Detector:  extractor.NewClient(cfg.Extractor.URL),
		Cache:     b.cache,
		Images:    cfg.Defaults.Images,
		Analytics: cfg.Defaults.Analytics,
		Metrics:   m,
	}), nil
}

// seedCredentials writes the configured admin login into an empty
// credentials collection.
func seedCredentials(ctx context.Context, cfg *config.Config, b *backends) (*admin.Credentials, error) {
	creds := admin.New(b.store)
	if _, err := creds.Seed(ctx, admin.Credential{
		Username: cfg.Defaults.Admin.Username,
		Password: cfg.Defaults.Admin.Password,
	}); err != nil {
		return nil, err
	}
	return creds, nil
}
