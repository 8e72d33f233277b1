package identity

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-attendance/internal/assets"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

const defaultLoadConcurrency = 4

// Loader rebuilds an Index from the stored reference photos.
type Loader struct {
	Assets      assets.Store
	Detector    extractor.Detector
	Cache       embedcache.Cache // optional
	Extensions  []string
	Concurrency int
}

// LoadStats summarises a Load run.
type LoadStats struct {
	Files   int // photos with an accepted extension
	Loaded  int
	Skipped int // no face or extraction failure
	Cached  int // embeddings served from the cache
}

// Load extracts the first face embedding of every stored photo and
// replaces the content of idx with the result. Photos without a face or
// that fail to process are skipped and logged. owners maps asset keys to
// identity ids (see PhotoOwners). Running Load twice yields the same index.
func (l *Loader) Load(ctx context.Context, idx *Index, owners map[string]string) (LoadStats, error) {
	names, err := l.Assets.List(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("listing known faces: %w", err)
	}

	var files []string
	for _, name := range names {
		if l.accepted(name) {
			files = append(files, name)
		}
	}

	concurrency := l.Concurrency
	if concurrency <= 0 {
		concurrency = defaultLoadConcurrency
	}

	results := make([][]float32, len(files))
	var cached, skipped atomic.Int64

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, name := range files {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			emb, hit, err := l.embed(ctx, name)
			if err != nil {
				log.Printf("warning: skipping known face %s: %v", name, err)
				skipped.Add(1)
				return
			}
			if emb == nil {
				log.Printf("warning: skipping known face %s: no face found", name)
				skipped.Add(1)
				return
			}
			if hit {
				cached.Add(1)
			}
			results[i] = emb
		}(i, name)
	}
	wg.Wait()

	if l.Cache != nil {
		if err := embedcache.Flush(l.Cache); err != nil {
			log.Printf("warning: saving embedding cache: %v", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return LoadStats{}, err
	}

	entries := make([]Entry, 0, len(files))
	for i, name := range files {
		if results[i] == nil {
			continue
		}
		id := ResolveID(AssetKey(name, l.Extensions), owners)
		entries = append(entries, Entry{ID: id, Embedding: results[i]})
	}
	idx.Replace(entries)

	return LoadStats{
		Files:   len(files),
		Loaded:  len(entries),
		Skipped: int(skipped.Load()),
		Cached:  int(cached.Load()),
	}, nil
}

func (l *Loader) accepted(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range l.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// embed returns the first face embedding of a stored photo, or nil when
// the photo has no usable face.
func (l *Loader) embed(ctx context.Context, name string) ([]float32, bool, error) {
	data, err := l.Assets.Get(ctx, name)
	if err != nil {
		return nil, false, err
	}

	hash := embedcache.HashImage(data)
	if l.Cache != nil {
		emb, ok, err := l.Cache.Get(ctx, hash)
		if err != nil {
			log.Printf("warning: embedding cache lookup for %s failed: %v", name, err)
		} else if ok {
			return emb, true, nil
		}
	}

	faces, err := l.Detector.DetectFaces(ctx, data)
	if err != nil {
		return nil, false, err
	}
	if len(faces) == 0 || len(faces[0].Embedding) == 0 {
		return nil, false, nil
	}

	emb := faces[0].Embedding
	if l.Cache != nil {
		if err := l.Cache.Put(ctx, hash, emb); err != nil {
			log.Printf("warning: caching embedding for %s failed: %v", name, err)
		}
	}
	return emb, false, nil
}
