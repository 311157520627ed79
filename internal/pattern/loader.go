package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// ObjectReader lists and reads objects from a bucket.
type ObjectReader interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// LoadSnapshot reads every <prefix>/*.json pattern document and builds a new snapshot.
// Documents that fail to parse or validate are skipped.
func LoadSnapshot(ctx context.Context, r ObjectReader, prefix, version string) (*Snapshot, error) {
	keys, err := r.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list patterns under %q: %w", prefix, err)
	}

	patterns := make([]Pattern, 0, len(keys))
	for _, k := range keys {
		if !strings.EqualFold(path.Ext(k), ".json") {
			continue
		}
		raw, err := r.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("read pattern %q: %w", k, err)
		}
		var p Pattern
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("skipping unreadable pattern document")
			continue
		}
		if err := p.Validate(); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("skipping invalid pattern document")
			continue
		}
		patterns = append(patterns, p)
	}

	log.Info().Int("patterns", len(patterns)).Str("version", version).Msg("pattern snapshot loaded")
	return NewSnapshot(version, patterns), nil
}
