package storage

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/metrics"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
)

// ObjectArchive decorates a ResultStore and keeps a JSON copy of every written result in
// object storage. The primary store decides success; archive failures are logged and counted.
type ObjectArchive struct {
	next    repository.ResultStore
	store   ObjectStorage
	prefix  string
	metrics *metrics.Recorder
}

func NewObjectArchive(next repository.ResultStore, store ObjectStorage, prefix string, rec *metrics.Recorder) *ObjectArchive {
	return &ObjectArchive{next: next, store: store, prefix: prefix, metrics: rec}
}

func (a *ObjectArchive) Write(ctx context.Context, key domain.ResultKey, forecast *domain.ForecastResult, risk *domain.RiskAssessment) error {
	if err := a.next.Write(ctx, key, forecast, risk); err != nil {
		return err
	}

	payload, err := json.Marshal(repository.StoredResult{Key: key, Forecast: forecast, Risk: risk, CreatedAt: forecast.GeneratedAt})
	if err != nil {
		log.Warn().Err(err).Str("sku", key.SKU).Msg("could not encode result for archive")
		a.metrics.Fallback("result archive")
		return nil
	}
	if err := a.store.UploadObject(ctx, ArchiveKey(a.prefix, key), payload, "application/json"); err != nil {
		log.Warn().Err(err).Str("sku", key.SKU).Str("request_id", key.RequestID).Msg("result archive failed")
		a.metrics.Fallback("result archive")
	}
	return nil
}

func (a *ObjectArchive) GetLatest(ctx context.Context, userID, sku string) (*repository.StoredResult, error) {
	return a.next.GetLatest(ctx, userID, sku)
}

// ArchiveKey is prefix/user/sku/request.json. Each segment is escaped so it stays one level
// below prefix.
func ArchiveKey(prefix string, key domain.ResultKey) string {
	return path.Join(prefix, keySegment(key.UserID), keySegment(key.SKU), keySegment(key.RequestID)+".json")
}

func keySegment(s string) string {
	s = url.PathEscape(s)
	switch s {
	case "":
		return "_"
	case ".", "..":
		return strings.Repeat("%2E", len(s))
	}
	return s
}

var _ repository.ResultStore = (*ObjectArchive)(nil)
