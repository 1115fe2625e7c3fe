// Package audit indexes finalized notification records into
// Elasticsearch for dashboard search. Indexing is best-effort: failures
// are logged and never propagate to the dispatch path.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/models"
)

type Indexer struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
	log     logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, timeout time.Duration, log logger.Logger) *Indexer {
	return &Indexer{
		es:      es,
		index:   index,
		timeout: timeout,
		log:     log.WithFields(map[string]interface{}{"component": "audit_indexer"}),
	}
}

// IndexRecord writes one record document keyed by the notification id.
func (i *Indexer) IndexRecord(ctx context.Context, rec *models.NotificationRecord) {
	if i.es == nil {
		return
	}

	body, err := json.Marshal(rec)
	if err != nil {
		i.log.Warn("encode record for indexing failed", map[string]interface{}{
			"notificationId": rec.ID,
			"error":          err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(rec.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		i.log.Warn("index record failed", map[string]interface{}{
			"notificationId": rec.ID,
			"error":          err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.log.Warn("index record rejected", map[string]interface{}{
			"notificationId": rec.ID,
			"status":         res.Status(),
		})
	}
}
