package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

const (
	kindTransactions = "transactions"
	kindOutcomes     = "outcomes"

	indexDateFormat = "2006-01"
)

// ElasticsearchConfig holds configuration options for the Elasticsearch sink
type ElasticsearchConfig struct {
	URL             string
	Username        string
	Password        string
	IndexPrefix     string
	RetentionPeriod time.Duration // How long to keep monthly indices
}

// DefaultElasticsearchConfig returns a default configuration for Elasticsearch
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:             "http://localhost:9200",
		IndexPrefix:     "helpybot",
		RetentionPeriod: 90 * 24 * time.Hour, // 90 days
	}
}

// ElasticsearchRepository indexes transactions and outcomes into monthly indices
// named <prefix>_<kind>_<yyyy-mm>.
type ElasticsearchRepository struct {
	client      *elasticsearch.Client
	config      *ElasticsearchConfig
	indexPrefix string
	logger      *logging.Logger

	mu    sync.Mutex
	known map[string]bool
}

// NewElasticsearchRepository creates a new Elasticsearch sink
func NewElasticsearchRepository(config *ElasticsearchConfig) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}

	// Add authentication if provided
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "helpybot"
	}
	if config.RetentionPeriod == 0 {
		config.RetentionPeriod = 90 * 24 * time.Hour
	}

	return &ElasticsearchRepository{
		client:      client,
		config:      config,
		indexPrefix: config.IndexPrefix,
		logger:      logging.Default.With("analytics"),
		known:       make(map[string]bool),
	}, nil
}

func (r *ElasticsearchRepository) indexName(kind string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", r.indexPrefix, kind, at.UTC().Format(indexDateFormat))
}

func mappingFor(kind string) string {
	if kind == kindOutcomes {
		return outcomeMapping
	}
	return transactionMapping
}

// ensureIndex creates an index with its mapping unless it is known to exist
func (r *ElasticsearchRepository) ensureIndex(ctx context.Context, kind, name string) error {
	r.mu.Lock()
	if r.known[name] {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	res, err := r.client.Indices.Exists([]string{name}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if index %s exists: %w", name, err)
	}
	res.Body.Close()

	if res.StatusCode == 404 {
		req := esapi.IndicesCreateRequest{
			Index: name,
			Body:  strings.NewReader(mappingFor(kind)),
		}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			return fmt.Errorf("error creating index %s: %w", name, err)
		}
		defer res.Body.Close()

		if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
			return fmt.Errorf("error creating index %s: %s", name, res.String())
		}
		r.logger.Info("Created index %s", name)
	}

	r.mu.Lock()
	r.known[name] = true
	r.mu.Unlock()
	return nil
}

func (r *ElasticsearchRepository) indexDocument(ctx context.Context, kind string, at time.Time, id string, doc interface{}) error {
	name := r.indexName(kind, at)
	if err := r.ensureIndex(ctx, kind, name); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling %s document: %w", kind, err)
	}

	opts := []func(*esapi.IndexRequest){r.client.Index.WithContext(ctx)}
	if id != "" {
		opts = append(opts, r.client.Index.WithDocumentID(id))
	}
	res, err := r.client.Index(name, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("error indexing %s document: %w", kind, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing %s document: %s", kind, res.String())
	}
	return nil
}

// RecordTransaction indexes a committed transaction, keyed by its id
func (r *ElasticsearchRepository) RecordTransaction(ctx context.Context, tx *entities.Transaction) error {
	return r.indexDocument(ctx, kindTransactions, tx.Timestamp, tx.ID, newESTransaction(tx))
}

// RecordOutcome indexes a game outcome
func (r *ElasticsearchRepository) RecordOutcome(ctx context.Context, outcome *entities.Outcome) error {
	at := outcome.At
	if at.IsZero() {
		at = time.Now()
	}
	return r.indexDocument(ctx, kindOutcomes, at, "", newESOutcome(outcome))
}

// RotateIndices makes sure this month's and next month's indices exist
func (r *ElasticsearchRepository) RotateIndices(ctx context.Context, now time.Time) error {
	months := []time.Time{now, now.AddDate(0, 1, 0)}
	for _, kind := range []string{kindTransactions, kindOutcomes} {
		for _, month := range months {
			if err := r.ensureIndex(ctx, kind, r.indexName(kind, month)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PruneOldIndices deletes monthly indices whose whole month is past the retention period
func (r *ElasticsearchRepository) PruneOldIndices(ctx context.Context, now time.Time) error {
	indices, err := r.GetIndices(ctx, r.indexPrefix+"_*")
	if err != nil {
		return err
	}

	cutoff := now.Add(-r.config.RetentionPeriod)
	for _, name := range indices {
		parts := strings.Split(name, "_")
		if len(parts) < 3 {
			continue
		}

		month, err := time.Parse(indexDateFormat, parts[len(parts)-1])
		if err != nil {
			r.logger.Debug("Skipping index %s: %v", name, err)
			continue
		}
		if !month.AddDate(0, 1, 0).Before(cutoff) {
			continue
		}

		req := esapi.IndicesDeleteRequest{Index: []string{name}}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			r.logger.Error("Error deleting index %s: %v", name, err)
			continue
		}
		res.Body.Close()
		if res.IsError() {
			r.logger.Error("Error deleting index %s: %s", name, res.String())
			continue
		}

		r.mu.Lock()
		delete(r.known, name)
		r.mu.Unlock()
		r.logger.Info("Deleted index %s (older than retention period of %v)", name, r.config.RetentionPeriod)
	}
	return nil
}

// GetIndices returns a sorted list of indices that match the given pattern
func (r *ElasticsearchRepository) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	res, err := r.client.Indices.Get(
		[]string{pattern},
		r.client.Indices.Get.WithContext(ctx),
		r.client.Indices.Get.WithExpandWildcards("open"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error getting indices: %s", res.String())
	}

	var indices map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("error parsing indices response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetIndexPrefix returns the index prefix used by the repository
func (r *ElasticsearchRepository) GetIndexPrefix() string {
	return r.indexPrefix
}
