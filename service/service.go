// Package service wires the catalog, the vector index, the sync engine, the resolver and
// the external query executor into one unit with explicit startup and shutdown.
package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/viant/metavec/catalog"
	"github.com/viant/metavec/config"
	"github.com/viant/metavec/embedding"
	"github.com/viant/metavec/engine"
	"github.com/viant/metavec/extquery"
	"github.com/viant/metavec/index"
	"github.com/viant/metavec/internal/apperrors"
	"github.com/viant/metavec/resolver"
	"github.com/viant/metavec/vecindex"
	"github.com/viant/metavec/vecsync"
)

// ErrExternalNotConfigured is returned by Query when no external database is configured.
var ErrExternalNotConfigured apperrors.Error = apperrors.New(apperrors.KindUpstreamQuery, "external database is not configured")

// Service owns every component. Each shared resource is guarded by its own mutex and an
// operation holds the locks of the resources it touches.
type Service struct {
	db       *sql.DB
	ownsDB   bool
	catalog  *catalog.SQLiteStore
	index    *vecindex.Store
	embedder embedding.Client
	syncer   *vecsync.Engine
	resolver *resolver.Resolver
	external *extquery.Executor

	catalogMu  sync.Mutex
	indexMu    sync.Mutex
	externalMu sync.Mutex
}

type options struct {
	db       *sql.DB
	embedder embedding.Client
	external *extquery.Executor
}

// Option overrides a component built from the configuration.
type Option func(*options)

// WithDB uses db instead of opening config.Database.Path. The caller keeps ownership.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithEmbedder uses client instead of the configured provider.
func WithEmbedder(client embedding.Client) Option {
	return func(o *options) { o.embedder = client }
}

// WithExternal uses exec instead of opening config.External.
func WithExternal(exec *extquery.Executor) Option {
	return func(o *options) { o.external = exec }
}

// New opens the database, creates missing tables and wires all components.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	s := &Service{db: o.db, embedder: o.embedder, external: o.external}
	if s.db == nil {
		db, err := engine.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.db, s.ownsDB = db, true
	}
	if err := s.init(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Ctx(ctx).Info().Str("database", cfg.Database.Path).Str("index", string(s.index.Kind())).
		Int("dimension", s.index.Dimension()).Bool("external", s.external != nil).Msg("service started")
	return s, nil
}

func (s *Service) init(ctx context.Context, cfg *config.Config) error {
	var err error
	if s.catalog, err = catalog.NewSQLiteStore(ctx, s.db); err != nil {
		return err
	}
	kind, err := index.ParseKind(cfg.Index.Kind)
	if err != nil {
		return err
	}
	if s.index, err = vecindex.New(ctx, s.db, vecindex.WithDimension(cfg.Embedding.Dimension), vecindex.WithKind(kind)); err != nil {
		return err
	}
	if s.embedder == nil {
		s.embedder, err = embedding.New(embedding.Config{
			Provider:  embedding.Provider(cfg.Embedding.Provider),
			URL:       embeddingURL(cfg),
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout.Duration,
		})
		if err != nil {
			return err
		}
	}
	s.syncer, err = vecsync.New(lockedCatalog{mu: &s.catalogMu, next: s.catalog}, s.embedder, s.index, vecsync.Options{
		KeyMode:   vecsync.KeyMode(cfg.Sync.KeyMode),
		EmbedMode: vecsync.EmbedMode(cfg.Sync.EmbedMode),
		TwoStep:   cfg.Sync.TwoStep,
	})
	if err != nil {
		return err
	}
	s.resolver = resolver.New(s.embedder, lockedSearcher{mu: &s.indexMu, next: s.index}, lockedGetter{mu: &s.catalogMu, next: s.catalog})
	if s.external == nil && cfg.External.Driver != "" {
		s.external, err = extquery.Open(cfg.External.Driver, cfg.External.DSN,
			extquery.WithStatementTimeout(cfg.External.StatementTimeout.Duration))
		if err != nil {
			return errors.Wrap(err, "failed to open external database")
		}
	}
	return nil
}

func embeddingURL(cfg *config.Config) string {
	if embedding.Provider(cfg.Embedding.Provider) == embedding.ProviderOpenAI {
		return cfg.Embedding.BaseURL
	}
	return cfg.Embedding.URL
}

// Close releases the databases opened by New.
func (s *Service) Close() error {
	var errs []error
	if s.external != nil {
		if err := s.external.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownsDB && s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "failed to close service")
	}
	return nil
}

// CreateEntry adds a catalog entry.
func (s *Service) CreateEntry(ctx context.Context, entry catalog.Entry) (int64, error) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	return s.catalog.Create(ctx, entry)
}

// ListEntries returns a page of catalog entries.
func (s *Service) ListEntries(ctx context.Context, limit, offset int) ([]catalog.Entry, error) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	return s.catalog.List(ctx, limit, offset)
}

// UpdateEntry replaces the description and columns of tableName.
func (s *Service) UpdateEntry(ctx context.Context, tableName, description string, columns []catalog.Column) error {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	return s.catalog.Update(ctx, tableName, description, columns)
}

// DeleteEntry removes tableName from the catalog. The index keeps referencing it until
// the next sync.
func (s *Service) DeleteEntry(ctx context.Context, tableName string) error {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	return s.catalog.Delete(ctx, tableName)
}

// SyncIndex rebuilds the vector index from the catalog. The index lock is held for the
// whole rebuild; the catalog lock only while the catalog snapshot is read.
func (s *Service) SyncIndex(ctx context.Context) (*vecsync.Result, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.syncer.Sync(ctx)
}

// SyncStatus reports the last sync and pending catalog changes.
func (s *Service) SyncStatus(ctx context.Context) (*vecsync.Status, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.syncer.Status(ctx)
}

// ResolveTable returns the catalog entry most relevant to prompt.
func (s *Service) ResolveTable(ctx context.Context, prompt string) (*resolver.Match, error) {
	return s.resolver.Resolve(ctx, prompt)
}

// Query runs raw SQL against the external database.
func (s *Service) Query(ctx context.Context, query string) ([]extquery.Row, error) {
	if s.external == nil {
		return nil, ErrExternalNotConfigured
	}
	s.externalMu.Lock()
	defer s.externalMu.Unlock()
	return s.external.Query(ctx, query)
}

type lockedSearcher struct {
	mu   *sync.Mutex
	next resolver.Searcher
}

func (l lockedSearcher) Search(ctx context.Context, query []float32, k int) ([]vecindex.Hit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.Search(ctx, query, k)
}

type lockedGetter struct {
	mu   *sync.Mutex
	next resolver.Getter
}

func (l lockedGetter) Get(ctx context.Context, id int64) (*catalog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.Get(ctx, id)
}

// lockedCatalog takes the catalog lock around sync reads. Callers may already hold the
// index lock, never the other way around.
type lockedCatalog struct {
	mu   *sync.Mutex
	next vecsync.Catalog
}

func (l lockedCatalog) Snapshot(ctx context.Context) ([]catalog.Entry, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.Snapshot(ctx)
}

func (l lockedCatalog) ChangesSince(ctx context.Context, seq int64) (int64, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.ChangesSince(ctx, seq)
}
