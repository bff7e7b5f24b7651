package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ServiceConfig tunes the service's write path.
type ServiceConfig struct {
	MaxConcurrentWrites int           // Write slots (default: DefaultMaxConcurrentWrites)
	WriteWait           time.Duration // Wait for a write slot (default: DefaultWriteWait)
	BatchParallelism    int           // Concurrent row writes per batch (default: DefaultBatchParallelism)
	MaxImageBytes       int64         // Largest single-entry image (default: DefaultMaxImageBytes)
	SearchPreviewSize   int           // Matches in the search preview (default: 10)
}

// Service provides plan-table operations on top of a Store.
// Every write runs through a TableController so sanitizing, derivation
// and the duplicate guard apply to API clients exactly as to the editor.
type Service struct {
	store   Store
	limiter *WriteLimiter
	cfg     ServiceConfig

	// Writes to one table are serialized so the duplicate guard sees
	// every committed row.
	tableLocks sync.Map // TableRef.String() -> *sync.Mutex
}

// NewService creates a new Service instance.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.BatchParallelism <= 0 {
		cfg.BatchParallelism = DefaultBatchParallelism
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Service{
		store:   store,
		limiter: NewWriteLimiter(cfg.MaxConcurrentWrites, cfg.WriteWait),
		cfg:     cfg,
	}
}

// Limiter exposes the write limiter for shutdown draining and health output.
func (s *Service) Limiter() *WriteLimiter {
	return s.limiter
}

// MaxImageBytes returns the configured single-entry image limit.
func (s *Service) MaxImageBytes() int64 {
	return s.cfg.MaxImageBytes
}

// SectionTables is one section of the catalog with its tables.
type SectionTables struct {
	SectionInfo
	Tables []TableInfo `json:"tables"`
}

// ListSections returns the catalog grouped by section.
func (s *Service) ListSections() []SectionTables {
	sections := Sections()
	out := make([]SectionTables, len(sections))
	for i, sec := range sections {
		out[i].SectionInfo = sec
		for _, def := range BySection(sec.ID) {
			out[i].Tables = append(out[i].Tables, def.Info)
		}
	}
	return out
}

// Definition returns the definition of a catalog table.
func (s *Service) Definition(section, table string) (TableDefinition, error) {
	return MustGet(section, table)
}

func (s *Service) lockTable(ref TableRef) func() {
	v, _ := s.tableLocks.LoadOrStore(ref.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// controller loads the table's rows and returns a controller writing
// through the store.
func (s *Service) controller(ctx context.Context, ref TableRef) (*TableController, error) {
	def, err := MustGet(ref.Section, ref.Table)
	if err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, ref.ProjectID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListRows(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list rows %s: %w", ref, err)
	}
	return NewTableController(def, &storeTableAdapter{store: s.store, ref: ref}, WithRows(rows)), nil
}

// storeTableAdapter persists a controller's writes to one table of the store.
type storeTableAdapter struct {
	store RowStore
	ref   TableRef
}

func (a *storeTableAdapter) AddRow(ctx context.Context, data Record) (Row, error) {
	return a.store.CreateRow(ctx, a.ref, data)
}

func (a *storeTableAdapter) EditRow(ctx context.Context, rowID string, data Record) (Row, error) {
	return a.store.UpdateRow(ctx, a.ref, rowID, data)
}

func (a *storeTableAdapter) DeleteRow(ctx context.Context, rowID string) error {
	return a.store.DeleteRow(ctx, a.ref, rowID)
}

// storeEntryAdapter persists single entries of one project.
type storeEntryAdapter struct {
	store     EntryStore
	projectID string
}

func (a *storeEntryAdapter) GetEntry(ctx context.Context, field string) (SingleEntry, error) {
	return a.store.GetEntry(ctx, a.projectID, field)
}

func (a *storeEntryAdapter) SaveEntry(ctx context.Context, entry SingleEntry) (SingleEntry, error) {
	entry.ProjectID = a.projectID
	return a.store.UpsertEntry(ctx, entry)
}
