// Package memory is an in-process implementation of every repository the
// pricing core needs. It backs STORAGE_DRIVER=memory and the domain tests.
//
// Transactions are serialized: RunInTransaction holds a store-wide lock for
// its whole duration and restores a snapshot when fn fails. Calls made
// outside a transaction take the same lock for the single operation.
package memory

import (
	"context"
	"sync"

	"growermarket/internal/core/id"
	"growermarket/internal/core/tx"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/stockrequest"
)

// Store holds all tables.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	data tables
}

type tables struct {
	products map[id.ID]catalog.Product
	units    map[id.ID]catalog.SellableUnit
	growers  map[id.ID]catalog.Grower
	records  map[id.ID]ledger.GrowerPriceRecord
	requests map[id.ID]stockrequest.StockChangeRequest
	settings map[string]string
	outbox   []OutboxMessage
	audit    []AuditEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{data: tables{
		products: make(map[id.ID]catalog.Product),
		units:    make(map[id.ID]catalog.SellableUnit),
		growers:  make(map[id.ID]catalog.Grower),
		records:  make(map[id.ID]ledger.GrowerPriceRecord),
		requests: make(map[id.ID]stockrequest.StockChangeRequest),
		settings: make(map[string]string),
	}}
}

func (t tables) clone() tables {
	c := tables{
		products: make(map[id.ID]catalog.Product, len(t.products)),
		units:    make(map[id.ID]catalog.SellableUnit, len(t.units)),
		growers:  make(map[id.ID]catalog.Grower, len(t.growers)),
		records:  make(map[id.ID]ledger.GrowerPriceRecord, len(t.records)),
		requests: make(map[id.ID]stockrequest.StockChangeRequest, len(t.requests)),
		settings: make(map[string]string, len(t.settings)),
		outbox:   append([]OutboxMessage(nil), t.outbox...),
		audit:    append([]AuditEntry(nil), t.audit...),
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.units {
		c.units[k] = v
	}
	for k, v := range t.growers {
		c.growers[k] = v
	}
	for k, v := range t.records {
		c.records[k] = v
	}
	for k, v := range t.requests {
		c.requests[k] = v
	}
	for k, v := range t.settings {
		c.settings[k] = v
	}
	return c
}

type txKey struct{}

// inTx reports whether ctx carries a transaction of this store.
func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// exec runs fn under the data lock, serialized with transactions.
func (s *Store) exec(ctx context.Context, fn func(t *tables) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// TxManager implements tx.Manager over a Store.
type TxManager struct {
	store *Store
}

var _ tx.Manager = (*TxManager)(nil)

// NewTxManager creates a transaction manager for s.
func NewTxManager(s *Store) *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s := m.store
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- Seeding ---

// AddProduct stores a product.
func (s *Store) AddProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[p.ID] = p
}

// AddUnit stores a sellable unit.
func (s *Store) AddUnit(u catalog.SellableUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.units[u.ID] = u
}

// AddGrower stores a grower.
func (s *Store) AddGrower(g catalog.Grower) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.growers[g.ID] = g
}

// InsertRecord stores a ledger row as is, bypassing the one-row-per-pair
// rule. Used to reproduce legacy duplicates.
func (s *Store) InsertRecord(r ledger.GrowerPriceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.records[r.ID] = r
}

// SetSetting stores a raw setting value.
func (s *Store) SetSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings[key] = value
}

// RecordCount returns the number of ledger rows.
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.records)
}

// Outbox returns a copy of the recorded outbox messages.
func (s *Store) Outbox() []OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboxMessage(nil), s.data.outbox...)
}

// AuditEntries returns a copy of the recorded audit entries.
func (s *Store) AuditEntries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.data.audit...)
}
