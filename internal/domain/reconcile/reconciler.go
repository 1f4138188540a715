// Package reconcile repairs ledger rows that violate the one-record-per
// (grower, unit) invariant. It is an ops tool for legacy data written before
// the ledger upsert became atomic, and is safe to run repeatedly.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"growermarket/internal/core/id"
	"growermarket/internal/core/tx"
	"growermarket/internal/domain/ledger"
	"growermarket/pkg/logger"
)

// Repository gives the reconciler raw access to ledger rows.
type Repository interface {
	// ListAllRecords returns every ledger row, duplicates included.
	ListAllRecords(ctx context.Context) ([]ledger.GrowerPriceRecord, error)

	// DeleteRecords removes rows by id and returns the number removed.
	DeleteRecords(ctx context.Context, ids []id.ID) (int64, error)
}

// AuditLog keeps snapshots of removed rows.
type AuditLog interface {
	RecordReconciliation(ctx context.Context, report Report, removed []ledger.GrowerPriceRecord) error
}

// Options control one run.
type Options struct {
	// DryRun reports what would be removed without deleting anything.
	DryRun bool
}

// Report summarizes one run.
type Report struct {
	RunID           id.ID     `json:"runId"`
	Scanned         int       `json:"scanned"`
	DuplicateGroups int       `json:"duplicateGroups"`
	Removed         int64     `json:"removed"`
	RemovedIDs      []id.ID   `json:"removedIds,omitempty"`
	DryRun          bool      `json:"dryRun"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// DuplicateGroup is one (grower, unit) pair with more than one row.
type DuplicateGroup struct {
	GrowerID id.ID
	UnitID   id.ID
	Kept     ledger.GrowerPriceRecord
	Removed  []ledger.GrowerPriceRecord
}

type pairKey struct {
	growerID id.ID
	unitID   id.ID
}

// FindDuplicates groups records by (grower, unit) and, for every group with
// more than one row, keeps the most recently created one. Ties on created_at
// are broken by the larger (later) UUIDv7. Groups come back in a stable order.
func FindDuplicates(records []ledger.GrowerPriceRecord) []DuplicateGroup {
	groups := make(map[pairKey][]ledger.GrowerPriceRecord)
	for _, r := range records {
		k := pairKey{growerID: r.GrowerID, unitID: r.UnitID}
		groups[k] = append(groups[k], r)
	}

	var result []DuplicateGroup
	for k, rows := range groups {
		if len(rows) < 2 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool {
			return newer(rows[i], rows[j])
		})
		result = append(result, DuplicateGroup{
			GrowerID: k.growerID,
			UnitID:   k.unitID,
			Kept:     rows[0],
			Removed:  rows[1:],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if c := id.Compare(result[i].GrowerID, result[j].GrowerID); c != 0 {
			return c < 0
		}
		return id.Compare(result[i].UnitID, result[j].UnitID) < 0
	})
	return result
}

func newer(a, b ledger.GrowerPriceRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return id.Compare(a.ID, b.ID) > 0
}

// Reconciler runs repair passes over the ledger.
type Reconciler struct {
	repo      Repository
	audit     AuditLog
	txManager tx.Manager
	now       func() time.Time
}

// NewReconciler creates a reconciler. audit may be nil.
func NewReconciler(repo Repository, audit AuditLog, txManager tx.Manager) *Reconciler {
	return &Reconciler{
		repo:      repo,
		audit:     audit,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run scans the ledger and removes duplicate rows in a single transaction.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		RunID:     id.New(),
		DryRun:    opts.DryRun,
		StartedAt: r.now(),
	}

	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		records, err := r.repo.ListAllRecords(ctx)
		if err != nil {
			return fmt.Errorf("list ledger records: %w", err)
		}
		report.Scanned = len(records)

		groups := FindDuplicates(records)
		report.DuplicateGroups = len(groups)

		var removed []ledger.GrowerPriceRecord
		for _, g := range groups {
			removed = append(removed, g.Removed...)
		}
		report.RemovedIDs = make([]id.ID, len(removed))
		for i, rec := range removed {
			report.RemovedIDs[i] = rec.ID
		}

		if opts.DryRun || len(removed) == 0 {
			return nil
		}

		n, err := r.repo.DeleteRecords(ctx, report.RemovedIDs)
		if err != nil {
			return fmt.Errorf("delete duplicate records: %w", err)
		}
		report.Removed = n

		if r.audit != nil {
			report.FinishedAt = r.now()
			if err := r.audit.RecordReconciliation(ctx, *report, removed); err != nil {
				return fmt.Errorf("record reconciliation audit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.FinishedAt = r.now()
	logger.Info(ctx, "ledger reconciliation finished",
		"run_id", report.RunID,
		"scanned", report.Scanned,
		"duplicate_groups", report.DuplicateGroups,
		"removed", report.Removed,
		"dry_run", report.DryRun,
	)
	return report, nil
}
