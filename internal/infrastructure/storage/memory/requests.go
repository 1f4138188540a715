package memory

import (
	"context"
	"sort"
	"time"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/stockrequest"
)

// RequestRepo implements stockrequest.Repository.
type RequestRepo struct {
	store *Store
}

var _ stockrequest.Repository = (*RequestRepo)(nil)

// NewRequestRepo creates a request repository over s.
func NewRequestRepo(s *Store) *RequestRepo {
	return &RequestRepo{store: s}
}

func (r *RequestRepo) Create(ctx context.Context, req *stockrequest.StockChangeRequest) error {
	return r.store.exec(ctx, func(t *tables) error {
		for _, existing := range t.requests {
			if existing.Status == stockrequest.StatusPending &&
				existing.GrowerID == req.GrowerID &&
				existing.UnitID == req.UnitID {
				return apperror.NewConflict("a pending stock request already exists for this unit").
					WithDetail("requestId", existing.ID.String())
			}
		}
		t.requests[req.ID] = *req
		return nil
	})
}

func (r *RequestRepo) Get(ctx context.Context, requestID id.ID) (*stockrequest.StockChangeRequest, error) {
	var out stockrequest.StockChangeRequest
	err := r.store.exec(ctx, func(t *tables) error {
		req, ok := t.requests[requestID]
		if !ok {
			return apperror.NewNotFound("stock request", requestID.String())
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RequestRepo) Transition(ctx context.Context, tr stockrequest.Transition) (*stockrequest.StockChangeRequest, bool, error) {
	var (
		out stockrequest.StockChangeRequest
		ok  bool
	)
	err := r.store.exec(ctx, func(t *tables) error {
		req, found := t.requests[tr.RequestID]
		if !found || req.Status != stockrequest.StatusPending {
			return nil
		}
		at := tr.At
		admin := tr.AdminID
		req.Status = tr.To
		req.ProcessedAt = &at
		req.ProcessedBy = &admin
		req.RejectionReason = tr.Reason
		t.requests[req.ID] = req
		out, ok = req, true
		return nil
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return &out, true, nil
}

func (r *RequestRepo) MarkViewed(ctx context.Context, growerID id.ID, requestIDs []id.ID, at time.Time) (int64, error) {
	var only map[id.ID]bool
	if requestIDs != nil {
		only = idSet(requestIDs)
	}
	var n int64
	err := r.store.exec(ctx, func(t *tables) error {
		for rid, req := range t.requests {
			if req.GrowerID != growerID || !req.IsUnviewedResponse() {
				continue
			}
			if only != nil && !only[rid] {
				continue
			}
			viewed := at
			req.ViewedAt = &viewed
			t.requests[rid] = req
			n++
		}
		return nil
	})
	return n, err
}

func (r *RequestRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.exec(ctx, func(t *tables) error {
		for _, req := range t.requests {
			if req.Status == stockrequest.StatusPending {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *RequestRepo) CountUnviewedResponses(ctx context.Context, growerID id.ID) (int64, error) {
	var n int64
	err := r.store.exec(ctx, func(t *tables) error {
		for _, req := range t.requests {
			if req.GrowerID == growerID && req.IsUnviewedResponse() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *RequestRepo) ListByGrower(ctx context.Context, growerID id.ID, filter stockrequest.ListFilter) ([]stockrequest.StockChangeRequest, error) {
	var all []stockrequest.StockChangeRequest
	err := r.store.exec(ctx, func(t *tables) error {
		for _, req := range t.requests {
			if req.GrowerID != growerID {
				continue
			}
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			all = append(all, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.After(all[j].SubmittedAt)
		}
		return id.Compare(all[i].ID, all[j].ID) > 0
	})

	out := []stockrequest.StockChangeRequest{}
	if filter.Offset >= len(all) {
		return out, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return append(out, all...), nil
}
