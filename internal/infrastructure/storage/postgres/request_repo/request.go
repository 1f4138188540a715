// Package request_repo provides PostgreSQL persistence for stock change
// requests.
package request_repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/storage/postgres"
)

const (
	requestsTable = "doc_stock_change_requests"

	// uniqueViolation is the PostgreSQL error code raised by the partial
	// unique index on pending (grower_id, unit_id).
	uniqueViolation = "23505"
)

var requestCols = postgres.ExtractDBColumns[stockrequest.StockChangeRequest]()

// RequestRepo implements stockrequest.Repository.
type RequestRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stockrequest.Repository = (*RequestRepo)(nil)

// NewRequestRepo creates a new request repository.
func NewRequestRepo(txManager *postgres.TxManager) *RequestRepo {
	return &RequestRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new request using its "db" tags.
func (r *RequestRepo) Create(ctx context.Context, req *stockrequest.StockChangeRequest) error {
	sql, args, err := r.builder.
		Insert(requestsTable).
		SetMap(postgres.StructToMap(req)).
		ToSql()
	if err != nil {
		return apperror.NewInternal(err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewConflict("a pending stock request already exists for this unit").
				WithDetail("growerId", req.GrowerID.String()).
				WithDetail("unitId", req.UnitID.String()).
				WithCause(err)
		}
		return apperror.NewStorage("insert stock request", err)
	}
	return nil
}

// Get retrieves a request by ID.
func (r *RequestRepo) Get(ctx context.Context, requestID id.ID) (*stockrequest.StockChangeRequest, error) {
	sql, args, err := r.builder.
		Select(requestCols...).
		From(requestsTable).
		Where(squirrel.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var req stockrequest.StockChangeRequest
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock request", requestID.String())
		}
		return nil, apperror.NewStorage("get stock request", err)
	}
	return &req, nil
}

// Transition is a single conditional UPDATE: it only matches while the row is
// still PENDING, so of two concurrent decisions exactly one sees a row back.
func (r *RequestRepo) Transition(ctx context.Context, t stockrequest.Transition) (*stockrequest.StockChangeRequest, bool, error) {
	sql, args, err := r.transitionQuery(t).ToSql()
	if err != nil {
		return nil, false, apperror.NewInternal(err)
	}

	var req stockrequest.StockChangeRequest
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, false, nil
		}
		return nil, false, apperror.NewStorage("transition stock request", err)
	}
	return &req, true, nil
}

func (r *RequestRepo) transitionQuery(t stockrequest.Transition) squirrel.UpdateBuilder {
	return r.builder.
		Update(requestsTable).
		Set("status", t.To).
		Set("processed_at", t.At).
		Set("processed_by", t.AdminID).
		Set("rejection_reason", t.Reason).
		Where(squirrel.Eq{"id": t.RequestID, "status": stockrequest.StatusPending}).
		Suffix("RETURNING " + strings.Join(requestCols, ", "))
}

// MarkViewed acknowledges processed responses for one grower.
func (r *RequestRepo) MarkViewed(ctx context.Context, growerID id.ID, requestIDs []id.ID, at time.Time) (int64, error) {
	sql, args, err := r.markViewedQuery(growerID, requestIDs, at).ToSql()
	if err != nil {
		return 0, apperror.NewInternal(err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewStorage("acknowledge stock requests", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RequestRepo) markViewedQuery(growerID id.ID, requestIDs []id.ID, at time.Time) squirrel.UpdateBuilder {
	q := r.builder.
		Update(requestsTable).
		Set("viewed_at", at).
		Where(squirrel.Eq{"grower_id": growerID}).
		Where(squirrel.NotEq{"status": stockrequest.StatusPending}).
		Where("processed_at IS NOT NULL").
		Where("viewed_at IS NULL")
	if requestIDs != nil {
		q = q.Where(squirrel.Eq{"id": requestIDs})
	}
	return q
}

// CountPending counts requests awaiting a decision.
func (r *RequestRepo) CountPending(ctx context.Context) (int64, error) {
	return r.count(ctx, "count pending requests", squirrel.Eq{"status": stockrequest.StatusPending})
}

// CountUnviewedResponses counts the grower's processed, unacknowledged requests.
func (r *RequestRepo) CountUnviewedResponses(ctx context.Context, growerID id.ID) (int64, error) {
	return r.count(ctx, "count unviewed responses", squirrel.And{
		squirrel.Eq{"grower_id": growerID},
		squirrel.NotEq{"status": stockrequest.StatusPending},
		squirrel.Expr("processed_at IS NOT NULL"),
		squirrel.Expr("viewed_at IS NULL"),
	})
}

func (r *RequestRepo) count(ctx context.Context, op string, where squirrel.Sqlizer) (int64, error) {
	sql, args, err := r.builder.
		Select("COUNT(*)").
		From(requestsTable).
		Where(where).
		ToSql()
	if err != nil {
		return 0, apperror.NewInternal(err)
	}

	var n int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, apperror.NewStorage(op, err)
	}
	return n, nil
}

// ListByGrower returns the grower's requests, newest first.
func (r *RequestRepo) ListByGrower(ctx context.Context, growerID id.ID, filter stockrequest.ListFilter) ([]stockrequest.StockChangeRequest, error) {
	q := r.builder.
		Select(requestCols...).
		From(requestsTable).
		Where(squirrel.Eq{"grower_id": growerID}).
		OrderBy("submitted_at DESC", "id DESC")
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	requests := []stockrequest.StockChangeRequest{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &requests, sql, args...); err != nil {
		return nil, apperror.NewStorage("list stock requests", err)
	}
	return requests, nil
}
