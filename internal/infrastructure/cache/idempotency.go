package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"growermarket/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

const idempotencyKeyPrefix = "idem:"

// IdempotencyRecord is the stored state of one key.
type IdempotencyRecord struct {
	UserID      string            `json:"userId"`
	Operation   string            `json:"operation"`
	Status      IdempotencyStatus `json:"status"`
	RequestHash string            `json:"requestHash"` // SHA256 of request body
	Response    []byte            `json:"response,omitempty"`
	StatusCode  int               `json:"statusCode,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore keeps idempotency keys in Redis for ttl.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if key acquired successfully
//   - (cachedResponse, nil) if operation already completed
//   - (nil, error) if key is in use or was used for a different request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	record := IdempotencyRecord{
		UserID:      userID,
		Operation:   operation,
		Status:      IdempotencyStatusPending,
		RequestHash: requestHash,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency record: %w", err)
	}

	acquired, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, payload, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if acquired {
		return nil, nil
	}

	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing.UserID != userID || existing.Operation != operation || existing.RequestHash != requestHash {
		return nil, apperror.NewConflict("idempotency key was used for a different request").
			WithDetail("idempotency_key", key)
	}

	switch existing.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return &IdempotencyReplay{
			StatusCode:  existing.StatusCode,
			ContentType: existing.ContentType,
			Body:        existing.Response,
		}, nil
	default:
		return nil, apperror.NewConflict("request with this idempotency key is still in progress").
			WithDetail("idempotency_key", key)
	}
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey stores an error response for replay. Server errors release the
// key instead so the client may retry.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	if statusCode >= http.StatusInternalServerError {
		return s.client.Del(ctx, idempotencyKeyPrefix+key).Err()
	}
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	record, err := s.get(ctx, key)
	if err != nil {
		return err
	}

	if response != nil {
		body, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal idempotent response: %w", err)
		}
		record.Response = body
	}
	record.Status = status
	record.StatusCode = statusCode
	record.ContentType = contentType

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.NewConflict("idempotency key expired").WithDetail("idempotency_key", key)
		}
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var record IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &record, nil
}
