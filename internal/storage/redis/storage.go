package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, accountKey(account.Username), data, 0)
	pipe.SAdd(ctx, accountsIndexKey(), account.Username)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, username string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, accountKey(username))
	pipe.SRem(ctx, accountsIndexKey(), username)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListAccounts(ctx context.Context) ([]string, error) {
	usernames, err := s.client.SMembers(ctx, accountsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(usernames)
	return usernames, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	exists, err := s.client.Exists(ctx, dictionaryLoadedKey()).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	// LIST keeps the priority order the words were saved in
	return s.client.LRange(ctx, dictionaryKey(), 0, -1).Result()
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Delete existing dictionary and add new words atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(words) > 0 {
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.RPush(ctx, key, members...)
	}
	pipe.Set(ctx, dictionaryLoadedKey(), "1", 0)

	_, err := pipe.Exec(ctx)
	return err
}

// Run history operations

func (s *Storage) SaveRunRecord(ctx context.Context, record *model.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runKey(record.ID), data, s.cfg.RunRecordTTL)
	pipe.ZAdd(ctx, runsIndexKey(), redis.Z{
		Score:  float64(record.FinishedAt.UnixNano()),
		Member: string(record.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRunRecord(ctx context.Context, id model.RunID) (*model.RunRecord, error) {
	data, err := s.client.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRunNotFound
		}
		return nil, err
	}

	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRunRecords returns the most recent runs first.
// Index entries whose record has expired are skipped and pruned, and older
// pages are read until limit live records are found.
func (s *Storage) ListRunRecords(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	records := []*model.RunRecord{}

	var start int64
	for limit <= 0 || len(records) < limit {
		stop := int64(-1)
		if limit > 0 {
			stop = start + int64(limit-len(records)) - 1
		}

		ids, err := s.client.ZRevRange(ctx, runsIndexKey(), start, stop).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}

		page, stale, err := s.getRunRecords(ctx, ids)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		if len(stale) > 0 {
			// pruned entries shift later pages down
			if err := s.client.ZRem(ctx, runsIndexKey(), stale...).Err(); err != nil {
				return nil, err
			}
		}
		start += int64(len(ids) - len(stale))

		if stop < 0 {
			break
		}
	}

	return records, nil
}

// getRunRecords fetches the records for ids, returning the ids whose record has expired
func (s *Storage) getRunRecords(ctx context.Context, ids []string) ([]*model.RunRecord, []interface{}, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = runKey(model.RunID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	records := make([]*model.RunRecord, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var record model.RunRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, nil, err
		}
		records = append(records, &record)
	}
	return records, stale, nil
}
