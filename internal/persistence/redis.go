package persistence

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

const defaultRedisPrefix = "fanaf:"

// commitScript adds a batch to the finalized set only when none of its ids is
// there yet. ARGV holds id/payload pairs. Returns the conflicting ids, or an
// empty array after writing.
var commitScript = redis.NewScript(`
local conflicts = {}
for i = 1, #ARGV, 2 do
	if redis.call('SISMEMBER', KEYS[2], ARGV[i]) == 1 then
		table.insert(conflicts, ARGV[i])
	end
end
if #conflicts > 0 then
	return conflicts
end
for i = 1, #ARGV, 2 do
	redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
	redis.call('SADD', KEYS[2], ARGV[i])
end
return {}
`)

// appendScript inserts unknown registrations and records their intake order.
// ARGV holds id/payload pairs.
var appendScript = redis.NewScript(`
for i = 1, #ARGV, 2 do
	if redis.call('HSETNX', KEYS[1], ARGV[i], ARGV[i + 1]) == 1 then
		redis.call('RPUSH', KEYS[2], ARGV[i])
	end
end
return 0
`)

// RedisAdapter keeps registrations in a hash (id -> JSON), their intake order
// in a list and the finalized ids in a separate set, so other engine
// instances sharing the server see commits immediately.
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisAdapter.
type RedisOption func(*RedisAdapter)

// WithKeyPrefix namespaces the adapter's keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(a *RedisAdapter) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// NewRedis builds a Redis-backed adapter. The client lifecycle is managed by
// the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisAdapter {
	a := &RedisAdapter{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *RedisAdapter) registrationsKey() string { return a.prefix + "registrations" }
func (a *RedisAdapter) finalizedKey() string     { return a.prefix + "finalized" }
func (a *RedisAdapter) intakeKey() string        { return a.prefix + "intake" }

func (a *RedisAdapter) Load(ctx context.Context) (*Snapshot, error) {
	var (
		intake    *redis.StringSliceCmd
		raw       *redis.MapStringStringCmd
		finalized *redis.StringSliceCmd
	)
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		intake = pipe.LRange(ctx, a.intakeKey(), 0, -1)
		raw = pipe.HGetAll(ctx, a.registrationsKey())
		finalized = pipe.SMembers(ctx, a.finalizedKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}

	payloads := raw.Val()
	snap := &Snapshot{
		Registrations: make([]models.Registration, 0, len(payloads)),
		Finalized:     make([]models.RegistrationID, 0, len(finalized.Val())),
	}
	add := func(id string) error {
		payload, ok := payloads[id]
		if !ok {
			return nil
		}
		delete(payloads, id)
		reg, err := decodeRegistration(payload)
		if err != nil {
			return err
		}
		snap.Registrations = append(snap.Registrations, reg)
		return nil
	}
	for _, id := range intake.Val() {
		if err := add(id); err != nil {
			return nil, err
		}
	}
	// Records without an intake entry follow in id order.
	for _, id := range slices.Sorted(maps.Keys(payloads)) {
		if err := add(id); err != nil {
			return nil, err
		}
	}
	for _, id := range finalized.Val() {
		snap.Finalized = append(snap.Finalized, models.RegistrationID(id))
	}
	return snap, nil
}

func (a *RedisAdapter) Get(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := a.client.HMGet(ctx, a.registrationsKey(), idStrings(ids)...).Result()
	if err != nil {
		return nil, fmt.Errorf("get registrations: %w", err)
	}
	out := make([]models.Registration, 0, len(values))
	for _, v := range values {
		payload, ok := v.(string)
		if !ok {
			continue
		}
		reg, err := decodeRegistration(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, nil
}

func (a *RedisAdapter) Append(ctx context.Context, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	args := make([]any, 0, len(regs)*2)
	for _, reg := range regs {
		payload, err := encodeRegistration(reg)
		if err != nil {
			return err
		}
		args = append(args, string(reg.ID), payload)
	}
	err := appendScript.Run(ctx, a.client,
		[]string{a.registrationsKey(), a.intakeKey()}, args...).Err()
	if err != nil {
		return fmt.Errorf("append registrations: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Commit(ctx context.Context, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	args := make([]any, 0, len(regs)*2)
	for _, reg := range regs {
		payload, err := encodeRegistration(reg)
		if err != nil {
			return err
		}
		args = append(args, string(reg.ID), payload)
	}

	conflicts, err := commitScript.Run(ctx, a.client,
		[]string{a.registrationsKey(), a.finalizedKey()}, args...).StringSlice()
	if err != nil {
		return fmt.Errorf("commit finalization: %w", err)
	}
	if len(conflicts) > 0 {
		ids := make([]models.RegistrationID, 0, len(conflicts))
		for _, id := range conflicts {
			ids = append(ids, models.RegistrationID(id))
		}
		return &ConflictError{IDs: ids}
	}
	return nil
}

// Close is a no-op; the client lifecycle is managed externally.
func (a *RedisAdapter) Close() error { return nil }
