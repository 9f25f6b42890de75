package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
)

// DefaultPrefix namespaces every key the pool uses.
const DefaultPrefix = "overclock:pool:"

// insertScript adds up to ARGV[2] items of kind ARGV[1] to the items hash,
// bounded by the total capacity stored at KEYS[2] (absent means unlimited).
// It returns -1 when everything fits, otherwise the accepted count, so
// huge trial counts never pass through Lua's float arithmetic.
const insertScript = `
local cap = redis.call('GET', KEYS[2])
if not cap then
	if ARGV[3] == '0' then
		redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
	end
	return -1
end
local total = 0
for _, v in ipairs(redis.call('HVALS', KEYS[1])) do
	total = total + tonumber(v)
end
local free = tonumber(cap) - total
if free < 0 then
	free = 0
end
local count = tonumber(ARGV[2])
if count <= free then
	if ARGV[3] == '0' then
		redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
	end
	return -1
end
if ARGV[3] == '0' and free > 0 then
	redis.call('HINCRBY', KEYS[1], ARGV[1], free)
end
return free
`

// extractScript removes up to ARGV[1] energy from KEYS[1] and returns the
// amount taken as a string. A partial debit passes the caller's decimal text
// straight to INCRBYFLOAT and a full drain returns the stored text, so no
// amount is ever formatted by Lua.
const extractScript = `
local raw = redis.call('GET', KEYS[1]) or '0'
local stored = tonumber(raw)
if stored <= 0 then
	return '0'
end
if tonumber(ARGV[1]) < stored then
	if ARGV[2] == '0' then
		redis.call('INCRBYFLOAT', KEYS[1], '-' .. ARGV[1])
	end
	return ARGV[1]
end
if ARGV[2] == '0' then
	redis.call('SET', KEYS[1], '0')
end
return raw
`

// Redis is a pool shared through Redis.
type Redis struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

// Option configures a Redis pool.
type Option func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithLogger sets the logger adapters report backend errors to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Redis) {
		r.logger = l
	}
}

// NewRedis connects to the Redis server at address.
func NewRedis(address string, opts ...Option) *Redis {
	client := goredis.NewClient(&goredis.Options{Addr: address})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a pool on an existing client.
func NewFromClient(client *goredis.Client, opts ...Option) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pool ping: %w", err)
	}
	return nil
}

func (r *Redis) itemsKey() string    { return r.prefix + "items" }
func (r *Redis) capacityKey() string { return r.prefix + "capacity" }
func (r *Redis) energyKey() string   { return r.prefix + "energy" }

// SetCapacity bounds the total item count. A negative capacity removes the
// bound.
func (r *Redis) SetCapacity(ctx context.Context, capacity int64) error {
	var err error
	if capacity < 0 {
		err = r.client.Del(ctx, r.capacityKey()).Err()
	} else {
		err = r.client.Set(ctx, r.capacityKey(), capacity, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("set pool capacity: %w", err)
	}
	return nil
}

// Insert adds up to count items of kind and returns the leftover.
func (r *Redis) Insert(ctx context.Context, kind ir.Kind, count int64, simulate bool) (int64, error) {
	if count <= 0 {
		return 0, nil
	}
	accepted, err := r.client.Eval(ctx, insertScript,
		[]string{r.itemsKey(), r.capacityKey()},
		string(kind), count, flag(simulate),
	).Int64()
	if err != nil {
		return count, fmt.Errorf("pool insert: %w", err)
	}
	if accepted < 0 {
		return 0, nil
	}
	return count - min(accepted, count), nil
}

// ExtractEnergy removes up to amount of pooled energy.
func (r *Redis) ExtractEnergy(ctx context.Context, amount float64, simulate bool) (float64, error) {
	if amount <= 0 {
		return 0, nil
	}
	text, err := r.client.Eval(ctx, extractScript,
		[]string{r.energyKey()},
		strconv.FormatFloat(amount, 'g', -1, 64), flag(simulate),
	).Text()
	if err != nil {
		return 0, fmt.Errorf("pool extract: %w", err)
	}
	got, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("pool extract: parse %q: %w", text, err)
	}
	return got, nil
}

// DepositEnergy adds energy to the pool.
func (r *Redis) DepositEnergy(ctx context.Context, amount float64) error {
	if err := r.client.IncrByFloat(ctx, r.energyKey(), amount).Err(); err != nil {
		return fmt.Errorf("pool deposit: %w", err)
	}
	return nil
}

// Quantity returns how many items of kind the pool holds.
func (r *Redis) Quantity(ctx context.Context, kind ir.Kind) (int64, error) {
	n, err := r.client.HGet(ctx, r.itemsKey(), string(kind)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pool quantity: %w", err)
	}
	return n, nil
}

// Energy returns the pooled energy.
func (r *Redis) Energy(ctx context.Context) (float64, error) {
	v, err := r.client.Get(ctx, r.energyKey()).Float64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pool energy: %w", err)
	}
	return v, nil
}

// Sink adapts the pool to resolve.Sink.
func (r *Redis) Sink(ctx context.Context) resolve.Sink {
	return sink{backend: r, ctx: ctx, logger: r.logger}
}

// EnergySource adapts the pool to energy.Source.
func (r *Redis) EnergySource(ctx context.Context) energy.Source {
	return source{backend: r, ctx: ctx, logger: r.logger}
}

func flag(simulate bool) string {
	if simulate {
		return "1"
	}
	return "0"
}
