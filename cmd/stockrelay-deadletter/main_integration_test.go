//go:build integration

package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/testutil"
	"github.com/velmie/stockrelay/redisstream"
)

func TestDeadLetterCLIContainer(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartRedisContainer(t, ctx)

	pool := redisstream.NewPool(env.URL, 2)
	t.Cleanup(func() { _ = pool.Close() })

	letter := stockrelay.DeadLetter{
		Message: stockrelay.Message{
			SupplierID: "7",
			Identifier: "A1",
			CacheKey:   "f:7:g:0:id:A1",
			CacheValue: `{"price":10,"sku":"A1"}`,
			Payload:    json.RawMessage(`{"action":"update_stock","supplier_id":"7","item":{"sku":"A1"}}`),
			RetryCount: stockrelay.DefaultMaxRetry,
		},
		Err:      "stockrelay retry budget exhausted",
		FailedAt: time.Now(),
	}
	id := seed(t, pool, letter)

	bin := testutil.BuildBinary(t, ".")
	cliEnv := map[string]string{"REDIS_URL": env.NetworkURL}

	code, logs := testutil.RunCLIContainer(t, ctx, env.Network.Name, bin, []string{"-env-file", "", "list"}, cliEnv)
	if code != 0 {
		t.Fatalf("list exit code %d logs: %s", code, logs)
	}
	if !strings.Contains(logs, `"sku":"A1"`) || !strings.Contains(logs, id) {
		t.Fatalf("list output missing entry: %s", logs)
	}

	conn := pool.Get()
	defer conn.Close()
	dead, err := redis.Int(conn.Do("XLEN", redisstream.DefaultDeadLetterStream))
	if err != nil {
		t.Fatalf("xlen dead letters: %v", err)
	}
	queued, err := redis.Int(conn.Do("XLEN", redisstream.DefaultStream))
	if err != nil {
		t.Fatalf("xlen queue: %v", err)
	}
	if dead != 1 || queued != 0 {
		t.Fatalf("dead=%d queued=%d, want 1 and 0", dead, queued)
	}
}

func seed(t *testing.T, pool *redis.Pool, letter stockrelay.DeadLetter) string {
	t.Helper()

	conn := pool.Get()
	defer conn.Close()

	args := redis.Args{}.Add(redisstream.DefaultDeadLetterStream, "*")
	for _, f := range letter.Fields() {
		args = args.Add(f.Name, f.Value)
	}
	id, err := redis.String(conn.Do("XADD", args...))
	if err != nil {
		t.Fatalf("seed dead letter: %v", err)
	}

	return id
}
