// Command stockrelay-deadletter inspects the Redis dead-letter stream. The stream is
// append-only: entries are listed, never replayed into the main queue.
//
// Usage:
//
//	stockrelay-deadletter [flags] len
//	stockrelay-deadletter [flags] list
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/config"
	"github.com/velmie/stockrelay/cmd/internal/wiring"
	"github.com/velmie/stockrelay/redisstream"
)

const exitUsage = 2

var errUsage = errors.New("usage: stockrelay-deadletter [flags] len|list")

type deadLetterStore interface {
	Len(ctx context.Context) (int, error)
	List(ctx context.Context, opts redisstream.ListOptions) ([]stockrelay.DeadLetter, error)
}

type listFlags struct {
	start  string
	end    string
	count  int
	newest bool
}

type entryView struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"supplier_id"`
	Identifier string          `json:"sku"`
	RetryCount int             `json:"retry_count"`
	Endpoint   string          `json:"endpoint,omitempty"`
	Error      string          `json:"error"`
	FailedAt   time.Time       `json:"failed_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func main() {
	var (
		configPath string
		envFile    string
		lf         listFlags
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a .env file (optional)")
	flag.StringVar(&lf.start, "start", "", "First entry id to list (default: stream start)")
	flag.StringVar(&lf.end, "end", "", "Last entry id to list (default: stream end)")
	flag.IntVar(&lf.count, "count", 20, "Max entries to list")
	flag.BoolVar(&lf.newest, "newest", false, "List most recent entries first")
	flag.Parse()

	cfg, _, err := wiring.Bootstrap(configPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	if cfg.Redis.URL == "" {
		fmt.Fprintln(os.Stderr, "REDIS_URL is required")
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx, stop := wiring.SignalContext(context.Background())
	defer stop()

	pool, err := wiring.OpenRedis(ctx, cfg)
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}
	defer pool.Close()

	store, err := newStore(cfg, pool)
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}

	if err := run(ctx, store, flag.Args(), lf, os.Stdout); err != nil {
		log.Print(err)
		if errors.Is(err, errUsage) {
			os.Exit(exitUsage)
		}
		os.Exit(1)
	}
}

func newStore(cfg config.Config, pool redisstream.Pool) (*redisstream.DeadLetters, error) {
	var opts []redisstream.Option
	if cfg.Queue.Stream != "" {
		opts = append(opts, redisstream.WithStream(cfg.Queue.Stream))
	}
	if cfg.Queue.DeadLetter != "" {
		opts = append(opts, redisstream.WithDeadLetterStream(cfg.Queue.DeadLetter))
	}

	return redisstream.NewDeadLetters(pool, opts...)
}

func run(ctx context.Context, store deadLetterStore, args []string, lf listFlags, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "len":
		n, err := store.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)

		return nil

	case "list":
		letters, err := store.List(ctx, redisstream.ListOptions{
			Start:  lf.start,
			End:    lf.end,
			Count:  lf.count,
			Newest: lf.newest,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		for _, l := range letters {
			if err := enc.Encode(view(l)); err != nil {
				return err
			}
		}

		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func view(l stockrelay.DeadLetter) entryView {
	v := entryView{
		ID:         l.ID,
		SupplierID: l.Message.SupplierID,
		Identifier: l.Message.Identifier,
		RetryCount: l.Message.RetryCount,
		Endpoint:   l.Message.Endpoint,
		Error:      l.Err,
		FailedAt:   l.FailedAt,
	}
	if json.Valid(l.Payload) {
		v.Payload = l.Payload
	}

	return v
}
