package redisstream

import (
	"context"
	"sync"

	"github.com/gomodule/redigo/redis"
)

type call struct {
	name string
	args []any
}

type fakeConn struct {
	mu     sync.Mutex
	do     func(name string, args []any) (any, error)
	calls  []call
	sent   []call
	closed int
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Err() error { return nil }

func (c *fakeConn) Do(name string, args ...any) (any, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call{name: name, args: args})
	c.mu.Unlock()
	if c.do == nil {
		return "OK", nil
	}
	return c.do(name, args)
}

func (c *fakeConn) Send(name string, args ...any) error {
	c.mu.Lock()
	c.sent = append(c.sent, call{name: name, args: args})
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Flush() error { return nil }

func (c *fakeConn) Receive() (any, error) { return nil, nil }

func (c *fakeConn) commands(name string) []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []call
	for _, cl := range c.calls {
		if cl.name == name {
			out = append(out, cl)
		}
	}
	return out
}

func (c *fakeConn) sentNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, cl := range c.sent {
		out = append(out, cl.name)
	}
	return out
}

type fakePool struct {
	conn *fakeConn
}

func (p fakePool) GetContext(context.Context) (redis.Conn, error) {
	return p.conn, nil
}

// streamEntry builds the reply shape of a single stream entry.
func streamEntry(id string, kv ...string) any {
	fields := make([]any, 0, len(kv))
	for _, s := range kv {
		fields = append(fields, []byte(s))
	}
	return []any{[]byte(id), fields}
}

func readReply(stream string, entries ...any) any {
	return []any{[]any{[]byte(stream), entries}}
}
