package fritz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// fakeConn scripts responses per (service, action). Handlers receive
// the invocation parameters, so indexed actions can be scripted by
// enumeration index.
type fakeConn struct {
	actions   map[ActionKey]struct{}
	responses map[ActionKey]func(params map[string]string) (ReadingSet, error)
	calls     []ActionKey
	closed    bool
}

func newFakeConn(advertised ...ActionKey) *fakeConn {
	c := &fakeConn{
		actions:   make(map[ActionKey]struct{}),
		responses: make(map[ActionKey]func(map[string]string) (ReadingSet, error)),
	}
	for _, key := range advertised {
		c.actions[key] = struct{}{}
	}
	return c
}

func (c *fakeConn) respond(key ActionKey, readings ReadingSet) {
	c.actions[key] = struct{}{}
	c.responses[key] = func(map[string]string) (ReadingSet, error) {
		return readings, nil
	}
}

// respondIndexed serves one reading set per index and an empty set past
// the end.
func (c *fakeConn) respondIndexed(key ActionKey, indexField string, sets []ReadingSet) {
	c.actions[key] = struct{}{}
	c.responses[key] = func(params map[string]string) (ReadingSet, error) {
		index, err := strconv.Atoi(params[indexField])
		if err != nil {
			return nil, fmt.Errorf("missing index parameter: %w", err)
		}
		if index >= len(sets) {
			return nil, nil
		}
		return sets[index], nil
	}
}

func (c *fakeConn) fail(key ActionKey, err error) {
	c.actions[key] = struct{}{}
	c.responses[key] = func(map[string]string) (ReadingSet, error) {
		return nil, err
	}
}

func (c *fakeConn) Actions() map[ActionKey]struct{} { return c.actions }

func (c *fakeConn) Invoke(_ context.Context, service, action string, params map[string]string) (ReadingSet, error) {
	key := ActionKey{Service: service, Action: action}
	c.calls = append(c.calls, key)
	if fn, ok := c.responses[key]; ok {
		return fn(params)
	}
	return nil, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer hands out the plain connection for empty passwords and the
// auth connection otherwise.
type fakeDialer struct {
	plain     *fakeConn
	auth      *fakeConn
	plainErr  error
	authErr   error
	authDials int
}

func (d *fakeDialer) Dial(_ context.Context, _ string, _ int, _, password string) (Connection, error) {
	if password == "" {
		if d.plainErr != nil {
			return nil, d.plainErr
		}
		return d.plain, nil
	}
	d.authDials++
	if d.authErr != nil {
		return nil, d.authErr
	}
	return d.auth, nil
}

// captureSink remembers every written batch.
type captureSink struct {
	batches []Batch
	err     error
}

func (s *captureSink) Write(_ context.Context, batch Batch) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

var errBoom = errors.New("boom")
