package fritz

import "context"

// ActionKey identifies a remote operation as the (service, action) pair
// a connection advertises.
type ActionKey struct {
	Service string
	Action  string
}

// ReadingSet is the raw named-output result of one remote invocation.
// An empty (or nil) set signals end-of-enumeration for indexed actions.
type ReadingSet map[string]any

// Connection is one live management session against a device. It is not
// safe for concurrent use; a collector polls its connections sequentially.
type Connection interface {
	// Actions returns the set of operations the device advertises.
	Actions() map[ActionKey]struct{}
	// Invoke performs one remote operation and returns its named outputs.
	// A malformed response is reported as *InvalidDataError.
	Invoke(ctx context.Context, service, action string, params map[string]string) (ReadingSet, error)
	Close() error
}

// Dialer opens management connections. The password is empty for the
// non-authenticated session.
type Dialer interface {
	Dial(ctx context.Context, address string, port int, user, password string) (Connection, error)
}
