package fritz

import (
	"context"
	"time"
)

// PointKey addresses one metric point within a cycle. Keys are unique
// per cycle; a later write for the same key wins.
type PointKey struct {
	Instance string
	Suffix   string
}

// Point is one normalized observation ready for the sink.
type Point struct {
	Type  string
	Value float64
}

// PointSet is the merged output of one collection cycle.
type PointSet map[PointKey]Point

// Merge copies src into p, overwriting existing keys (last write wins).
func (p PointSet) Merge(src PointSet) {
	for k, v := range src {
		p[k] = v
	}
}

// Batch is one cycle's points plus the tags they are published with.
type Batch struct {
	Time   time.Time
	Tags   map[string]string
	Points PointSet
}

// Sink accepts one batch per collection cycle.
type Sink interface {
	Write(ctx context.Context, batch Batch) error
}
