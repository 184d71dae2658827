package fritz

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxEnumeration caps indexed enumeration loops. The device
// contract says an empty reading set terminates the walk; the cap keeps
// a misbehaving device from wedging the cycle.
const DefaultMaxEnumeration = 256

// Poller walks a filtered schema against one connection and produces
// the cycle's metric points. It performs no retries itself.
type Poller struct {
	conv    *ConversionRegistry
	maxEnum int
	log     *zap.Logger
	onDrop  func()
}

// NewPoller builds a poller. maxEnum <= 0 selects the default cap.
// onDrop, if non-nil, is called once per point dropped to a conversion
// error.
func NewPoller(conv *ConversionRegistry, maxEnum int, log *zap.Logger, onDrop func()) *Poller {
	if maxEnum <= 0 {
		maxEnum = DefaultMaxEnumeration
	}
	return &Poller{conv: conv, maxEnum: maxEnum, log: log, onDrop: onDrop}
}

// Poll reads every schema entry in order. Indexed actions are invoked
// with an increasing index until the device returns an empty reading
// set. A malformed response aborts the poll and propagates as
// *InvalidDataError; conversion failures only drop the affected point.
// On enumeration overflow the points gathered so far are returned
// together with an error wrapping ErrEnumerationOverflow.
func (p *Poller) Poll(ctx context.Context, conn Connection, schema Schema, baseInstance string) (PointSet, error) {
	points := make(PointSet)
	var overflow error

	for _, entry := range schema {
		act := entry.Action

		for index := 0; ; index++ {
			if act.IndexField != "" && index >= p.maxEnum {
				p.log.Error("enumeration cap reached, device keeps returning readings",
					zap.String("service", act.Service),
					zap.String("action", act.Action),
					zap.Int("cap", p.maxEnum))
				overflow = fmt.Errorf("%s/%s: %w after %d reads",
					act.Service, act.Action, ErrEnumerationOverflow, index)
				break
			}

			params := map[string]string{}
			if act.IndexField != "" {
				params[act.IndexField] = strconv.Itoa(index)
			}

			p.log.Debug("calling action",
				zap.String("service", act.Service),
				zap.String("action", act.Action),
				zap.Any("params", params))

			readings, err := conn.Invoke(ctx, act.Service, act.Action, params)
			if err != nil {
				return nil, err
			}
			if len(readings) == 0 {
				// Normal termination for indexed actions, "no data this
				// cycle" for the rest.
				p.log.Debug("no readings received",
					zap.String("service", act.Service),
					zap.String("action", act.Action))
				break
			}

			instance := instanceName(baseInstance, act, readings, index)

			for _, out := range entry.Outputs {
				raw, ok := readings[out.Field]
				if !ok {
					continue
				}
				value, err := p.conv.Convert(out.Field, raw)
				if err != nil {
					p.log.Warn("dropping metric point", zap.Error(err))
					if p.onDrop != nil {
						p.onDrop()
					}
					continue
				}
				points[PointKey{Instance: instance, Suffix: out.Value.Suffix}] = Point{
					Type:  out.Value.Type,
					Value: value,
				}
			}

			if act.IndexField == "" {
				break
			}
		}
	}

	return points, overflow
}

// instanceName derives the hierarchical metric instance identifier:
// the configured base instance plus, for instanced actions, the prefix
// concatenated with the instance field value. When the instance field
// is the enumeration index (or missing from the readings), the index is
// used. Non-empty segments are joined with "-".
func instanceName(base string, act ServiceAction, readings ReadingSet, index int) string {
	segments := make([]string, 0, 2)
	if base != "" {
		segments = append(segments, base)
	}
	if act.InstanceField != "" {
		value, ok := readings[act.InstanceField]
		if act.InstanceField == act.IndexField || !ok {
			value = index
		}
		if segment := fmt.Sprintf("%s%v", act.InstancePrefix, value); segment != "" {
			segments = append(segments, segment)
		}
	}
	return strings.Join(segments, "-")
}
