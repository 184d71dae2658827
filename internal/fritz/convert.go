package fritz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConvertFunc normalizes one raw output value.
type ConvertFunc func(raw any) (float64, error)

// ConversionRegistry maps raw output field names to their normalizing
// transform. Unmapped fields pass through as-is (coerced to float64).
type ConversionRegistry struct {
	funcs map[string]ConvertFunc
}

// NewConversionRegistry returns the registry with the built-in
// conversions for the fields the schemas read.
func NewConversionRegistry() *ConversionRegistry {
	return &ConversionRegistry{funcs: map[string]ConvertFunc{
		"NewPhysicalLinkStatus": statusConversion("Up"),
		"NewConnectionStatus":   statusConversion("Connected"),
		"NewSwitchState":        statusConversion("ON"),
		"NewByteSendRate":       scaleConversion(8),
		"NewByteReceiveRate":    scaleConversion(8),
		"NewTemperatureCelsius": divideConversion(10),
		"NewMultimeterEnergy":   divideConversion(1000),
		"NewMultimeterPower":    divideConversion(100),
	}}
}

// Convert normalizes raw for the given output field. Values outside a
// conversion's domain fail closed with a *ConversionError.
func (r *ConversionRegistry) Convert(field string, raw any) (float64, error) {
	fn, ok := r.funcs[field]
	if !ok {
		return toFloat(field, raw)
	}
	v, err := fn(raw)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) && ce.Field == "" {
			ce.Field = field
		}
		return 0, err
	}
	return v, nil
}

// statusConversion maps a well-known state string to 1 and every other
// string to 0. Non-string input is out of domain.
func statusConversion(active string) ConvertFunc {
	return func(raw any) (float64, error) {
		s, ok := raw.(string)
		if !ok {
			return 0, &ConversionError{Field: "", Raw: raw, Cause: "expected status string"}
		}
		if s == active {
			return 1, nil
		}
		return 0, nil
	}
}

func scaleConversion(factor float64) ConvertFunc {
	return func(raw any) (float64, error) {
		v, err := toFloat("", raw)
		if err != nil {
			return 0, err
		}
		return v * factor, nil
	}
}

func divideConversion(divisor float64) ConvertFunc {
	return func(raw any) (float64, error) {
		v, err := toFloat("", raw)
		if err != nil {
			return 0, err
		}
		return v / divisor, nil
	}
}

// toFloat coerces the numeric representations the protocol layer hands
// out (Go numerics or decimal strings) into float64.
func toFloat(field string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &ConversionError{Field: field, Raw: raw, Cause: "not a decimal number"}
		}
		return f, nil
	default:
		return 0, &ConversionError{Field: field, Raw: raw, Cause: fmt.Sprintf("unsupported type %T", raw)}
	}
}
