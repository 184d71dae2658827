package fritz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertKnownFields(t *testing.T) {
	reg := NewConversionRegistry()

	tests := []struct {
		name  string
		field string
		raw   any
		want  float64
	}{
		{"byte send rate to bits", "NewByteSendRate", 100, 800},
		{"byte receive rate to bits", "NewByteReceiveRate", int64(25), 200},
		{"temperature deci-celsius string", "NewTemperatureCelsius", "215", 21.5},
		{"connection status connected", "NewConnectionStatus", "Connected", 1},
		{"connection status disconnected", "NewConnectionStatus", "Disconnected", 0},
		{"link status up", "NewPhysicalLinkStatus", "Up", 1},
		{"link status down", "NewPhysicalLinkStatus", "Down", 0},
		{"switch state on", "NewSwitchState", "ON", 1},
		{"switch state off", "NewSwitchState", "OFF", 0},
		{"energy wh to kwh", "NewMultimeterEnergy", 1500, 1.5},
		{"power centiwatt to watt", "NewMultimeterPower", uint64(250), 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Convert(tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertPassThrough(t *testing.T) {
	reg := NewConversionRegistry()

	got, err := reg.Convert("NewUptime", int64(4711))
	require.NoError(t, err)
	assert.Equal(t, float64(4711), got)

	got, err = reg.Convert("NewTotalBytesSent", "1048576")
	require.NoError(t, err)
	assert.Equal(t, float64(1048576), got)
}

func TestConvertFailsClosed(t *testing.T) {
	reg := NewConversionRegistry()

	tests := []struct {
		name  string
		field string
		raw   any
	}{
		{"status needs a string", "NewConnectionStatus", 5},
		{"temperature needs a number", "NewTemperatureCelsius", "warm"},
		{"pass-through rejects structs", "NewUptime", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Convert(tt.field, tt.raw)
			require.Error(t, err)

			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr))
			assert.Equal(t, tt.field, convErr.Field)
		})
	}
}
