package fritz

import "go.uber.org/zap"

// ServiceAction identifies one remote operation plus the optional
// enumeration and instancing metadata. Identity for filtering purposes
// is the (Service, Action) pair.
type ServiceAction struct {
	Service string
	Action  string
	// IndexField, when set, makes the action indexed: it is invoked
	// repeatedly with this parameter counting up from 0 until the device
	// returns an empty reading set.
	IndexField string
	// InstanceField names the reading whose value becomes part of the
	// metric instance identifier.
	InstanceField string
	// InstancePrefix is prepended to the instance field value.
	InstancePrefix string
}

// Key returns the identity used against a connection's advertised set.
func (a ServiceAction) Key() ActionKey {
	return ActionKey{Service: a.Service, Action: a.Action}
}

// ValueSpec describes how one raw output becomes a metric.
type ValueSpec struct {
	Suffix string // metric instance suffix, e.g. "sendrate"
	Type   string // semantic type, e.g. "bitrate"
}

// Output binds a raw output field name to its value spec. Outputs are
// kept as an ordered slice so iteration is deterministic.
type Output struct {
	Field string
	Value ValueSpec
}

// SchemaEntry is one action together with the outputs of interest.
type SchemaEntry struct {
	Action  ServiceAction
	Outputs []Output
}

// Schema is an ordered sequence of entries. Schemas are immutable after
// construction; Filter derives a subset instead of mutating in place, so
// several devices can share the built-in tables safely.
type Schema []SchemaEntry

// Filter returns the entries whose action is present in the advertised
// set, preserving order. Each removal is logged for diagnosability. An
// empty result is valid.
func (s Schema) Filter(advertised map[ActionKey]struct{}, log *zap.Logger) Schema {
	filtered := make(Schema, 0, len(s))
	for _, entry := range s {
		if _, ok := advertised[entry.Action.Key()]; !ok {
			log.Info("skipping unsupported service action",
				zap.String("service", entry.Action.Service),
				zap.String("action", entry.Action.Action))
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

// DefaultSchema lists the readings available without credentials.
func DefaultSchema() Schema {
	return Schema{
		{
			Action: ServiceAction{Service: "WANIPConnection:1", Action: "GetStatusInfo"},
			Outputs: []Output{
				{Field: "NewConnectionStatus", Value: ValueSpec{Suffix: "constatus", Type: "gauge"}},
				{Field: "NewUptime", Value: ValueSpec{Suffix: "uptime", Type: "uptime"}},
			},
		},
		{
			Action: ServiceAction{Service: "WANCommonInterfaceConfig:1", Action: "GetCommonLinkProperties"},
			Outputs: []Output{
				{Field: "NewPhysicalLinkStatus", Value: ValueSpec{Suffix: "dslstatus", Type: "gauge"}},
				{Field: "NewLayer1DownstreamMaxBitRate", Value: ValueSpec{Suffix: "downstreammax", Type: "bitrate"}},
				{Field: "NewLayer1UpstreamMaxBitRate", Value: ValueSpec{Suffix: "upstreammax", Type: "bitrate"}},
			},
		},
		{
			Action: ServiceAction{Service: "WANCommonInterfaceConfig:1", Action: "GetAddonInfos"},
			Outputs: []Output{
				{Field: "NewByteSendRate", Value: ValueSpec{Suffix: "sendrate", Type: "bitrate"}},
				{Field: "NewByteReceiveRate", Value: ValueSpec{Suffix: "receiverate", Type: "bitrate"}},
				{Field: "NewTotalBytesSent", Value: ValueSpec{Suffix: "totalbytessent", Type: "bytes"}},
				{Field: "NewTotalBytesReceived", Value: ValueSpec{Suffix: "totalbytesreceived", Type: "bytes"}},
			},
		},
	}
}

// AuthSchema lists the readings that require a password.
func AuthSchema() Schema {
	return Schema{
		{
			Action: ServiceAction{Service: "LANEthernetInterfaceConfig:1", Action: "GetStatistics"},
			Outputs: []Output{
				{Field: "NewBytesSent", Value: ValueSpec{Suffix: "lan_totalbytessent", Type: "bytes"}},
				{Field: "NewBytesReceived", Value: ValueSpec{Suffix: "lan_totalbytesreceived", Type: "bytes"}},
			},
		},
		{
			Action: ServiceAction{
				Service:        "X_AVM-DE_Homeauto:1",
				Action:         "GetGenericDeviceInfos",
				IndexField:     "NewIndex",
				InstanceField:  "NewIndex",
				InstancePrefix: "dect",
			},
			Outputs: []Output{
				{Field: "NewMultimeterPower", Value: ValueSpec{Suffix: "power", Type: "power"}},
				{Field: "NewMultimeterEnergy", Value: ValueSpec{Suffix: "energy", Type: "power"}},
				{Field: "NewTemperatureCelsius", Value: ValueSpec{Suffix: "temperature", Type: "temperature"}},
				{Field: "NewSwitchState", Value: ValueSpec{Suffix: "switchstate", Type: "gauge"}},
			},
		},
		{
			Action: ServiceAction{Service: "DeviceInfo:1", Action: "GetInfo"},
			Outputs: []Output{
				{Field: "NewUpTime", Value: ValueSpec{Suffix: "boxuptime", Type: "uptime"}},
			},
		},
	}
}
