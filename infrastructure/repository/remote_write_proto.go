package repository

import (
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Sample is one gauge value sent over remote write
type Sample struct {
	Name      string
	Labels    map[string]string
	Value     float64
	Timestamp int64 // milliseconds since epoch
}

// encodeWriteRequest encodes prometheus.WriteRequest{timeseries: [...]}
func encodeWriteRequest(samples []Sample) []byte {
	var b []byte
	for _, s := range samples {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeTimeSeries(s))
	}
	return b
}

// encodeTimeSeries encodes prometheus.TimeSeries. Labels are sorted by name,
// with __name__ first, as the remote write protocol requires.
func encodeTimeSeries(s Sample) []byte {
	names := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		if k == "__name__" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeLabel("__name__", s.Name))
	for _, k := range names {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeLabel(k, s.Labels[k]))
	}

	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeSample(s.Value, s.Timestamp))
	return b
}

func encodeLabel(name, value string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, name)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, value)
	return b
}

func encodeSample(value float64, timestamp int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(value))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(timestamp))
	return b
}
