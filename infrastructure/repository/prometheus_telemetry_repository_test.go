package repository

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// decodeWriteRequest is the inverse of encodeWriteRequest for assertions
func decodeWriteRequest(t *testing.T, b []byte) []Sample {
	t.Helper()
	var out []Sample
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.True(t, n > 0)
		b = b[n:]
		require.Equal(t, protowire.Number(1), num)
		require.Equal(t, protowire.BytesType, typ)
		ts, n := protowire.ConsumeBytes(b)
		require.True(t, n > 0)
		b = b[n:]
		out = append(out, decodeTimeSeries(t, ts))
	}
	return out
}

func decodeTimeSeries(t *testing.T, b []byte) Sample {
	s := Sample{Labels: map[string]string{}}
	var order []string
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		b = b[n:]
		field, n := protowire.ConsumeBytes(b)
		b = b[n:]
		switch num {
		case 1:
			name, value := decodeLabel(field)
			order = append(order, name)
			if name == "__name__" {
				s.Name = value
			} else {
				s.Labels[name] = value
			}
		case 2:
			_, _, n := protowire.ConsumeTag(field)
			field = field[n:]
			bits, n := protowire.ConsumeFixed64(field)
			field = field[n:]
			s.Value = math.Float64frombits(bits)
			_, _, n = protowire.ConsumeTag(field)
			field = field[n:]
			ts, _ := protowire.ConsumeVarint(field)
			s.Timestamp = int64(ts)
		}
	}
	require.NotEmpty(t, order)
	assert.Equal(t, "__name__", order[0])
	assert.IsIncreasing(t, order[1:])
	return s
}

func decodeLabel(b []byte) (string, string) {
	var name, value string
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		b = b[n:]
		v, n := protowire.ConsumeString(b)
		b = b[n:]
		if num == 1 {
			name = v
		} else {
			value = v
		}
	}
	return name, value
}

func TestNewPrometheusTelemetryRepository(t *testing.T) {
	_, err := NewPrometheusTelemetryRepository(nil)
	assert.Error(t, err)

	_, err = NewPrometheusTelemetryRepository(&config.PrometheusConfig{})
	assert.ErrorContains(t, err, "remote write url is empty")

	repo, err := NewPrometheusTelemetryRepository(&config.PrometheusConfig{RemoteWriteURL: "http://localhost:9090/api/v1/write"})
	require.NoError(t, err)
	hostname, herr := os.Hostname()
	if herr != nil {
		hostname = "unknown"
	}
	assert.Equal(t, hostname, repo.hostLabel)
	assert.Equal(t, "prometheus", repo.Name())
}

func TestPrometheusTelemetryRepository_RecordCycle(t *testing.T) {
	var (
		mu      sync.Mutex
		samples []Sample
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		data, err := snappy.Decode(nil, body)
		if err != nil {
			t.Errorf("snappy decode: %v", err)
		}
		mu.Lock()
		samples = decodeWriteRequest(t, data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	repo, err := NewPrometheusTelemetryRepository(&config.PrometheusConfig{
		RemoteWriteURL: server.URL,
		HostLabel:      "build-agent-7",
		TimeoutSec:     5,
	})
	require.NoError(t, err)

	finished := time.Date(2024, 3, 1, 3, 12, 0, 0, time.UTC)
	record := &entity.CycleRecord{
		StartedAt:  finished.Add(-90 * time.Second),
		FinishedAt: finished,
		Result:     entity.CycleResultVetoed,
		Outcome:    entity.DialogOutcomeTimeout,
	}
	err = repo.RecordCycle(context.Background(), record, repository.TimezoneInfo{Name: "Asia/Tokyo"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, samples, len(entity.CycleResults)+1)

	results := map[string]float64{}
	for _, s := range samples[:len(entity.CycleResults)] {
		assert.Equal(t, metricCycleResult, s.Name)
		assert.Equal(t, "build-agent-7", s.Labels["host"])
		assert.Equal(t, "Asia/Tokyo", s.Labels["timezone"])
		assert.Equal(t, finished.UnixMilli(), s.Timestamp)
		results[s.Labels["result"]] = s.Value
	}
	assert.Equal(t, 1.0, results["vetoed"])
	assert.Equal(t, 0.0, results["restarting"])

	duration := samples[len(samples)-1]
	assert.Equal(t, metricCycleDuration, duration.Name)
	assert.Equal(t, 90.0, duration.Value)
	assert.Equal(t, "timeout", duration.Labels["outcome"])
}

func TestPrometheusTelemetryRepository_SendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	repo, err := NewPrometheusTelemetryRepository(&config.PrometheusConfig{RemoteWriteURL: server.URL, TimeoutSec: 5})
	require.NoError(t, err)

	err = repo.RecordCycle(context.Background(), &entity.CycleRecord{Result: entity.CycleResultNoAction}, repository.TimezoneInfo{})
	var telemetryErr *repository.TelemetryRepositoryError
	require.ErrorAs(t, err, &telemetryErr)
	assert.Equal(t, "send", telemetryErr.Operation)
}
