//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/kafka"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/observability"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/pipeline"
	"github.com/paulmach/orb"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-monthly-summaries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("calfire-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

// publishedMessage holds a message read back from the summary topic.
type publishedMessage struct {
	Key       string
	Value     []byte
	Partition int
	Headers   map[string]string
}

func readMessages(ctx context.Context, t *testing.T, broker string, n int) []publishedMessage {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	out := make([]publishedMessage, 0, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from summary topic")
		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		out = append(out, publishedMessage{
			Key:       string(msg.Key),
			Value:     msg.Value,
			Partition: msg.Partition,
			Headers:   headers,
		})
	}
	return out
}

// TestPublisher_RoundTrip verifies that every summary row arrives once with
// its table and run headers, and that a county-month key maps to one partition.
func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	sep := domain.YearMonth{Year: 2022, Month: time.September}
	oct := domain.YearMonth{Year: 2022, Month: time.October}
	tables := domain.Tables{
		Wildfire: []domain.WildfireSummary{{County: "Placer", Month: sep, IncidentCount: 2, AcresBurned: 150}},
		Rainfall: []domain.RainfallSummary{{County: "Placer", Month: oct, PrecipIn: 1.25}},
		Analysis: []domain.AnalysisRow{
			{County: "Placer", Month: sep, IncidentCount: 2, AcresBurned: 150},
			{County: "Placer", Month: oct, PrecipIn: 1.25},
		},
	}
	run := domain.Run{ID: "run-1", StartedAt: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)}

	pub := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })
	require.NoError(t, pub.Publish(ctx, run, tables))

	msgs := readMessages(ctx, t, broker, 4)

	partitions := map[string]int{}
	tableCounts := map[string]int{}
	for _, m := range msgs {
		assert.Equal(t, "run-1", m.Headers["run_id"])
		assert.Equal(t, "2024-03-01T08:00:00Z", m.Headers["run_started_at"])
		tableCounts[m.Headers["table"]]++
		if p, ok := partitions[m.Key]; ok {
			assert.Equal(t, p, m.Partition, "key %s split across partitions", m.Key)
		}
		partitions[m.Key] = m.Partition
	}
	assert.Equal(t, map[string]int{
		kafka.TableWildfire: 1,
		kafka.TableRainfall: 1,
		kafka.TableAnalysis: 2,
	}, tableCounts)

	for _, m := range msgs {
		if m.Headers["table"] != kafka.TableWildfire {
			continue
		}
		assert.Equal(t, kafka.MessageKey("Placer", sep), m.Key)
		var got domain.WildfireSummary
		require.NoError(t, json.Unmarshal(m.Value, &got))
		assert.Equal(t, tables.Wildfire[0], got)
	}
}

type memorySource struct {
	counties  []domain.County
	incidents []domain.Incident
	stations  []domain.Station
}

func (m memorySource) Incidents() (pipeline.IncidentBatch, error) {
	return pipeline.IncidentBatch{Incidents: m.incidents}, nil
}
func (m memorySource) Counties() ([]domain.County, error)  { return m.counties, nil }
func (m memorySource) Stations() ([]domain.Station, error) { return m.stations, nil }

type staticRainfall map[int][]domain.RawRainfallRow

func (s staticRainfall) FetchReport(_ context.Context, waterYear int) ([]domain.RawRainfallRow, error) {
	return s[waterYear], nil
}

func square(minLon, minLat float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{minLon, minLat}, {minLon, minLat + 1}, {minLon + 1, minLat + 1}, {minLon + 1, minLat}, {minLon, minLat},
	}}}
}

// TestPipelineEndToEnd runs the whole job with the Kafka publisher as a sink
// and checks that the topic carries exactly the tables written to disk.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	src := memorySource{
		counties: []domain.County{
			{Name: "Placer", Geometry: square(-121, 39)},
			{Name: "Sonoma", Geometry: square(-123, 38)},
		},
		incidents: []domain.Incident{
			{Name: "A", Date: time.Date(2022, time.September, 6, 0, 0, 0, 0, time.UTC), AcresBurned: 100, Geo: &domain.Geo{Lon: -120.5, Lat: 39.5}},
			{Name: "B", Date: time.Date(2022, time.August, 2, 0, 0, 0, 0, time.UTC), AcresBurned: 7, Geo: &domain.Geo{Lon: -122.5, Lat: 38.5}},
			{Name: "C", Date: time.Date(2022, time.August, 20, 0, 0, 0, 0, time.UTC), AcresBurned: 3, CountyText: "Sonoma"},
		},
		stations: []domain.Station{{ID: "BLC", Name: "BLUE CANYON", County: "PLACER"}},
	}
	rain := staticRainfall{2022: {
		{StationID: "BLC", StationName: "BLUE CANYON", Values: [12]string{"1.00", "2.00", "3.00", "---", "", "", "", "", "", "0.00", "0.10", "0.20"}},
		{StationID: "SRS", StationName: "SONOMA RIDGE", Values: [12]string{"0.50", "", "", "", "", "", "", "", "", "", "", ""}},
	}}

	pub := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	p := pipeline.New(src, rain, csvio.NewWriter(t.TempDir(), discardLogger()), []pipeline.Sink{pub},
		pipeline.Options{JoinCountyFallback: true}, discardLogger(), observability.NewMetricsForTesting())
	report, err := p.Run(ctx, domain.Run{ID: "e2e", StartedAt: domain.Now()})
	require.NoError(t, err)

	want := len(report.Tables.Wildfire) + len(report.Tables.Rainfall) + len(report.Tables.Analysis)
	require.Positive(t, want)
	msgs := readMessages(ctx, t, broker, want)

	var wildfire []domain.WildfireSummary
	for _, m := range msgs {
		assert.Equal(t, "e2e", m.Headers["run_id"])
		if m.Headers["table"] != kafka.TableWildfire {
			continue
		}
		var row domain.WildfireSummary
		require.NoError(t, json.Unmarshal(m.Value, &row))
		wildfire = append(wildfire, row)
	}
	assert.ElementsMatch(t, report.Tables.Wildfire, wildfire)
	assert.Equal(t, 3, report.Stats.IncidentsJoined)
}
