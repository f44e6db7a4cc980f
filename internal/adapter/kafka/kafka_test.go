package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var testRun = domain.Run{ID: "run-42", StartedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)}

func TestSerializeToMessage(t *testing.T) {
	row := domain.WildfireSummary{
		County:        "Placer",
		Month:         domain.YearMonth{Year: 2022, Month: time.September},
		IncidentCount: 2,
		AcresBurned:   76800.25,
	}

	msg, err := serializeToMessage(testRun, TableWildfire, row.County, row.Month, row)
	require.NoError(t, err)

	assert.Equal(t, []byte("Placer|2022-09"), msg.Key)
	assert.JSONEq(t, `{"county":"Placer","year_month":"2022-09","incident_count":2,"acres_burned":76800.25}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "table", msg.Headers[0].Key)
	assert.Equal(t, []byte(TableWildfire), msg.Headers[0].Value)
	assert.Equal(t, []byte("run-42"), msg.Headers[1].Value)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[2].Value)
}

func TestPublish(t *testing.T) {
	month := domain.YearMonth{Year: 2020, Month: time.August}
	tables := domain.Tables{
		Wildfire: []domain.WildfireSummary{{County: "Fresno", Month: month, IncidentCount: 1, AcresBurned: 379895}},
		Rainfall: []domain.RainfallSummary{{County: "Fresno", Month: month, PrecipIn: 0}},
		Analysis: []domain.AnalysisRow{{County: "Fresno", Month: month, IncidentCount: 1, AcresBurned: 379895}},
	}
	fw := &fakeWriter{}
	p := &Publisher{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.Publish(context.Background(), testRun, tables))
	require.Len(t, fw.msgs, 3)

	var gotTables []string
	for _, m := range fw.msgs {
		assert.Equal(t, []byte("Fresno|2020-08"), m.Key)
		gotTables = append(gotTables, string(m.Headers[0].Value))
	}
	assert.Equal(t, []string{TableWildfire, TableRainfall, TableAnalysis}, gotTables)
	assert.JSONEq(t, `{"county":"Fresno","year_month":"2020-08","precip_in":0}`, string(fw.msgs[1].Value))

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestPublish_Empty(t *testing.T) {
	fw := &fakeWriter{err: errors.New("must not be called")}
	p := &Publisher{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.Publish(context.Background(), testRun, domain.Tables{}))
}

func TestPublish_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	p := &Publisher{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := p.Publish(context.Background(), testRun, domain.Tables{
		Rainfall: []domain.RainfallSummary{{County: "Kern", Month: domain.YearMonth{Year: 2021, Month: time.January}, PrecipIn: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}
