package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/bank-portal/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	n     int
	err   error
	calls []time.Time
}

func (f *fakeExpirer) ExpireCards(_ context.Context, now time.Time) (int, error) {
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func newTestScheduler(cards CardExpirer) (*Scheduler, *metrics.Metrics) {
	logger, _ := test.NewNullLogger()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	s := New(cards, logger, m)
	s.now = func() time.Time { return time.Date(2026, time.July, 1, 3, 0, 0, 0, time.UTC) }
	return s, m
}

func TestSweepExpiredCards(t *testing.T) {
	cards := &fakeExpirer{n: 3}
	s, m := newTestScheduler(cards)

	n, err := s.SweepExpiredCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, cards.calls, 1)
	assert.Equal(t, time.July, cards.calls[0].Month())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CardExpirySweeps.WithLabelValues("ok")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.CardsExpired))
}

func TestSweepFailureIsCounted(t *testing.T) {
	s, m := newTestScheduler(&fakeExpirer{err: errors.New("boom")})

	_, err := s.SweepExpiredCards(context.Background())
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CardExpirySweeps.WithLabelValues("error")))
}

func TestScheduleCardExpiryRejectsBadExpression(t *testing.T) {
	s, _ := newTestScheduler(&fakeExpirer{})
	assert.Error(t, s.ScheduleCardExpiry("every day"))
	assert.NoError(t, s.ScheduleCardExpiry("0 3 * * *"))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
