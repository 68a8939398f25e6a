package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

type recorder struct {
	events []string
}

func (r *recorder) dep(name string, upstream ...string) *Func {
	return &Func{
		Name:      name,
		Upstream:  upstream,
		StartFunc: func(context.Context) error { r.events = append(r.events, "start:"+name); return nil },
		StopFunc:  func(context.Context) error { r.events = append(r.events, "stop:"+name); return nil },
	}
}

func newTestStartup(maxAttempts int, waits *[]time.Duration) *Startup {
	s := NewStartup(testLogger, maxAttempts)
	s.wait = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return s
}

func TestStartup_Order(t *testing.T) {
	rec := &recorder{}
	s := newTestStartup(1, nil)
	s.AddDependency(rec.dep("http", "database", "redis"))
	s.AddDependency(rec.dep("redis"))
	s.AddDependency(rec.dep("database"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:redis", "start:http"}, rec.events)
	assert.Equal(t, StatusStarted, s.Status("http"))

	rec.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:http", "stop:redis", "stop:database"}, rec.events)
	assert.Equal(t, StatusStopped, s.Status("database"))
}

func TestStartup_RetriesWithFibonacciBackoff(t *testing.T) {
	var waits []time.Duration
	s := newTestStartup(5, &waits)

	failures := 3
	s.AddDependency(&Func{Name: "database", StartFunc: func(context.Context) error {
		if failures > 0 {
			failures--
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []time.Duration{time.Second, time.Second, 2 * time.Second}, waits)
}

func TestStartup_GivesUp(t *testing.T) {
	s := newTestStartup(2, nil)
	s.AddDependency(&Func{Name: "kafka", StartFunc: func(context.Context) error { return errors.New("no brokers") }})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "no brokers")
	assert.Equal(t, StatusFailed, s.Status("kafka"))
}

func TestStartup_DoesNotRestartStartedDependencies(t *testing.T) {
	s := newTestStartup(3, nil)

	dbStarts := 0
	s.AddDependency(&Func{Name: "database", StartFunc: func(context.Context) error { dbStarts++; return nil }})
	graphFailures := 1
	s.AddDependency(&Func{Name: "graph", StartFunc: func(context.Context) error {
		if graphFailures > 0 {
			graphFailures--
			return errors.New("unavailable")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, dbStarts)
}

func TestStartup_InvalidGraph(t *testing.T) {
	tests := []struct {
		name string
		deps []*Func
		want string
	}{
		{
			name: "unknown upstream",
			deps: []*Func{{Name: "http", Upstream: []string{"database"}}},
			want: `unknown startup dependency "database"`,
		},
		{
			name: "cycle",
			deps: []*Func{{Name: "a", Upstream: []string{"b"}}, {Name: "b", Upstream: []string{"a"}}},
			want: "startup dependency cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStartup(1, nil)
			for _, dep := range tt.deps {
				s.AddDependency(dep)
			}
			err := s.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStartup_StopContinuesAfterError(t *testing.T) {
	rec := &recorder{}
	s := newTestStartup(1, nil)
	s.AddDependency(rec.dep("database"))
	s.AddDependency(&Func{Name: "http", Upstream: []string{"database"}, StopFunc: func(context.Context) error {
		return errors.New("shutdown timeout")
	}})

	require.NoError(t, s.Start(context.Background()))
	rec.events = nil

	err := s.Stop(context.Background())
	assert.EqualError(t, err, "shutdown timeout")
	assert.Equal(t, []string{"stop:database"}, rec.events)
}

func TestStartup_CancelledWait(t *testing.T) {
	s := NewStartup(testLogger, 3)
	s.unit = time.Hour
	s.AddDependency(&Func{Name: "redis", StartFunc: func(context.Context) error { return errors.New("down") }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}
