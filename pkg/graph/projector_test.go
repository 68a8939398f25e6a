package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeWriter struct {
	calls int
	err   error
}

func (f *fakeWriter) ExecuteWrite(context.Context, neo4j.ManagedTransactionWork) (any, error) {
	f.calls++
	return nil, f.err
}

func newTestProjector(w Writer) *Projector {
	return NewProjector(w, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestProjector_DecisionSaved(t *testing.T) {
	tests := []struct {
		name      string
		status    models.MatchDecisionStatus
		wantCalls int
	}{
		{name: "confirmed is projected", status: models.MatchDecisionStatusConfirmed, wantCalls: 1},
		{name: "pending is skipped", status: models.MatchDecisionStatusPending, wantCalls: 0},
		{name: "rejected is skipped", status: models.MatchDecisionStatusRejected, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			err := newTestProjector(w).DecisionSaved(context.Background(), &models.MatchDecision{Status: tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, w.calls)
		})
	}
}

func TestProjector_StatusChanges(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	require.NoError(t, p.DecisionStatusChanged(context.Background(), &models.MatchDecision{Status: models.MatchDecisionStatusConfirmed}))
	require.NoError(t, p.DecisionStatusChanged(context.Background(), &models.MatchDecision{Status: models.MatchDecisionStatusRejected}))
	require.NoError(t, p.DecisionStatusChanged(context.Background(), &models.MatchDecision{Status: models.MatchDecisionStatusPending}))

	assert.Equal(t, 2, w.calls)
}

func TestProjector_WriteErrorReturned(t *testing.T) {
	p := newTestProjector(&fakeWriter{err: errors.New("bolt unavailable")})
	err := p.DecisionSaved(context.Background(), &models.MatchDecision{Status: models.MatchDecisionStatusConfirmed})
	assert.EqualError(t, err, "bolt unavailable")
}

func TestLinkParams(t *testing.T) {
	url := "https://docs.google.com/document/d/abc/edit"
	confirmed := time.Date(2025, 1, 14, 11, 0, 0, 0, time.FixedZone("EST", -5*3600))

	params := linkParams(&models.MatchDecision{
		ID:          "d-1",
		EventID:     "evt-1",
		DocumentID:  "abc",
		URL:         &url,
		Score:       0.97,
		Method:      models.MatchMethodFuzzySearch,
		ConfirmedAt: &confirmed,
	})

	assert.Equal(t, "evt-1", params["event_id"])
	assert.Equal(t, url, params["url"])
	assert.Equal(t, "fuzzy-search", params["method"])
	assert.Equal(t, confirmed.UTC(), params["confirmed_at"])

	bare := linkParams(&models.MatchDecision{EventID: "evt-2"})
	assert.Nil(t, bare["url"])
	assert.Nil(t, bare["confirmed_at"])
}
