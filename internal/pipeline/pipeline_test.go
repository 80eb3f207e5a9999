package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smashrank/internal/models"
	"smashrank/internal/ranking"
	"smashrank/internal/snapshot"
	"smashrank/internal/trueskill"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type staticSource struct {
	snap *models.Snapshot
	err  error
	runs int
}

func (s *staticSource) Run(context.Context) (*models.Snapshot, error) {
	s.runs++
	return s.snap, s.err
}

func slot(entrant, player string, games float64) models.Slot {
	return models.Slot{Standing: &models.Standing{
		Entrant: models.Entrant{
			ID:           models.ID(entrant),
			Participants: []models.Participant{{Player: models.Player{ID: models.ID(player), GamerTag: player}}},
		},
		Stats: &models.StandingStats{Score: &models.Score{Value: &games}},
	}}
}

func twoMatchSnapshot() *models.Snapshot {
	snap := models.NewSnapshot()
	t1 := testNow.Add(-48 * time.Hour).Unix()
	t2 := testNow.Add(-24 * time.Hour).Unix()
	ea, eb := models.ID("ea"), models.ID("eb")

	snap.Sets["s1"] = models.Set{ID: "s1", CompletedAt: &t1, WinnerID: &ea, Slots: []models.Slot{slot("ea", "A", 2), slot("eb", "B", 0)}}
	snap.Sets["s2"] = models.Set{ID: "s2", CompletedAt: &t2, WinnerID: &eb, Slots: []models.Slot{slot("ea", "A", 1), slot("eb", "B", 2)}}
	snap.Sets["s3"] = models.Set{ID: "s3", Slots: []models.Slot{slot("ea", "A", 0), slot("ec", "C", 0)}}
	return snap
}

func newPipeline(t *testing.T, source Source) (*Pipeline, *snapshot.FileStore) {
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "snap.json"))
	p := New(source, store, trueskill.DefaultEnv(),
		ranking.WithClock(func() time.Time { return testNow }),
		ranking.WithLocation(time.UTC),
	)
	return p, store
}

func TestPipeline_Refresh(t *testing.T) {
	source := &staticSource{snap: twoMatchSnapshot()}
	p, _ := newPipeline(t, source)

	result, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, source.runs)
	assert.Equal(t, 2, result.Summary.Rated)
	assert.Equal(t, 1, result.Summary.Skipped[ranking.SkipNotCompleted])
	assert.Equal(t, 2, result.Players)
	require.Len(t, result.Rows, 2)
	for _, row := range result.Rows {
		assert.Equal(t, 2, row.Sets)
		assert.Equal(t, 1, row.Wins)
	}
	assert.LessOrEqual(t, result.Rows[0].Exposure, result.Rows[1].Exposure)
}

func TestPipeline_RateReadsStoredSnapshot(t *testing.T) {
	p, store := newPipeline(t, nil)
	require.NoError(t, store.Save(context.Background(), twoMatchSnapshot()))

	result, err := p.Rate(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}

func TestPipeline_RateWithoutSnapshot(t *testing.T) {
	p, _ := newPipeline(t, nil)

	_, err := p.Rate(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestPipeline_FailedIngestWritesNothing(t *testing.T) {
	source := &staticSource{err: errors.New("retries exhausted")}
	p, store := newPipeline(t, source)

	_, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestPipeline_IngestRequiresSource(t *testing.T) {
	p, _ := newPipeline(t, nil)

	_, err := p.Ingest(context.Background())
	assert.Error(t, err)
}
