package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/pkg/decision"
	"maestro/pkg/proto"
	"maestro/pkg/soul"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSnapshot(id string, status proto.SessionStatus) *Snapshot {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Snapshot{
		ID:           id,
		Status:       status,
		Phase:        proto.PhaseInterviewing,
		Brief:        "a landing page for a bakery",
		CreatedAt:    now,
		LastActivity: now,
	}
}

func TestSaveAndLoad(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot("s1", proto.SessionActive)
	snap.Soul = &soul.ProjectSoul{
		Metadata: soul.ProjectMetadata{ProjectType: "landing_page", Goal: "sell bread"},
	}
	snap.Decision = &decision.Decision{
		ID:         "d1",
		Mode:       proto.ModeDesignFrontend,
		Confidence: 0.8,
	}
	require.NoError(t, st.Save(ctx, snap))

	got, err := st.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, proto.SessionActive, got.Status)
	assert.Equal(t, proto.PhaseInterviewing, got.Phase)
	assert.Equal(t, snap.Brief, got.Brief)
	require.NotNil(t, got.Soul)
	assert.Equal(t, "landing_page", got.Soul.Metadata.ProjectType)
	require.NotNil(t, got.Decision)
	assert.Equal(t, proto.ModeDesignFrontend, got.Decision.Mode)
}

func TestLoadMissing(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSaveWithoutSoulOrDecision(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sampleSnapshot("s1", proto.SessionActive)))

	got, err := st.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got.Soul)
	assert.Nil(t, got.Decision)
}

func TestUpsertOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot("s1", proto.SessionActive)
	require.NoError(t, st.Save(ctx, snap))

	snap.Status = proto.SessionComplete
	snap.LastActivity = snap.LastActivity.Add(time.Minute)
	require.NoError(t, st.Save(ctx, snap))

	got, err := st.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, proto.SessionComplete, got.Status)
}

func TestListOrdersByActivity(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	older := sampleSnapshot("old", proto.SessionComplete)
	newer := sampleSnapshot("new", proto.SessionActive)
	newer.LastActivity = newer.LastActivity.Add(time.Hour)
	require.NoError(t, st.Save(ctx, older))
	require.NoError(t, st.Save(ctx, newer))

	snaps, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "new", snaps[0].ID)
	assert.Equal(t, "old", snaps[1].ID)
}

func TestMarkStale(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sampleSnapshot("live", proto.SessionActive)))
	require.NoError(t, st.Save(ctx, sampleSnapshot("deciding", proto.SessionDeciding)))
	require.NoError(t, st.Save(ctx, sampleSnapshot("done", proto.SessionComplete)))

	n, err := st.MarkStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := st.Load(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, proto.SessionExpired, got.Status)

	got, err = st.Load(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, proto.SessionComplete, got.Status)
}
