package correlation

import (
	"testing"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deletedAt(v int64) *time.Time {
	t := ms(v)
	return &t
}

func TestComputeLifespanOrderIndependent(t *testing.T) {
	active := model.AlarmStateDoc{ID: "d1", AlarmID: "a1", ReductionKey: "rk", FirstEventTime: ms(5000)}
	deleted := model.AlarmStateDoc{ID: "d2", AlarmID: "a1", ReductionKey: "rk", FirstEventTime: ms(5000), DeletionTime: deletedAt(9000)}
	want := model.Lifespan{Start: ms(5000), End: ms(9000)}

	for _, docs := range [][]model.AlarmStateDoc{{active, deleted}, {deleted, active}} {
		span, err := ComputeLifespan(docs, ms(0), ms(100000))
		require.NoError(t, err)
		assert.Equal(t, want, span)
	}
}

func TestComputeLifespanDefaults(t *testing.T) {
	rangeStart, rangeEnd := ms(1000), ms(100000)

	t.Run("all-deleted", func(t *testing.T) {
		docs := []model.AlarmStateDoc{{ReductionKey: "rk", FirstEventTime: ms(5000), DeletionTime: deletedAt(9000)}}
		span, err := ComputeLifespan(docs, rangeStart, rangeEnd)
		require.NoError(t, err)
		assert.Equal(t, rangeStart, span.Start)
		assert.True(t, span.StartDefaulted)
		assert.Equal(t, ms(9000), span.End)
		assert.False(t, span.EndDefaulted)
	})

	t.Run("still-active", func(t *testing.T) {
		docs := []model.AlarmStateDoc{{ReductionKey: "rk", FirstEventTime: ms(5000)}}
		span, err := ComputeLifespan(docs, rangeStart, rangeEnd)
		require.NoError(t, err)
		assert.Equal(t, ms(5000), span.Start)
		assert.Equal(t, rangeEnd, span.End)
		assert.True(t, span.EndDefaulted)
	})

	t.Run("no-documents", func(t *testing.T) {
		span, err := ComputeLifespan(nil, rangeStart, rangeEnd)
		assert.ErrorIs(t, err, ErrMissingStateDocuments)
		assert.Equal(t, model.Lifespan{Start: rangeStart, End: rangeEnd, StartDefaulted: true, EndDefaulted: true}, span)
	})
}

func TestComputeLifespanPicksEarliestActiveAndLatestDeletion(t *testing.T) {
	docs := []model.AlarmStateDoc{
		{ReductionKey: "rk", FirstEventTime: ms(7000)},
		{ReductionKey: "rk", FirstEventTime: ms(6000)},
		{ReductionKey: "rk", FirstEventTime: ms(6000), DeletionTime: deletedAt(9000)},
		{ReductionKey: "rk", FirstEventTime: ms(6000), DeletionTime: deletedAt(12000)},
	}
	span, err := ComputeLifespan(docs, ms(0), ms(100000))
	require.NoError(t, err)
	assert.Equal(t, ms(6000), span.Start)
	assert.Equal(t, ms(12000), span.End)
}

func TestComputeLifespanAmbiguous(t *testing.T) {
	tests := []struct {
		name string
		docs []model.AlarmStateDoc
	}{
		{
			name: "mixed-reduction-keys",
			docs: []model.AlarmStateDoc{
				{ReductionKey: "rk-1", FirstEventTime: ms(5000)},
				{ReductionKey: "rk-2", FirstEventTime: ms(5000)},
			},
		},
		{
			name: "two-active-alarms",
			docs: []model.AlarmStateDoc{
				{AlarmID: "a1", ReductionKey: "rk", FirstEventTime: ms(5000)},
				{AlarmID: "a2", ReductionKey: "rk", FirstEventTime: ms(6000)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeLifespan(tt.docs, ms(0), ms(100000))
			assert.ErrorIs(t, err, ErrAmbiguousReductionKey)
		})
	}
}

func TestBuildAlarmAttributesEventsWithinLifespan(t *testing.T) {
	docs := []model.AlarmStateDoc{
		{ReductionKey: "rk", FirstEventTime: ms(5000)},
		{ReductionKey: "rk", FirstEventTime: ms(5000), DeletionTime: deletedAt(9000)},
	}
	events := []model.Event{
		{ID: "before", ReductionKey: "rk", Timestamp: ms(4000)},
		{ID: "member", ReductionKey: "rk", Timestamp: ms(5000)},
		{ID: "clear", ReductionKey: "rk-clear", ClearKey: "rk", Timestamp: ms(9000)},
		{ID: "other", ReductionKey: "rk-other", Timestamp: ms(6000)},
		{ID: "after", ReductionKey: "rk", Timestamp: ms(9001)},
	}

	alarm, err := BuildAlarm("rk", docs, events, ms(0), ms(100000))
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, alarm.EventIDs)
	assert.Equal(t, []string{"clear"}, alarm.ClearEventIDs)
	assert.Equal(t, 2, alarm.StateDocuments)
}

func TestBuildAlarmMissingDocumentsUsesRange(t *testing.T) {
	events := []model.Event{{ID: "e1", ReductionKey: "rk", Timestamp: ms(50000)}}

	alarm, err := BuildAlarm("rk", nil, events, ms(0), ms(100000))
	assert.ErrorIs(t, err, ErrMissingStateDocuments)
	assert.Equal(t, []string{"e1"}, alarm.EventIDs)
	assert.Zero(t, alarm.StateDocuments)
	assert.True(t, alarm.Lifespan.StartDefaulted)
}
