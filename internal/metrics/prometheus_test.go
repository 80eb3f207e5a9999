package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSetSkipped(t *testing.T) {
	before := testutil.ToFloat64(SetsSkippedTotal.WithLabelValues("bye"))

	RecordSetSkipped("bye")
	RecordSetSkipped("bye")

	assert.Equal(t, before+2, testutil.ToFloat64(SetsSkippedTotal.WithLabelValues("bye")))
}

func TestRecordSync_SuccessStampsLastSync(t *testing.T) {
	RecordSync("refresh", "success", 1.5)

	assert.Greater(t, testutil.ToFloat64(LastSuccessfulSync), 0.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(SyncOperationsTotal.WithLabelValues("refresh", "success")), 1.0)
}

func TestRecordSnapshot(t *testing.T) {
	RecordSnapshot(3, 41)

	assert.Equal(t, 3.0, testutil.ToFloat64(TournamentsIngested))
	assert.Equal(t, 41.0, testutil.ToFloat64(SetsIngested))
}
