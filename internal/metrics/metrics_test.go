package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"TourRoute-App/internal/domain/model"
)

func TestResultLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("wrap: %w", model.ErrInvalidIndex), "invalid"},
		{model.ErrInvalidCoordinates, "invalid"},
		{fmt.Errorf("stop: %w", model.ErrNotFound), "not_found"},
		{&model.PublishBlockedError{Issues: []string{"Tour has no stops"}}, "blocked"},
		{model.NewPersistenceError("persist order", fmt.Errorf("timeout")), "persistence_failure"},
		{fmt.Errorf("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResultLabel(tt.err))
	}
}

func TestRecordCommand(t *testing.T) {
	before := testutil.ToFloat64(PersistenceFailuresTotal.WithLabelValues("persist stop"))
	RecordCommand("set_override", model.NewPersistenceError("persist stop", fmt.Errorf("timeout")))

	assert.Equal(t, before+1, testutil.ToFloat64(PersistenceFailuresTotal.WithLabelValues("persist stop")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(TourCommandsTotal.WithLabelValues("set_override", "persistence_failure")), 1.0)
}
