package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	base := Event{RunID: uuid.New(), TS: time.Now().UTC()}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"run start", func(e *Event) { e.Stage = StageRunStart }, false},
		{"fetch done with class", func(e *Event) {
			e.Stage = StageFetchDone
			e.StatusClass = Status2xx
		}, false},
		{"fetch done without class", func(e *Event) { e.Stage = StageFetchDone }, true},
		{"missing run id", func(e *Event) {
			e.Stage = StageRunStart
			e.RunID = uuid.Nil
		}, true},
		{"missing timestamp", func(e *Event) {
			e.Stage = StageRunStart
			e.TS = time.Time{}
		}, true},
		{"unknown stage", func(e *Event) { e.Stage = "BOGUS" }, true},
		{"negative duration", func(e *Event) {
			e.Stage = StageRunDone
			e.Dur = -time.Second
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			evt := base
			tt.mutate(&evt)
			err := evt.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(200))
	require.Equal(t, Status2xx, ClassifyStatus(204))
	require.Equal(t, Status3xx, ClassifyStatus(301))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status4xx, ClassifyStatus(429))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
	require.Equal(t, StatusOther, ClassifyStatus(999))
}
