package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorRegisterAndListActive(t *testing.T) {
	sup := New("/bin/true")

	sup.Register("job-1", &Handle{JobID: "job-1", Phase: PhaseModuleExtraction, status: StatusRunning})

	active := sup.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, StatusRunning, active["job-1"])
}

func TestSupervisorHandle(t *testing.T) {
	sup := New("/bin/true")

	_, ok := sup.Handle("unknown")
	assert.False(t, ok)

	sup.Register("job-1", &Handle{JobID: "job-1", status: StatusRunning})
	h, ok := sup.Handle("job-1")
	require.True(t, ok)
	assert.Equal(t, "job-1", h.JobID)
}

func TestSupervisorForget(t *testing.T) {
	sup := New("/bin/true")
	sup.Register("job-1", &Handle{JobID: "job-1", status: StatusRunning})

	sup.Forget("job-1")

	_, ok := sup.Handle("job-1")
	assert.False(t, ok)
}

func TestSupervisorSpawnSuccess(t *testing.T) {
	sup := New("/bin/true")

	handle, err := sup.Spawn(PhaseModuleExtraction, "job-ok", "protocol-1", nil)
	require.NoError(t, err)
	require.NotZero(t, handle.PID)

	require.Eventually(t, func() bool {
		status, _ := handle.currentStatus()
		return status == StatusExited
	}, time.Second, 10*time.Millisecond)
}

func TestSupervisorSpawnFailure(t *testing.T) {
	sup := New("/bin/false")

	handle, err := sup.Spawn(PhaseSOA, "job-fail", "protocol-1", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, _ := handle.currentStatus()
		return status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	active := sup.ListActive()
	assert.Equal(t, StatusFailed, active["job-fail"])
}

func TestSupervisorSpawnUnknownBinary(t *testing.T) {
	sup := New("/no/such/binary")

	_, err := sup.Spawn(PhaseEligibility, "job-bad", "protocol-1", nil)
	assert.Error(t, err)
}
