package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/pkg/logger"
)

type stubJob struct {
	name string
	runs int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return "0 0 * * * *" }
func (j *stubJob) Run(ctx context.Context) error {
	j.runs++
	return nil
}

func TestAddJob_RejectsDuplicate(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&stubJob{name: "sync"}))
	err := s.AddJob(&stubJob{name: "sync"})
	assert.Error(t, err)
}

func TestRunJobNow_RecordsHistory(t *testing.T) {
	s := New(logger.NewNop())
	job := &stubJob{name: "sync"}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobNow("sync")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "sync", result.JobName)
	assert.Equal(t, 1, job.runs)

	history, err := s.GetJobHistory("sync")
	require.NoError(t, err)
	assert.Len(t, history.GetLatestResults(5), 1)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestRunJobNow_UnknownJob(t *testing.T) {
	s := New(logger.NewNop())

	_, err := s.RunJobNow("missing")
	assert.Error(t, err)
}

func TestGetAllJobs_Sorted(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob(&stubJob{name: "price_sync"}))
	require.NoError(t, s.AddJob(&stubJob{name: "signal_update"}))

	assert.Equal(t, []string{"price_sync", "signal_update"}, s.GetAllJobs())
}
