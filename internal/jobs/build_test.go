package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/github"
	"github.com/sevigo/ci-warden/mocks"
)

type buildJobMocks struct {
	executor *mocks.MockExecutor
	store    *mocks.MockStore
	reporter *mocks.MockStatusReporter
}

func newBuildJob(t *testing.T, reportPending bool) (*BuildJob, buildJobMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := buildJobMocks{
		executor: mocks.NewMockExecutor(ctrl),
		store:    mocks.NewMockStore(ctrl),
		reporter: mocks.NewMockStatusReporter(ctrl),
	}
	return NewBuildJob(m.executor, m.store, m.reporter, reportPending, discardLogger()), m
}

func outcomeFor(req *core.JobRequest, status core.BuildStatus) *core.BuildOutcome {
	now := time.Now()
	return &core.BuildOutcome{
		CommitSHA:   req.CommitSHA,
		RepoOwner:   req.RepoOwner,
		RepoName:    req.RepoName,
		BranchName:  req.BranchName,
		Status:      status,
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
	}
}

func TestBuildJob_SavesBeforeReporting(t *testing.T) {
	job, m := newBuildJob(t, true)
	req := request(1)
	outcome := outcomeFor(req, core.StatusSuccess)

	gomock.InOrder(
		m.reporter.EXPECT().Pending(gomock.Any(), req).Return(nil),
		m.executor.EXPECT().Execute(gomock.Any(), req).Return(outcome),
		m.store.EXPECT().Save(gomock.Any(), outcome).Return(nil),
		m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(nil),
	)

	assert.NoError(t, job.Run(context.Background(), core.NewWorkerTask(req)))
}

func TestBuildJob_FailedBuildIsNotAnError(t *testing.T) {
	job, m := newBuildJob(t, false)
	req := request(2)
	outcome := outcomeFor(req, core.StatusFailed)
	outcome.Err = core.ErrExecution

	m.executor.EXPECT().Execute(gomock.Any(), req).Return(outcome)
	m.store.EXPECT().Save(gomock.Any(), outcome).Return(nil)
	m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(nil)

	assert.NoError(t, job.Run(context.Background(), core.NewWorkerTask(req)))
}

func TestBuildJob_DeliveryFailureKeepsPersistedOutcome(t *testing.T) {
	job, m := newBuildJob(t, true)
	req := request(3)
	outcome := outcomeFor(req, core.StatusSuccess)
	unauthorized := &github.DeliveryError{StatusCode: 401, Attempts: 1, Err: errors.New("Bad credentials")}

	m.reporter.EXPECT().Pending(gomock.Any(), req).Return(unauthorized)
	m.executor.EXPECT().Execute(gomock.Any(), req).Return(outcome)
	m.store.EXPECT().Save(gomock.Any(), outcome).Return(nil).Times(1)
	m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(unauthorized)

	err := job.Run(context.Background(), core.NewWorkerTask(req))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDelivery)
	assert.NotErrorIs(t, err, core.ErrPersistence)
}

func TestBuildJob_SaveFailureStillReports(t *testing.T) {
	job, m := newBuildJob(t, false)
	req := request(4)
	outcome := outcomeFor(req, core.StatusFailed)

	gomock.InOrder(
		m.executor.EXPECT().Execute(gomock.Any(), req).Return(outcome),
		m.store.EXPECT().Save(gomock.Any(), outcome).Return(errors.New("disk full")),
		m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(nil),
	)

	err := job.Run(context.Background(), core.NewWorkerTask(req))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.NotErrorIs(t, err, core.ErrDelivery)
}

func TestBuildJob_BothSinksFail(t *testing.T) {
	job, m := newBuildJob(t, false)
	req := request(5)
	outcome := outcomeFor(req, core.StatusSuccess)

	m.executor.EXPECT().Execute(gomock.Any(), req).Return(outcome)
	m.store.EXPECT().Save(gomock.Any(), outcome).Return(errors.New("disk full"))
	m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(errors.New("network down"))

	err := job.Run(context.Background(), core.NewWorkerTask(req))

	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.ErrorIs(t, err, core.ErrDelivery)
}

func TestBuildJob_FinalizesAfterCancellation(t *testing.T) {
	job, m := newBuildJob(t, false)
	req := request(6)
	outcome := outcomeFor(req, core.StatusFailed)

	ctx, cancel := context.WithCancel(context.Background())
	m.executor.EXPECT().Execute(gomock.Any(), req).DoAndReturn(func(context.Context, *core.JobRequest) *core.BuildOutcome {
		cancel()
		return outcome
	})
	m.store.EXPECT().Save(gomock.Any(), outcome).DoAndReturn(func(ctx context.Context, _ *core.BuildOutcome) error {
		return ctx.Err()
	})
	m.reporter.EXPECT().Report(gomock.Any(), outcome).Return(nil)

	assert.NoError(t, job.Run(ctx, core.NewWorkerTask(req)))
}

func TestBuildJob_NilOutcomeBecomesFailure(t *testing.T) {
	job, m := newBuildJob(t, false)
	req := request(7)

	m.executor.EXPECT().Execute(gomock.Any(), req).Return(nil)
	m.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o *core.BuildOutcome) error {
		assert.Equal(t, core.StatusFailed, o.Status)
		assert.Equal(t, req.CommitSHA, o.CommitSHA)
		assert.ErrorIs(t, o.Err, core.ErrExecution)
		return nil
	})
	m.reporter.EXPECT().Report(gomock.Any(), gomock.Any()).Return(nil)

	assert.NoError(t, job.Run(context.Background(), core.NewWorkerTask(req)))
}
