package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/models/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.ClassificationResult), args.Error(1)
}

type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) AddRun(ctx context.Context, run *store.Run) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func (m *mockRunStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]store.Run), args.Error(1)
}

func (m *mockRunStore) GetRun(ctx context.Context, id string) (*store.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

// countingClassifier records the peak number of concurrent calls.
type countingClassifier struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *countingClassifier) Classify(_ context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return domain.ClassificationResult{Kind: kind}, nil
}

func result(kind domain.ClassificationKind, ids ...string) domain.ClassificationResult {
	r := domain.ClassificationResult{Kind: kind, Users: []domain.User{}, Scanned: len(ids)}
	for _, id := range ids {
		r.Users = append(r.Users, domain.User{ID: id, UserPrincipalName: id + "@example.com"})
	}
	return r
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(nil, nil, 1)
	assert.Error(t, err)

	r, err := NewRunner(new(mockClassifier), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, r.workers)
}

func TestRunner_RunAll_KeepsOrderAndRecordsRuns(t *testing.T) {
	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, domain.KindDisable).Return(result(domain.KindDisable, "d1"), nil)
	classifier.On("Classify", mock.Anything, domain.KindInactive).Return(result(domain.KindInactive, "i1", "i2"), nil)
	classifier.On("Classify", mock.Anything, domain.KindInvites).Return(result(domain.KindInvites), nil)

	runStore := new(mockRunStore)
	for _, kind := range domain.AllKinds {
		runStore.On("AddRun", mock.Anything, mock.MatchedBy(func(r *store.Run) bool {
			return r.Kind == string(kind)
		})).Return("run-"+string(kind), nil).Once()
	}

	r, err := NewRunner(classifier, runStore, 3)
	require.NoError(t, err)

	results, err := r.RunAll(context.Background(), domain.AllKinds)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, domain.KindDisable, results[0].Kind)
	assert.Equal(t, "run-disable", results[0].RunID)
	assert.Equal(t, domain.KindInactive, results[1].Kind)
	assert.Len(t, results[1].Users, 2)
	assert.Equal(t, domain.KindInvites, results[2].Kind)

	runStore.AssertExpectations(t)
	runStore.AssertCalled(t, "AddRun", mock.Anything, mock.MatchedBy(func(r *store.Run) bool {
		return r.Kind == "inactive" && r.Matched == 2 && len(r.Candidates) == 2 && r.FailureType == "none"
	}))
}

func TestRunner_RunAll_RespectsWorkerLimit(t *testing.T) {
	classifier := &countingClassifier{}
	r, err := NewRunner(classifier, nil, 1)
	require.NoError(t, err)

	kinds := []domain.ClassificationKind{domain.KindDisable, domain.KindInactive, domain.KindInvites, domain.KindInactive}
	results, err := r.RunAll(context.Background(), kinds)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, 1, classifier.peak)
}

func TestRunner_RunAll_PropagatesError(t *testing.T) {
	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, domain.KindDisable).Return(result(domain.KindDisable), nil)
	classifier.On("Classify", mock.Anything, domain.ClassificationKind("purge")).
		Return(domain.ClassificationResult{}, errors.New("unsupported classification kind"))

	r, err := NewRunner(classifier, nil, 2)
	require.NoError(t, err)

	_, err = r.RunAll(context.Background(), []domain.ClassificationKind{domain.KindDisable, "purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to classify purge")
}

func TestRunner_Run_StoreFailureKeepsResult(t *testing.T) {
	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, domain.KindInactive).Return(result(domain.KindInactive, "i1"), nil)

	runStore := new(mockRunStore)
	runStore.On("AddRun", mock.Anything, mock.Anything).Return("", errors.New("database is locked"))

	r, err := NewRunner(classifier, runStore, 1)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), domain.KindInactive)
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Len(t, res.Users, 1)
}
