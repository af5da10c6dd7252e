package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"h2ala_backend/internal/model"
	"h2ala_backend/internal/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store *repository.MemorySlotStore
	repo  *repository.SnapshotRepository
	clock *testClock
	state *LearnerState
	inbox *Inbox

	identity      *IdentityService
	progress      *ProgressService
	conversations *ConversationService
	messaging     *MessagingService
	library       *LibraryService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemorySlotStore(),
		clock: newTestClock(),
		inbox: NewInbox(),
	}
	f.repo = repository.NewSnapshotRepository(f.store, "test_slot")
	opts = append([]Option{WithClock(f.clock.Now), WithBcryptCost(bcrypt.MinCost)}, opts...)
	f.state = NewLearnerState(f.repo, NewChangeBus(), opts...)
	require.NoError(t, f.state.Init(context.Background()))

	f.identity = NewIdentityService(f.state)
	f.progress = NewProgressService(f.state)
	f.conversations = NewConversationService(f.state)
	f.messaging = NewMessagingService(f.state, f.inbox)
	f.library = NewLibraryService(f.state)
	return f
}

// linearSeed 单个学生，模块按给定掌握度和状态排列
func linearSeed(modules ...model.ModuleStats) func(time.Time) *model.Snapshot {
	return func(now time.Time) *model.Snapshot {
		snap := model.SeedSnapshot(now)
		snap.Students = snap.Students[:1]
		snap.Students[0].Modules = modules
		return snap
	}
}

func mod(id string, mastery int, status model.ModuleStatus) model.ModuleStats {
	return model.ModuleStats{ID: id, Name: id, Mastery: mastery, Status: status}
}
