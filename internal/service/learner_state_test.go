package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"h2ala_backend/internal/model"
	"h2ala_backend/internal/repository"
	"h2ala_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestInitHashesSeedPasswordsBeforeFirstSave(t *testing.T) {
	f := newFixture(t)

	raw, found, err := f.store.Get(context.Background(), "test_slot")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, raw, model.SeedPassword)

	snap, err := f.state.Snapshot()
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(snap.Teachers[0].Password), []byte(model.SeedPassword)))
}

func TestRoundTripThroughFreshInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.conversations.StartConversation(ctx, "s1")
	require.NoError(t, err)
	_, err = f.conversations.AppendMessage(ctx, "s1", conv.ID, model.Message{Role: model.RoleUser, Content: "why?",
		Attachment: &model.Attachment{Type: model.AttachmentAudio, MimeType: "audio/webm", Data: "AAA="}})
	require.NoError(t, err)
	_, _, err = f.library.SaveResource(ctx, "s1", model.StudyResource{Title: "Notes", URI: "https://notes.example/a.pdf"})
	require.NoError(t, err)
	_, err = f.library.SaveLiveSession(ctx, "s2", model.LiveSession{
		Transcript:   []model.TranscriptItem{{Role: model.RoleUser, Text: "hello", Timestamp: f.clock.Now()}},
		CodeSnippets: []model.CodeSnippet{{Language: "go", Code: "package main", Timestamp: f.clock.Now()}},
	})
	require.NoError(t, err)
	_, err = f.messaging.SendTeacherMessage(ctx, "t1", "s2", "See me after class")
	require.NoError(t, err)
	_, err = f.progress.SubmitQuiz(ctx, "s1", "m2", []int{1, 2})
	require.NoError(t, err)

	original, err := f.state.Snapshot()
	require.NoError(t, err)

	fresh := NewLearnerState(f.repo, nil, WithClock(func() time.Time { return f.clock.Now().Add(time.Hour) }))
	require.NoError(t, fresh.Init(ctx))
	restored, err := fresh.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, original, restored)
}

func TestClearedFieldsSurviveRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := ""
	_, err := f.identity.UpdateStudentProfile(ctx, "s1", model.StudentPatch{Bio: &empty})
	require.NoError(t, err)
	_, err = f.identity.UpdateTeacherProfile(ctx, "t1", model.TeacherPatch{Phone: &empty})
	require.NoError(t, err)

	fresh := NewLearnerState(f.repo, nil, WithClock(f.clock.Now), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, fresh.Init(ctx))

	st, err := NewIdentityService(fresh).Student("s1")
	require.NoError(t, err)
	assert.Equal(t, "", st.Bio)
	teacher, err := NewIdentityService(fresh).Teacher("t1")
	require.NoError(t, err)
	assert.Equal(t, "", teacher.Phone)
}

func TestGettersReturnCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, _ := f.conversations.StartConversation(ctx, "s1")

	st, err := f.identity.Student("s1")
	require.NoError(t, err)
	st.Modules[0].Mastery = 1
	st.SentimentTrend[0] = model.SentimentFrustrated
	st.Conversations[0].Messages[0].Content = "tampered"

	list, _ := f.conversations.ListConversations("s1")
	list[0].Title = "tampered"
	list[0].Messages = nil

	students, _ := f.identity.Students()
	students[0].Name = "tampered"

	qs, _ := f.progress.GetModuleQuestions("m1")
	qs[0].Options[0] = "tampered"

	again, err := f.identity.Student("s1")
	require.NoError(t, err)
	assert.Equal(t, 85, again.Modules[0].Mastery)
	assert.Equal(t, model.SentimentPositive, again.SentimentTrend[0])
	assert.Equal(t, "Alice Chen", again.Name)

	got, _ := f.conversations.GetConversation("s1", conv.ID)
	assert.Equal(t, util.DefaultChatTitle, got.Title)
	assert.Equal(t, util.WelcomeMessage, got.Messages[0].Content)

	qs2, _ := f.progress.GetModuleQuestions("m1")
	assert.Equal(t, "3", qs2[0].Options[0])
}

func TestPublicViewsHideCredentials(t *testing.T) {
	f := newFixture(t)
	st, _ := f.identity.Student("s1")
	assert.Empty(t, st.Password)
	tc, _ := f.identity.Teacher("t1")
	assert.Empty(t, tc.Password)
}

func TestMutationNotifiesAfterPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var persisted []bool
	unsubscribe := f.state.Bus().Subscribe(func() {
		raw, _, _ := f.store.Get(ctx, "test_slot")
		persisted = append(persisted, strings.Contains(raw, "Dr. Who"))
	})
	name := "Dr. Who"
	_, err := f.identity.UpdateStudentProfile(ctx, "s3", model.StudentPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, persisted)

	unsubscribe()
	unsubscribe()
	_, err = f.identity.UpdateStudentProfile(ctx, "s3", model.StudentPatch{Name: &name})
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestRejectedMutationDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.state.Bus().Subscribe(func() { calls++ })

	_, err := f.conversations.CreateConversation(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
	assert.Zero(t, calls)
}

func TestInitFallsBackToSeedOnCorruptBlob(t *testing.T) {
	store := repository.NewMemorySlotStore()
	require.NoError(t, store.Set(context.Background(), "k", "{not json"))
	state := NewLearnerState(repository.NewSnapshotRepository(store, "k"), nil,
		WithClock(newTestClock().Now), WithBcryptCost(bcrypt.MinCost))

	require.NoError(t, state.Init(context.Background()))
	snap, _ := state.Snapshot()
	assert.Len(t, snap.Students, 4)

	raw, _, _ := store.Get(context.Background(), "k")
	assert.Contains(t, raw, `"schemaVersion":1`)
}

func TestInitFallsBackToSeedOnMalformedVersion(t *testing.T) {
	store := repository.NewMemorySlotStore()
	require.NoError(t, store.Set(context.Background(), "k", `{"schemaVersion":"1","students":[]}`))
	state := NewLearnerState(repository.NewSnapshotRepository(store, "k"), nil,
		WithClock(newTestClock().Now), WithBcryptCost(bcrypt.MinCost))

	require.NoError(t, state.Init(context.Background()))
	snap, _ := state.Snapshot()
	assert.Len(t, snap.Students, 4)
}

func TestInitRejectsNewerSchema(t *testing.T) {
	store := repository.NewMemorySlotStore()
	require.NoError(t, store.Set(context.Background(), "k", `{"schemaVersion":7}`))
	state := NewLearnerState(repository.NewSnapshotRepository(store, "k"), nil)

	err := state.Init(context.Background())
	assert.ErrorIs(t, err, repository.ErrUnsupportedSchema)
}

type failingSlot struct {
	repository.SlotStore
	failSet bool
}

func (s *failingSlot) Set(ctx context.Context, key, value string) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.SlotStore.Set(ctx, key, value)
}

func TestSaveFailureKeepsStateAndFlushRetries(t *testing.T) {
	slot := &failingSlot{SlotStore: repository.NewMemorySlotStore()}
	state := NewLearnerState(repository.NewSnapshotRepository(slot, "k"), nil,
		WithClock(newTestClock().Now), WithBcryptCost(bcrypt.MinCost))
	ctx := context.Background()
	require.NoError(t, state.Init(ctx))

	slot.failSet = true
	_, err := NewConversationService(state).CreateConversation(ctx, "s1", "offline")
	require.NoError(t, err)
	assert.Error(t, state.Flush(ctx))

	slot.failSet = false
	require.NoError(t, state.Flush(ctx))
	raw, _, _ := slot.Get(ctx, "k")
	assert.Contains(t, raw, "offline")
}

func TestCloseFlushesAndRejectsWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.state.Close(ctx))
	require.NoError(t, f.state.Close(ctx))

	_, err := f.conversations.CreateConversation(ctx, "s1", "")
	assert.ErrorIs(t, err, util.ErrStateClosed)

	_, err = f.identity.Student("s1")
	assert.NoError(t, err, "reads stay available after close")
}

func TestChangeBusOrderAndUnsubscribe(t *testing.T) {
	bus := NewChangeBus()
	var order []int
	u1 := bus.Subscribe(func() { order = append(order, 1) })
	bus.Subscribe(func() { order = append(order, 2) })
	bus.Subscribe(func() { order = append(order, 3) })

	bus.Notify()
	u1()
	bus.Notify()

	assert.Equal(t, []int{1, 2, 3, 2, 3}, order)
	assert.Equal(t, 2, bus.Len())
}
