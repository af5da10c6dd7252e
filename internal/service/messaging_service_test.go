package service

import (
	"context"
	"testing"
	"time"

	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterventionsFollowMasteryThresholds(t *testing.T) {
	f := newFixture(t)

	flags, err := f.messaging.Interventions()
	require.NoError(t, err)

	byID := map[string]model.InterventionFlag{}
	for _, fl := range flags {
		byID[fl.StudentID] = fl
	}
	// s1 65 未标记；s2 45 高危；s3 78 未标记；s4 62 但被标记为有风险
	require.Len(t, flags, 2)
	assert.Equal(t, model.SeverityHigh, byID["s2"].Severity)
	assert.Equal(t, "Critically Low Mastery", byID["s2"].Reason)
	assert.Equal(t, "flag_s2", byID["s2"].ID)
	assert.Equal(t, model.SeverityMedium, byID["s4"].Severity)
	assert.Equal(t, "Negative Sentiment Trend", byID["s4"].Reason)
	assert.Equal(t, f.clock.Now(), byID["s4"].Timestamp)

	require.NoError(t, f.identity.SetAtRisk(context.Background(), "s3", true))
	flags, _ = f.messaging.Interventions()
	assert.Len(t, flags, 3)
}

func TestStudentMessagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messaging.SendTeacherMessage(ctx, "t1", "s1", "first")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.messaging.SendTeacherMessage(ctx, "t1", "s2", "other student")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	last, err := f.messaging.SendTeacherMessage(ctx, "unknown-teacher", "s1", "second")
	require.NoError(t, err)
	assert.Equal(t, "Mr. Anderson", last.TeacherName)

	msgs, err := f.messaging.StudentMessages("s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "first", msgs[1].Content)

	require.NoError(t, f.messaging.MarkMessageRead(ctx, "s1", last.ID))
	msgs, _ = f.messaging.StudentMessages("s1")
	assert.True(t, msgs[0].Read)

	assert.ErrorIs(t, f.messaging.MarkMessageRead(ctx, "s2", last.ID), util.ErrMessageNotFound)
}

func TestInboxPushesNewMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, cancel, err := f.messaging.SubscribeInbox("s1")
	require.NoError(t, err)
	other, cancelOther, err := f.messaging.SubscribeInbox("s2")
	require.NoError(t, err)
	defer cancelOther()

	sent, err := f.messaging.SendTeacherMessage(ctx, "t1", "s1", "Check module 2")
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("message was not pushed")
	}
	select {
	case <-other:
		t.Fatal("message leaked to another student")
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, f.inbox.Subscribers("s1"))

	_, _, err = f.messaging.SubscribeInbox("ghost")
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
}

type recordingRelay struct {
	msgs []model.TeacherMessage
}

func (r *recordingRelay) PublishInbox(ctx context.Context, msg model.TeacherMessage) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestInboxForwardsToRelay(t *testing.T) {
	f := newFixture(t)
	relay := &recordingRelay{}
	f.inbox.SetRelay(relay)

	_, err := f.messaging.SendTeacherMessage(context.Background(), "t1", "s3", "hello")
	require.NoError(t, err)
	require.Len(t, relay.msgs, 1)
	assert.Equal(t, "s3", relay.msgs[0].StudentID)
}

func TestSaveResourceDeduplicatesByURI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.library.SaveResource(ctx, "s1", model.StudyResource{Title: "Video", URI: "https://youtube.com/watch?v=1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.ResourceVideo, first.Type)

	f.clock.Advance(time.Hour)
	again, created, err := f.library.SaveResource(ctx, "s1", model.StudyResource{Title: "Same video", URI: "https://youtube.com/watch?v=1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, again)

	res, err := f.library.Resources("s1")
	require.NoError(t, err)
	assert.Len(t, res, 1)

	require.NoError(t, f.library.RemoveResource(ctx, "s1", first.ID))
	assert.ErrorIs(t, f.library.RemoveResource(ctx, "s1", first.ID), util.ErrResourceNotFound)
}

func TestLogsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.library.AddLog(ctx, model.AIDecisionLog{StudentID: "s1", StudentInput: "q", AIOutput: "a", Reasoning: "r"})
	require.NoError(t, err)
	assert.Regexp(t, `^log_`, added.ID)

	logs, err := f.library.Logs()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, added.ID, logs[0].ID)
	assert.Equal(t, "l1", logs[1].ID)
}

func TestLiveSessionsPrepend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.library.SaveLiveSession(ctx, "s1", model.LiveSession{})
	require.NoError(t, err)
	b, err := f.library.SaveLiveSession(ctx, "s1", model.LiveSession{ID: "live_custom"})
	require.NoError(t, err)

	sessions, err := f.library.LiveSessions("s1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, b.ID, sessions[0].ID)
	assert.Equal(t, a.ID, sessions[1].ID)
	assert.NotNil(t, sessions[1].Transcript)
}
