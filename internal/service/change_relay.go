package service

import (
	"context"
	"encoding/json"
	"h2ala_backend/internal/model"
	"h2ala_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	relayKindChange = "change"
	relayKindInbox  = "inbox"
)

type relayEnvelope struct {
	Origin  string                `json:"origin"`
	Kind    string                `json:"kind"`
	Op      string                `json:"op,omitempty"`
	Message *model.TeacherMessage `json:"message,omitempty"`
	At      time.Time             `json:"at"`
}

// ChangeRelay 多实例部署时通过 Redis pub/sub 同步状态变更和收件箱消息。
// 收到其他实例的变更后从共享槽位重新加载，仍是最后写入者生效
type ChangeRelay struct {
	Redis    *redis.Client
	Channel  string
	Instance string
	state    *LearnerState
	inbox    *Inbox
}

func NewChangeRelay(rdb *redis.Client, channel string, state *LearnerState, inbox *Inbox) *ChangeRelay {
	r := &ChangeRelay{
		Redis:    rdb,
		Channel:  channel,
		Instance: uuid.NewString(),
		state:    state,
		inbox:    inbox,
	}
	state.SetPublisher(r)
	inbox.SetRelay(r)
	return r
}

func (r *ChangeRelay) publish(ctx context.Context, env relayEnvelope) error {
	env.Origin = r.Instance
	env.At = time.Now().UTC()
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.Redis.Publish(ctx, r.Channel, payload).Err()
}

func (r *ChangeRelay) PublishChange(ctx context.Context, op string) error {
	return r.publish(ctx, relayEnvelope{Kind: relayKindChange, Op: op})
}

func (r *ChangeRelay) PublishInbox(ctx context.Context, msg model.TeacherMessage) error {
	return r.publish(ctx, relayEnvelope{Kind: relayKindInbox, Message: &msg})
}

// Run 订阅频道直到 ctx 结束
func (r *ChangeRelay) Run(ctx context.Context) error {
	pubsub := r.Redis.Subscribe(ctx, r.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	logger.Log.Info("Change relay subscribed", zap.String("channel", r.Channel), zap.String("instance", r.Instance))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (r *ChangeRelay) handle(ctx context.Context, payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Log.Error("Relay payload unmarshal error", zap.Error(err))
		return
	}
	if env.Origin == r.Instance {
		return
	}

	switch env.Kind {
	case relayKindChange:
		if err := r.state.Reload(ctx); err != nil {
			logger.Log.Error("Reload after remote change failed", zap.String("op", env.Op), zap.Error(err))
		}
	case relayKindInbox:
		if env.Message != nil {
			r.inbox.Deliver(*env.Message)
		}
	}
}
