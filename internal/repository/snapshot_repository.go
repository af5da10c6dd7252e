package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// SnapshotRepository 把整个学习状态读写到一个固定 key 的槽位
type SnapshotRepository struct {
	Slot SlotStore
	Key  string
}

func NewSnapshotRepository(slot SlotStore, key string) *SnapshotRepository {
	return &SnapshotRepository{Slot: slot, Key: key}
}

// Load 读取槽位并浅合并到 seed 上：存储里出现的顶层字段整体覆盖种子数据。
// 槽位为空时 found 为 false，返回 seed 的副本
func (r *SnapshotRepository) Load(ctx context.Context, seed *model.Snapshot) (snap *model.Snapshot, found bool, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "snapshot.load")
	defer span.End()

	raw, found, err := r.Slot.Get(ctx, r.Key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot get failed")
		return nil, false, fmt.Errorf("read slot %q: %w", r.Key, err)
	}

	snap = seed.Clone()
	if !found || len(bytes.TrimSpace([]byte(raw))) == 0 {
		snap.Normalize()
		return snap, false, nil
	}

	span.SetAttributes(attribute.Int("snapshot.bytes", len(raw)))

	if err := Decode(raw, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, true, err
	}
	return snap, true, nil
}

// Decode 解析（必要时迁移）原始快照并浅合并进 into
func Decode(raw string, into *model.Snapshot) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: not an object", ErrCorruptSnapshot)
	}

	if _, err := Migrate(doc); err != nil {
		return err
	}

	// 出现的顶层字段整体替换种子数据，不与种子元素逐字段合并
	if err := decodeField(doc, "students", &into.Students); err != nil {
		return err
	}
	if err := decodeField(doc, "teachers", &into.Teachers); err != nil {
		return err
	}
	if err := decodeField(doc, "logs", &into.Logs); err != nil {
		return err
	}
	if err := decodeField(doc, "messages", &into.Messages); err != nil {
		return err
	}
	if err := decodeField(doc, "questionBank", &into.QuestionBank); err != nil {
		return err
	}

	into.SchemaVersion = model.CurrentSchemaVersion
	into.Normalize()
	return nil
}

func decodeField[T any](doc map[string]any, name string, dst *[]T) error {
	v, ok := doc[name]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, name, err)
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, name, err)
	}
	*dst = out
	return nil
}

func Encode(snap *model.Snapshot) (string, error) {
	out := *snap
	out.SchemaVersion = model.CurrentSchemaVersion
	b, err := json.Marshal(&out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snap *model.Snapshot) error {
	ctx, span := tracing.Tracer.Start(ctx, "snapshot.save")
	defer span.End()

	raw, err := Encode(snap)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(raw)))

	if err := r.Slot.Set(ctx, r.Key, raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot set failed")
		return fmt.Errorf("write slot %q: %w", r.Key, err)
	}
	return nil
}
