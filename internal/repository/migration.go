package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"h2ala_backend/internal/model"
	"time"
)

var ErrUnsupportedSchema = errors.New("snapshot schema version is newer than supported")

type migration func(doc map[string]any) error

// migrations[v] 把 v 版本的文档升级到 v+1
var migrations = map[int]migration{
	0: migrateV0ToV1,
}

// timeKeys v0 文档中以毫秒时间戳存储的字段
var timeKeys = map[string]bool{
	"timestamp": true,
	"createdAt": true,
	"updatedAt": true,
	"date":      true,
	"dateSaved": true,
	"startTime": true,
	"endTime":   true,
}

func schemaVersion(doc map[string]any) (int, error) {
	raw, ok := doc["schemaVersion"]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: schemaVersion has type %T", ErrCorruptSnapshot, raw)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: schemaVersion %q: %v", ErrCorruptSnapshot, n, err)
	}
	return int(v), nil
}

// Migrate 原地把文档升级到 model.CurrentSchemaVersion，返回原始版本
func Migrate(doc map[string]any) (int, error) {
	from, err := schemaVersion(doc)
	if err != nil {
		return 0, err
	}
	if from > model.CurrentSchemaVersion {
		return from, fmt.Errorf("%w: %d > %d", ErrUnsupportedSchema, from, model.CurrentSchemaVersion)
	}

	for v := from; v < model.CurrentSchemaVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return from, fmt.Errorf("no migration from schema version %d", v)
		}
		if err := m(doc); err != nil {
			return from, fmt.Errorf("migrate schema %d -> %d: %w", v, v+1, err)
		}
		doc["schemaVersion"] = json.Number(fmt.Sprint(v + 1))
	}
	return from, nil
}

// migrateV0ToV1 浏览器本地存储格式：毫秒时间戳、学生级别的扁平 chatHistory
func migrateV0ToV1(doc map[string]any) error {
	for k, v := range doc {
		doc[k] = convertEpochTimes(k, v)
	}

	students, ok := doc["students"].([]any)
	if !ok {
		return nil
	}
	for _, item := range students {
		st, ok := item.(map[string]any)
		if !ok {
			continue
		}
		history, hasHistory := st["chatHistory"].([]any)
		delete(st, "chatHistory")
		if _, hasConvs := st["conversations"]; hasConvs || !hasHistory || len(history) == 0 {
			continue
		}
		st["conversations"] = []any{legacyConversation(history)}
	}
	return nil
}

func legacyConversation(history []any) map[string]any {
	var first, last any
	for _, m := range history {
		msg, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if ts, ok := msg["timestamp"]; ok {
			if first == nil {
				first = ts
			}
			last = ts
		}
	}
	if first == nil {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		first, last = now, now
	}
	return map[string]any{
		"id":        model.NewID("conv"),
		"title":     "Imported Chat",
		"createdAt": first,
		"updatedAt": last,
		"messages":  history,
	}
}

func convertEpochTimes(key string, v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = convertEpochTimes(k, child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = convertEpochTimes(key, child)
		}
		return t
	case json.Number:
		if !timeKeys[key] {
			return t
		}
		ms, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return t
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
	}
	return v
}
