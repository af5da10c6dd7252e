package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 生成带前缀的唯一 ID，例如 conv_3f2c...
func NewID(prefix string) string {
	id := uuid.New().String()
	if prefix == "" {
		return id
	}
	return prefix + "_" + strings.ReplaceAll(id, "-", "")
}

// cloneSlice 深拷贝切片，保留 nil 与空切片的区别
func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		if clone != nil {
			out[i] = clone(v)
		} else {
			out[i] = v
		}
	}
	return out
}

func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
