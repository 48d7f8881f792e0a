// Package reorder 按下标或拖拽结果移动有序列表中的条目。
package reorder

import (
	"errors"
	"fmt"
)

// ErrOutOfRange 表示下标越界。
var ErrOutOfRange = errors.New("reorder: index out of range")

// Identified 是 ID 在移动中保持不变的条目。
type Identified interface {
	EntryID() string
}

// Reorderer 移动列表中的一个元素。
type Reorderer[T any] interface {
	Reorder(list []T, from, to int) ([]T, error)
}

// Mover 是默认的 Reorderer。
type Mover[T any] struct{}

// Reorder 实现 Reorderer。
func (Mover[T]) Reorder(list []T, from, to int) ([]T, error) {
	return Move(list, from, to)
}

// Move 返回新切片：from 处的元素移到 to，其余元素保持相对顺序。不修改入参。
func Move[T any](list []T, from, to int) ([]T, error) {
	n := len(list)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d in list of %d", ErrOutOfRange, from, to, n)
	}
	out := make([]T, n)
	copy(out, list)
	if from == to {
		return out, nil
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}

// IndexOf 返回 id 所在位置，不存在返回 -1。
func IndexOf[T Identified](list []T, id string) int {
	for i, e := range list {
		if e.EntryID() == id {
			return i
		}
	}
	return -1
}

// MoveByID 应用一次拖拽：activeID 落在 overID 上。
// 没有目标、目标是自身或任一 ID 未知时原样返回并返回 false。
func MoveByID[T Identified](list []T, activeID, overID string) ([]T, bool) {
	if overID == "" || activeID == overID {
		return list, false
	}
	from, to := IndexOf(list, activeID), IndexOf(list, overID)
	if from < 0 || to < 0 {
		return list, false
	}
	out, err := Move(list, from, to)
	if err != nil {
		return list, false
	}
	return out, true
}

// MoveByKey 把 activeID 上移或下移一位。越过两端或 ID 未知时不变。
func MoveByKey[T Identified](list []T, activeID string, dir Direction) ([]T, bool) {
	from := IndexOf(list, activeID)
	if from < 0 {
		return list, false
	}
	to := from
	switch dir {
	case ArrowUp:
		to--
	case ArrowDown:
		to++
	}
	if to == from || to < 0 || to >= len(list) {
		return list, false
	}
	out, err := Move(list, from, to)
	if err != nil {
		return list, false
	}
	return out, true
}
