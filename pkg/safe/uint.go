// Package safe provides checked numeric conversions.
package safe

import (
	"fmt"
	"math"
)

type integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

func toUint64[T integer](v T) (uint64, bool) {
	switch value := any(v).(type) {
	case int:
		if value < 0 {
			return 0, false
		}
		return uint64(value), true
	case int32:
		if value < 0 {
			return 0, false
		}
		return uint64(value), true
	case int64:
		if value < 0 {
			return 0, false
		}
		return uint64(value), true
	case uint:
		return uint64(value), true
	case uint32:
		return uint64(value), true
	case uint64:
		return value, true
	}
	return 0, false
}

// Uint64 converts any integer to uint64, rejecting negatives.
func Uint64[T integer](v T) (uint64, error) {
	u, ok := toUint64(v)
	if !ok {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return u, nil
}

// Uint32 converts any integer to uint32 with range validation.
func Uint32[T integer](v T) (uint32, error) {
	u, ok := toUint64(v)
	if !ok || u > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(u), nil
}
