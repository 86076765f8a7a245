// Package codec holds small encoding helpers shared across the service.
package codec

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
)

// EncodeString returns the URL-safe base64 form of s without padding.
func EncodeString(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// DecodeString reverses EncodeString and tolerates padded input.
func DecodeString(s string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}
	return string(raw), nil
}

func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func GetOrDefault[K comparable, V any](m map[K]V, key K, fallback V) V {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

// ValueOrDefault returns fallback when v is the zero value.
func ValueOrDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
