package core

import (
	"maps"

	"github.com/mohae/deepcopy"
)

// CloneMap returns a deep copy of m, or nil when m is nil. Nested maps and
// slices are copied so stored metadata never aliases caller values.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	if copied, ok := deepcopy.Copy(m).(map[string]any); ok {
		return copied
	}
	return maps.Clone(m)
}
