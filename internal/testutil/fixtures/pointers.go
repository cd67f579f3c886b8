// Package fixtures provides test data builders and helpers.
package fixtures

import "time"

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}
