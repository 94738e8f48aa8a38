// Package lock serializes conflict detection and slot creation per
// interviewer and day. Two interviews for the same interviewer on the same
// date must never pass the overlap check against the same stale view.
package lock

import (
	"context"
	"sort"
	"time"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
)

// DefaultTimeout bounds how long Lock waits when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

// Locker acquires every key or none. The returned release func is safe to call once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

// Key names the critical section guarding one interviewer's calendar day.
func Key(interviewerID id.InterviewerID, date time.Time) string {
	return interviewerID.String() + ":" + models.DateOf(date).Format(models.DateLayout)
}

// normalize dedupes and sorts keys so concurrent multi-key callers always
// acquire in the same order.
func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
