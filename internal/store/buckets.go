// internal/store/buckets.go
package store

import (
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

// Buckets is a read-time projection of a session listing into display
// groups. Buckets are disjoint and their union is the input set.
type Buckets struct {
	Today      []*types.Session `json:"today"`
	Yesterday  []*types.Session `json:"yesterday"`
	Last7Days  []*types.Session `json:"last_7_days"`
	Last30Days []*types.Session `json:"last_30_days"`
	Older      []*types.Session `json:"older"`
}

// BucketSessions partitions sessions by updated_at using half-open day
// boundaries anchored at local midnight relative to now. The relative
// order within each bucket matches the input order.
func BucketSessions(now time.Time, sessions []*types.Session) Buckets {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := midnight.AddDate(0, 0, -1)
	week := midnight.AddDate(0, 0, -7)
	month := midnight.AddDate(0, 0, -30)

	var b Buckets
	b.Today = []*types.Session{}
	b.Yesterday = []*types.Session{}
	b.Last7Days = []*types.Session{}
	b.Last30Days = []*types.Session{}
	b.Older = []*types.Session{}

	for _, sess := range sessions {
		at := sess.UpdatedAt.In(now.Location())
		switch {
		case !at.Before(midnight):
			b.Today = append(b.Today, sess)
		case !at.Before(yesterday):
			b.Yesterday = append(b.Yesterday, sess)
		case !at.Before(week):
			b.Last7Days = append(b.Last7Days, sess)
		case !at.Before(month):
			b.Last30Days = append(b.Last30Days, sess)
		default:
			b.Older = append(b.Older, sess)
		}
	}
	return b
}
