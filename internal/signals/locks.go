package signals

import "sync"

// userLocks provides striped per-user mutexes. Incremental profile updates
// for the same user must serialize to avoid lost counter updates; updates
// for different users need no coordination, so striping keeps contention low.
type userLocks struct {
	stripes [64]sync.Mutex
}

func (l *userLocks) lock(userID int64) *sync.Mutex {
	m := &l.stripes[uint64(userID)%uint64(len(l.stripes))]
	m.Lock()
	return m
}
