package services

import (
	"log"
	"time"

	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/store"
)

// EngagementService tracks per-listing likes and views keyed by anonymous
// client id. Views are deduplicated with a cooldown window; likes are
// idempotent per client. Missing listings are no-ops, never errors.
type EngagementService struct {
	store    *store.Store
	notifier live.Notifier
	clock    Clock
	cooldown time.Duration
}

// NewEngagementService crée et retourne une nouvelle instance de
// EngagementService.
func NewEngagementService(st *store.Store, notifier live.Notifier, clock Clock, cooldown time.Duration) *EngagementService {
	return &EngagementService{store: st, notifier: notifier, clock: clock, cooldown: cooldown}
}

// RecordView counts a view for the listing matching key, unless the same
// client viewed it within the cooldown window. Reports whether the counter
// moved. A counted view persists state and broadcasts the listing set.
func (s *EngagementService) RecordView(key, uid string) (bool, error) {
	now := s.clock.Now().UnixMilli()
	counted, err := s.store.UpdateIf(func(st *models.State) bool {
		a := st.FindListing(key)
		if a == nil {
			return false
		}
		views := st.ViewsBy[a.ID]
		if views == nil {
			views = map[string]int64{}
			st.ViewsBy[a.ID] = views
		}
		if now-views[uid] <= s.cooldown.Milliseconds() {
			return false
		}
		a.Views++
		views[uid] = now
		return true
	})
	if err != nil {
		log.Printf("[VIEW] persist failed for %s: %v", key, err)
	}
	if counted {
		s.notifier.PublishListings()
	}
	return counted, err
}

// RecordLike adds uid to the listing's like set if not already present and
// bumps the counter once. Returns the current like count and whether this
// client has liked the listing. Unknown listings and empty client ids
// return the zero state without error.
func (s *EngagementService) RecordLike(key, uid string) (likes int, liked bool, err error) {
	changed, err := s.store.UpdateIf(func(st *models.State) bool {
		a := st.FindListing(key)
		if a == nil {
			return false
		}
		set := st.LikesBy[a.ID]
		already := false
		for _, id := range set {
			if id == uid {
				already = true
				break
			}
		}
		if uid != "" && !already {
			st.LikesBy[a.ID] = append(set, uid)
			a.Likes++
			likes, liked = a.Likes, true
			return true
		}
		likes, liked = a.Likes, already
		return false
	})
	if err != nil {
		log.Printf("[LIKE] persist failed for %s: %v", key, err)
	}
	if changed {
		s.notifier.PublishListings()
	}
	return likes, liked, err
}
