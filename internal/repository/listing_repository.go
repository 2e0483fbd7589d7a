package repository

import (
	"strconv"
	"time"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/search"
	"github.com/khatadev/khata/internal/store"
)

// SearchQuery carries the /api/search filters. Every non-empty field is
// ANDed with the others.
type SearchQuery struct {
	Text      string // free-text query over title, desc, code, phone
	District  string // exact, diacritic/case-insensitive
	PriceBand string // "N" means <= N, "N+" means > N, malformed always matches
	Kind      string // exact property kind
	Rooms     string // exact room count
}

// ListingRepository est une interface qui définit les méthodes d'accès aux
// collections d'annonces.
type ListingRepository interface {
	FindByIDOrCode(key string) (*models.Listing, error)
	PurgeExpired(now time.Time) error
	Search(q SearchQuery) (hot, normal []*models.Listing, err error)
	Insert(listing *models.Listing, kind string) error
	RemoveByCode(code string) (int, error)
	Snapshot() (hot, normal []*models.Listing)
	AddViews(key string, n int) error
	AddLikes(key string, n int) error
	Reset() error
}

// StateListingRepository is the ListingRepository implementation backed by
// the state store. Scans are linear; the collections stay small enough that
// nothing smarter pays for itself.
type StateListingRepository struct {
	store *store.Store
}

// NewListingRepository crée et retourne une nouvelle instance de
// StateListingRepository.
func NewListingRepository(st *store.Store) *StateListingRepository {
	return &StateListingRepository{store: st}
}

// FindByIDOrCode looks a listing up by opaque id or short code, hot
// collection first.
func (r *StateListingRepository) FindByIDOrCode(key string) (*models.Listing, error) {
	var found *models.Listing
	r.store.View(func(st *models.State) {
		if a := st.FindListing(key); a != nil {
			found = a.Clone()
		}
	})
	if found == nil {
		return nil, apperrors.ErrListingNotFound
	}
	return found, nil
}

// PurgeExpired removes listings whose expiry is at or before now from both
// collections and persists. Listings with a zero expiry never expire.
func (r *StateListingRepository) PurgeExpired(now time.Time) error {
	cutoff := now.UnixMilli()
	return r.store.Update(func(st *models.State) {
		st.Hot = keepActive(st.Hot, cutoff)
		st.Normal = keepActive(st.Normal, cutoff)
	})
}

func keepActive(in []*models.Listing, cutoff int64) []*models.Listing {
	out := in[:0]
	for _, a := range in {
		if a.ActiveTill != 0 && a.ActiveTill <= cutoff {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Search filters both collections with the ANDed query.
func (r *StateListingRepository) Search(q SearchQuery) (hot, normal []*models.Listing, err error) {
	r.store.View(func(st *models.State) {
		hot = filterListings(st.Hot, q)
		normal = filterListings(st.Normal, q)
	})
	return hot, normal, nil
}

func filterListings(in []*models.Listing, q SearchQuery) []*models.Listing {
	out := []*models.Listing{}
	for _, a := range in {
		if !matches(a, q) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

func matches(a *models.Listing, q SearchQuery) bool {
	if !search.MatchQuery(q.Text, a.Title, a.Desc, a.Code, a.Phone) {
		return false
	}
	if q.District != "" && search.Normalize(q.District) != search.Normalize(a.District) {
		return false
	}
	if q.Kind != "" && search.Normalize(q.Kind) != search.Normalize(a.Kind) {
		return false
	}
	if q.Rooms != "" {
		want, err := strconv.Atoi(q.Rooms)
		if err != nil {
			return false
		}
		have, err := strconv.Atoi(a.Rooms)
		if err != nil || have != want {
			return false
		}
	}
	return search.MatchPriceBand(q.PriceBand, a.Price)
}

// Insert prepends the listing to its tier so collections stay
// most-recent-first, and persists.
func (r *StateListingRepository) Insert(listing *models.Listing, kind string) error {
	return r.store.Update(func(st *models.State) {
		col := st.Collection(kind)
		*col = append([]*models.Listing{listing}, *col...)
	})
}

// RemoveByCode drops matching listings from both collections, persists, and
// reports how many entries were removed.
func (r *StateListingRepository) RemoveByCode(code string) (int, error) {
	removed := 0
	err := r.store.Update(func(st *models.State) {
		before := len(st.Hot) + len(st.Normal)
		st.Hot = dropCode(st.Hot, code)
		st.Normal = dropCode(st.Normal, code)
		removed = before - len(st.Hot) - len(st.Normal)
	})
	return removed, err
}

func dropCode(in []*models.Listing, code string) []*models.Listing {
	out := in[:0]
	for _, a := range in {
		if a.Code == code {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Snapshot deep-copies both collections for broadcasting and API responses,
// so callers never hold live state references outside the lock.
func (r *StateListingRepository) Snapshot() (hot, normal []*models.Listing) {
	r.store.View(func(st *models.State) {
		hot = models.CloneListings(st.Hot)
		normal = models.CloneListings(st.Normal)
	})
	return hot, normal
}

// AddViews bumps a listing's view counter by n (operator adjustment).
func (r *StateListingRepository) AddViews(key string, n int) error {
	return r.adjust(key, func(a *models.Listing) { a.Views += n })
}

// AddLikes bumps a listing's like counter by n (operator adjustment).
func (r *StateListingRepository) AddLikes(key string, n int) error {
	return r.adjust(key, func(a *models.Listing) { a.Likes += n })
}

func (r *StateListingRepository) adjust(key string, fn func(*models.Listing)) error {
	missing := false
	err := r.store.Update(func(st *models.State) {
		a := st.FindListing(key)
		if a == nil {
			missing = true
			return
		}
		fn(a)
	})
	if missing {
		return apperrors.ErrListingNotFound
	}
	return err
}

// Reset clears both collections and the engagement records, persists.
func (r *StateListingRepository) Reset() error {
	return r.store.Update(func(st *models.State) {
		st.Hot = []*models.Listing{}
		st.Normal = []*models.Listing{}
		st.LikesBy = map[string][]string{}
		st.ViewsBy = map[string]map[string]int64{}
	})
}
