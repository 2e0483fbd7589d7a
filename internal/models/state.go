package models

// BannerState is the persisted slice of banner configuration. Only Link is
// authoritative; Image/Images are kept in the document for compatibility but
// are rebuilt from a directory scan whenever the banner is served.
type BannerState struct {
	Enabled bool     `json:"enabled"`
	Image   string   `json:"image"`
	Images  []string `json:"images"`
	Link    string   `json:"link"`
}

// State is the whole persisted document. Every mutation anywhere in the
// system rewrites it in full; there are no partial updates.
type State struct {
	// Visitors is the synthetic visitor counter, bumped by live
	// connections and by the background ticker. Persisted but not
	// meaningful as an exact count.
	Visitors int `json:"visitors"`

	// Seq mints short codes. Monotonically increasing and persisted so
	// restarts never reuse a code.
	Seq int `json:"seq"`

	Banner BannerState `json:"banner"`

	Hot    []*Listing `json:"hot"`
	Normal []*Listing `json:"normal"`

	// LikesBy maps listing id -> client ids that liked it. A client id
	// appears at most once per listing.
	LikesBy map[string][]string `json:"likes_by"`

	// ViewsBy maps listing id -> client id -> last view timestamp in
	// epoch milliseconds, used for the duplicate-view cooldown.
	ViewsBy map[string]map[string]int64 `json:"views_by"`

	Pending []*Submission `json:"pending"`

	// SeenUIDs maps client id -> first-seen timestamp (epoch ms); used
	// only to avoid logging the same first visit twice.
	SeenUIDs map[string]int64 `json:"seen_uids"`
}

// FindListing scans the hot collection first, then normal, matching either
// the opaque id or the short code. Returns nil when nothing matches.
func (s *State) FindListing(key string) *Listing {
	for _, a := range s.Hot {
		if a.ID == key || a.Code == key {
			return a
		}
	}
	for _, a := range s.Normal {
		if a.ID == key || a.Code == key {
			return a
		}
	}
	return nil
}

// Collection returns a pointer to the slice backing the given tier. Any kind
// other than "hot" falls through to the normal collection.
func (s *State) Collection(kind string) *[]*Listing {
	if kind == "hot" {
		return &s.Hot
	}
	return &s.Normal
}

// FindPending returns the queued submission with the given code, or nil.
func (s *State) FindPending(code string) *Submission {
	for _, p := range s.Pending {
		if p.Code == code {
			return p
		}
	}
	return nil
}

// RemovePending drops every submission with the given code and reports
// whether anything was removed.
func (s *State) RemovePending(code string) bool {
	kept := s.Pending[:0]
	removed := false
	for _, p := range s.Pending {
		if p.Code == code {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.Pending = kept
	return removed
}
