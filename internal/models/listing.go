package models

// Listing représente une annonce publiée (appartement à vendre ou à louer).
// The JSON tags mirror the persisted state document, so a data file written
// by an older deployment keeps loading unchanged.
type Listing struct {
	// ID is the opaque internal identifier, minted from the creation
	// timestamp plus a random suffix (e.g. "ad_1712345678901_4821").
	ID string `json:"id"`

	// Code is the human-facing short code: a zero-padded sequential
	// number unique across both the hot and normal collections.
	Code string `json:"code"`

	// Type is the display tier, either "hot" or "normal".
	Type string `json:"type"`

	Title    string `json:"title"`
	Price    int    `json:"price"`
	District string `json:"district"`

	// Kind is the property kind (flat, house, room, ...), distinct from
	// the submission kind which also allows "banner".
	Kind  string `json:"kind"`
	Rooms string `json:"rooms"`
	Desc  string `json:"desc"`
	Phone string `json:"phone"`

	// Images is the ordered list of image URLs shown to clients.
	Images []string `json:"images"`

	Likes int `json:"likes"`
	Views int `json:"views"`

	// ActiveTill is the expiry timestamp in epoch milliseconds. Zero
	// means the listing never expires.
	ActiveTill int64 `json:"activeTill"`
}

// Clone returns an independent copy of the listing. Readers outside the
// state lock must never alias the stored value, since counters mutate under
// the lock while responses and broadcasts marshal concurrently.
func (a *Listing) Clone() *Listing {
	cp := *a
	cp.Images = append([]string{}, a.Images...)
	return &cp
}

// CloneListings deep-copies a collection. The result is never nil.
func CloneListings(in []*Listing) []*Listing {
	out := make([]*Listing, 0, len(in))
	for _, a := range in {
		out = append(out, a.Clone())
	}
	return out
}

// FileMeta records the original and saved names of one uploaded file so the
// operator can correlate an order with what the user actually sent.
type FileMeta struct {
	Orig  string `json:"orig"`
	Saved string `json:"saved"`
	URL   string `json:"url"`
}

// Submission is an unpublished listing waiting in the moderation queue.
// It is created by /api/create and destroyed by the operator's pub/reject
// commands. At most one submission exists per code: a later submission with
// the same code replaces the earlier one.
type Submission struct {
	Code string `json:"code"`

	// Kind is the submission category: "normal", "hot" or "banner".
	Kind string `json:"kind"`

	// Amount is the price to charge for this submission in the smallest
	// currency unit. It is recorded, never charged.
	Amount int `json:"amount"`

	// Data is the not-yet-published listing payload; its Images list is
	// empty until publication relocates the staged files.
	Data *Listing `json:"data"`

	// OrderFiles are the staged file references under the orders area.
	OrderFiles []string `json:"order_files"`

	// OrderFilesMeta keeps the original/saved name pairs for logging.
	OrderFilesMeta []FileMeta `json:"order_files_meta"`
}

// BannerView is the banner payload pushed to live clients and returned by
// /api/list. The image list is discovered from the banner directory on every
// request; only the click-through link comes from persisted state.
type BannerView struct {
	Enabled bool     `json:"enabled"`
	Image   string   `json:"image"`
	Images  []string `json:"images"`
	Link    string   `json:"link"`
}
