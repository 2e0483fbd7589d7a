package live

import (
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/store"
)

// Topic names on the live channel.
const (
	TopicVisitors = "visitors"
	TopicBanner   = "banner"
	TopicListings = "listings"
)

// Notifier is the broadcast seam handed to services and the console, so
// they can announce state changes without knowing about SSE.
type Notifier interface {
	PublishListings()
	PublishBanner()
	PublishVisitors()
}

// Publisher builds topic payloads from current state and pushes them
// through the hub. Broadcasts triggered outside a request (console,
// ticker) resolve media URLs against the configured base URL.
type Publisher struct {
	hub   *Hub
	store *store.Store
	media *media.Manager
	base  string
}

// NewPublisher wires a publisher over the hub, state store and media
// manager.
func NewPublisher(hub *Hub, st *store.Store, m *media.Manager, baseURL string) *Publisher {
	return &Publisher{hub: hub, store: st, media: m, base: baseURL}
}

// ListingsPayload deep-copies both collections into the wire shape, so the
// payload can be marshaled after the lock is released while counters keep
// mutating under it.
func (p *Publisher) ListingsPayload() map[string][]*models.Listing {
	var hot, normal []*models.Listing
	p.store.View(func(st *models.State) {
		hot = models.CloneListings(st.Hot)
		normal = models.CloneListings(st.Normal)
	})
	return map[string][]*models.Listing{"hot": hot, "normal": normal}
}

// BannerPayload rescans the banner directory and resolves image URLs
// against base. Only the click-through link comes from persisted state.
func (p *Publisher) BannerPayload(base string) models.BannerView {
	imgs := p.media.ScanBanners()
	abs := make([]string, 0, len(imgs))
	for _, u := range imgs {
		abs = append(abs, media.AbsURL(base, u))
	}
	first := ""
	if len(abs) > 0 {
		first = abs[0]
	}
	link := "#"
	p.store.View(func(st *models.State) {
		if st.Banner.Link != "" {
			link = st.Banner.Link
		}
	})
	return models.BannerView{Enabled: true, Image: first, Images: abs, Link: link}
}

// VisitorsPayload reads the current synthetic visitor counter.
func (p *Publisher) VisitorsPayload() int {
	n := 0
	p.store.View(func(st *models.State) { n = st.Visitors })
	return n
}

// Snapshot returns the current value of all three topics, in the order a
// freshly connected client should receive them.
func (p *Publisher) Snapshot(base string) []Event {
	return []Event{
		{Name: TopicVisitors, Data: p.VisitorsPayload()},
		{Name: TopicBanner, Data: p.BannerPayload(base)},
		{Name: TopicListings, Data: p.ListingsPayload()},
	}
}

// PublishListings broadcasts the current listing set.
func (p *Publisher) PublishListings() {
	p.hub.Broadcast(TopicListings, p.ListingsPayload())
}

// PublishBanner broadcasts the current banner configuration.
func (p *Publisher) PublishBanner() {
	p.hub.Broadcast(TopicBanner, p.BannerPayload(p.base))
}

// PublishVisitors broadcasts the current visitor counter.
func (p *Publisher) PublishVisitors() {
	p.hub.Broadcast(TopicVisitors, p.VisitorsPayload())
}

// Hub exposes the underlying hub for connection handling.
func (p *Publisher) Hub() *Hub {
	return p.hub
}
