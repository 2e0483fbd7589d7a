package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khatadev/khata/internal/config"
	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/services"
	"github.com/khatadev/khata/internal/store"
)

// EventsChannel is the global channel used to send client events to the
// analytics workers. Handlers enqueue with a non-blocking send so a full
// buffer never delays a response.
var EventsChannel chan models.EventRecord

// Handlers bundles the dependencies of the HTTP surface.
type Handlers struct {
	Cfg        *config.Config
	Store      *store.Store
	Repo       repository.ListingRepository
	Moderation *services.ModerationService
	Engagement *services.EngagementService
	Publisher  *live.Publisher
	Media      *media.Manager
	Clock      services.Clock
}

// SetupRoutes configures all Gin API routes and the static media groups.
func SetupRoutes(router *gin.Engine, h *Handlers, bufferSize int) {
	if EventsChannel == nil {
		EventsChannel = make(chan models.EventRecord, bufferSize)
	}

	router.Use(Headers())

	api := router.Group("/api")
	{
		api.GET("/list", h.List)
		api.GET("/search", h.Search)
		api.POST("/view/:id", h.View)
		api.POST("/like/:id", h.Like)
		api.POST("/create", h.Create)
		api.POST("/order", h.Order)
		api.POST("/support", h.Support)
		api.POST("/log", h.LogEvent)
		api.GET("/live", h.Live)
	}

	for _, area := range []string{media.AreaUploads, media.AreaBanners, media.AreaHot, media.AreaOrders, media.AreaOG} {
		router.Static("/static/"+area, h.Media.Dir(area))
	}

	router.GET("/", h.Index)
	router.HEAD("/", h.Index)
	router.GET("/index.html", h.Index)
	router.GET("/robots.txt", robots)

	// Anything else falls through to files living next to the index page.
	router.NoRoute(h.ServeBaseFile)
}

// List serves the full listing set and the banner after purging expired
// entries.
func (h *Handlers) List(c *gin.Context) {
	if err := h.Repo.PurgeExpired(h.Clock.Now()); err != nil {
		log.Printf("[LIST] purge persist failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"data":   h.Publisher.ListingsPayload(),
		"banner": h.Publisher.BannerPayload(requestBaseURL(c)),
	})
}

// Search filters both collections with the ANDed query parameters.
func (h *Handlers) Search(c *gin.Context) {
	if err := h.Repo.PurgeExpired(h.Clock.Now()); err != nil {
		log.Printf("[SEARCH] purge persist failed: %v", err)
	}
	hot, normal, err := h.Repo.Search(repository.SearchQuery{
		Text:      c.Query("q"),
		District:  strings.TrimSpace(c.Query("district")),
		PriceBand: strings.TrimSpace(c.Query("price_band")),
		Kind:      strings.TrimSpace(c.Query("kind")),
		Rooms:     strings.TrimSpace(c.Query("rooms")),
	})
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": gin.H{"hot": hot, "normal": normal}})
}

// View records a deduplicated view for the listing. Always 204; a missing
// listing or a cooldown hit is a silent no-op.
func (h *Handlers) View(c *gin.Context) {
	uid := c.GetHeader("X-KOLO-UID")
	if _, err := h.Engagement.RecordView(c.Param("id"), uid); err != nil {
		log.Printf("[VIEW] %v", err)
	}
	c.Status(http.StatusNoContent)
}

// Like adds the client to the listing's like set and reports the current
// count. Missing listings yield a zeroed response, not an error.
func (h *Handlers) Like(c *gin.Context) {
	uid := c.GetHeader("X-KOLO-UID")
	likes, liked, err := h.Engagement.RecordLike(c.Param("id"), uid)
	if err != nil {
		log.Printf("[LIKE] %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes, "liked": liked})
}

// Create accepts a multipart submission, stages its images and queues it
// for moderation. The response carries the minted code and the amount to
// charge.
func (h *Handlers) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	uploads := []media.Upload{}
	for _, fh := range form.File["images"] {
		uploads = append(uploads, media.UploadFromFileHeader(fh))
	}
	sub, err := h.Moderation.Submit(services.SubmitInput{
		Kind:     c.PostForm("type"),
		Title:    c.PostForm("title"),
		District: c.PostForm("district"),
		Desc:     c.PostForm("desc"),
		Phone:    c.PostForm("phone"),
		Rooms:    c.PostForm("rooms"),
		PropKind: c.PostForm("kind"),
		PriceRaw: c.PostForm("price"),
		Files:    uploads,
	})
	if err != nil {
		log.Printf("[PENDING] submit failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"kind":   sub.Kind,
		"code":   sub.Code,
		"amount": sub.Amount,
		"title":  sub.Data.Title,
	})
}

type orderRequest struct {
	Code   string `json:"code"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

// Order logs a payment intent and correlates it with the matching pending
// submission if one exists. Always 204.
func (h *Handlers) Order(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[ORDER-ERR] %v", err)
		c.Status(http.StatusNoContent)
		return
	}
	if sub, err := h.Moderation.FindPending(req.Code); err == nil {
		log.Printf("[ORDER] kind=%s code=%s amount=%d title=%s", req.Kind, req.Code, req.Amount, sub.Data.Title)
		for i, m := range sub.OrderFilesMeta {
			log.Printf("[ORDER]   %d. orig=%q saved=%q url=%s", i+1, m.Orig, m.Saved, m.URL)
		}
	} else {
		log.Printf("[ORDER] kind=%s code=%s amount=%d (pending not found)", req.Kind, req.Code, req.Amount)
	}
	h.enqueue(c, "order", gin.H{"code": req.Code, "kind": req.Kind, "amount": req.Amount})
	c.Status(http.StatusNoContent)
}

type supportRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Msg   string `json:"msg"`
}

// Support logs a support request. Logging only; there is no ticketing.
func (h *Handlers) Support(c *gin.Context) {
	var req supportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[SUPPORT-ERR] %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	log.Printf("[SUPPORT] name=%s phone=%s msg=%s", req.Name, req.Phone, req.Msg)
	h.enqueue(c, "support", gin.H{"name": req.Name, "phone": req.Phone, "msg": req.Msg})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type logRequest struct {
	Action string          `json:"action"`
	Extra  json.RawMessage `json:"extra"`
}

// LogEvent records a client-side event, enriched with the client id and the
// best-effort originating IP.
func (h *Handlers) LogEvent(c *gin.Context) {
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[EVENT-ERR] %v", err)
		c.Status(http.StatusNoContent)
		return
	}
	uid := c.GetHeader("X-KOLO-UID")
	ip := clientIP(c)
	log.Printf("[EVENT] uid=%s ip=%s action=%s extra=%s", uid, ip, req.Action, string(req.Extra))
	h.enqueueRaw(models.EventRecord{
		UID:       uid,
		IPAddress: ip,
		Action:    req.Action,
		Extra:     string(req.Extra),
		Timestamp: h.Clock.Now(),
	})
	c.Status(http.StatusNoContent)
}

// Live is the connection-based live channel. Every client receives all
// three topics over Server-Sent Events, starting with a consistent snapshot
// of their current values.
func (h *Handlers) Live(c *gin.Context) {
	uid := c.Query("uid")
	base := requestBaseURL(c)

	firstVisit := false
	err := h.Store.Update(func(st *models.State) {
		if uid != "" {
			if _, seen := st.SeenUIDs[uid]; !seen {
				st.SeenUIDs[uid] = h.Clock.Now().UnixMilli()
				firstVisit = true
			}
		}
		st.Visitors++
	})
	if err != nil {
		log.Printf("[VISIT] persist failed: %v", err)
	}
	if firstVisit {
		ip := clientIP(c)
		ua := c.GetHeader("User-Agent")
		if len(ua) > 140 {
			ua = ua[:140]
		}
		log.Printf("[VISIT] uid=%s ip=%s ua=%s", uid, ip, ua)
		h.enqueueRaw(models.EventRecord{
			UID:       uid,
			IPAddress: clientIP(c),
			Action:    "visit",
			Timestamp: h.Clock.Now(),
		})
	}

	hub := h.Publisher.Hub()
	client := hub.Register()
	defer hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Replay the current value of all three topics before streaming.
	for _, ev := range h.Publisher.Snapshot(base) {
		c.SSEvent(ev.Name, ev.Data)
	}
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Index renders the main page, substituting the base URL placeholders. A
// missing template degrades to a minimal page instead of an error.
func (h *Handlers) Index(c *gin.Context) {
	base := requestBaseURL(c)
	html, err := os.ReadFile(h.Cfg.Storage.IndexFile)
	if err != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<!doctype html><title>KHATA</title>"))
		return
	}
	page := string(html)
	page = strings.ReplaceAll(page, "{{BASE}}", base)
	page = strings.ReplaceAll(page, "{{OG_IMAGE}}", base+"/static/og/cover.png")
	page = strings.ReplaceAll(page, "{{OG_URL}}", base+"/")
	page = strings.ReplaceAll(page, "{{CANONICAL}}", base+"/")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func robots(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("User-agent: *\nAllow: /\n"))
}

// enqueue marshals extra and hands the event to the analytics pipeline.
func (h *Handlers) enqueue(c *gin.Context, action string, extra gin.H) {
	payload, _ := json.Marshal(extra)
	h.enqueueRaw(models.EventRecord{
		UID:       c.GetHeader("X-KOLO-UID"),
		IPAddress: clientIP(c),
		Action:    action,
		Extra:     string(payload),
		Timestamp: h.Clock.Now(),
	})
}

// enqueueRaw performs the non-blocking send onto the events channel.
func (h *Handlers) enqueueRaw(rec models.EventRecord) {
	if EventsChannel == nil {
		return
	}
	select {
	case EventsChannel <- rec:
	default:
		// Buffer full: drop the event rather than delaying the client.
		log.Printf("WARNING: EventsChannel is full, dropping %s event", rec.Action)
	}
}

// ServeBaseFile serves arbitrary files that live next to the index page
// (favicons, scripts). It refuses anything resolving outside the base
// directory.
func (h *Handlers) ServeBaseFile(c *gin.Context) {
	baseDir, err := filepath.Abs(filepath.Dir(h.Cfg.Storage.IndexFile))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	target, err := filepath.Abs(filepath.Join(baseDir, filepath.Clean("/"+c.Request.URL.Path)))
	if err != nil || !strings.HasPrefix(target, baseDir+string(os.PathSeparator)) {
		c.Status(http.StatusNotFound)
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(target)
}
