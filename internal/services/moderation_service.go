// Package services contains the business logic layer: the moderation
// workflow (submit, publish, reject) and the engagement tracker.
package services

import (
	"fmt"
	"log"
	"math/rand"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/store"
)

// Submission kinds. "banner" is a pseudo-category: publishing it feeds the
// banner media set instead of a listing collection.
const (
	KindNormal = "normal"
	KindHot    = "hot"
	KindBanner = "banner"
)

const (
	maxTitleLen    = 140
	defaultTitle   = "Оголошення"
	defaultPhone   = "+380"
	codeWidth      = 5
	bannerMaxFiles = 1
)

// Tariffs is the fixed charge table per submission kind.
type Tariffs struct {
	Banner int
	Hot    int
	Normal int
}

// ModerationService drives the submit -> pending -> publish/reject
// lifecycle. It owns short code minting, upload staging and the file
// relocation performed on publication.
type ModerationService struct {
	store       *store.Store
	media       *media.Manager
	notifier    live.Notifier
	clock       Clock
	tariffs     Tariffs
	activeDays  int
	placeholder string
	baseURL     string
}

// NewModerationService crée et retourne une nouvelle instance de
// ModerationService.
func NewModerationService(st *store.Store, m *media.Manager, notifier live.Notifier, clock Clock,
	tariffs Tariffs, activeDays int, placeholder, baseURL string) *ModerationService {
	return &ModerationService{
		store:       st,
		media:       m,
		notifier:    notifier,
		clock:       clock,
		tariffs:     tariffs,
		activeDays:  activeDays,
		placeholder: placeholder,
		baseURL:     baseURL,
	}
}

// SubmitInput carries one submission from the create endpoint. Numeric
// fields arrive raw and are coerced permissively.
type SubmitInput struct {
	Kind     string
	Title    string
	District string
	Desc     string
	Phone    string
	Rooms    string
	PropKind string
	PriceRaw string
	Files    []media.Upload
}

var priceJunk = regexp.MustCompile(`[^0-9.,]`)

// ParsePrice coerces a free-form price field to an integer, stripping
// currency junk and accepting decimal commas. Anything unparseable is 0;
// the system favors permissive acceptance over rejection.
func ParsePrice(raw string) int {
	cleaned := strings.ReplaceAll(priceJunk.ReplaceAllString(raw, ""), ",", ".")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// Submit stages the uploaded files, mints the next short code and stores a
// pending submission, replacing any earlier submission with the same code.
// Returns the stored submission so the caller can report code and amount.
func (s *ModerationService) Submit(in SubmitInput) (*models.Submission, error) {
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = KindNormal
	}
	title := in.Title
	if title == "" {
		title = defaultTitle
	}
	if len([]rune(title)) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen])
	}
	phone := in.Phone
	if phone == "" {
		phone = defaultPhone
	}

	files := in.Files
	if kind == KindBanner && len(files) > bannerMaxFiles {
		files = files[:bannerMaxFiles]
	}

	orderFiles := []string{}
	orderMeta := []models.FileMeta{}
	for _, up := range files {
		saved, err := s.media.SaveUpload(up)
		if err != nil {
			log.Printf("[PENDING] failed to stage upload %q: %v", up.Name, err)
			continue
		}
		rel := media.RelURL(media.AreaOrders, saved)
		orderFiles = append(orderFiles, rel)
		orderMeta = append(orderMeta, models.FileMeta{
			Orig:  up.Name,
			Saved: saved,
			URL:   media.AbsURL(s.baseURL, rel),
		})
	}

	now := s.clock.Now()
	tier := KindNormal
	if kind == KindHot {
		tier = KindHot
	}
	sub := &models.Submission{
		Kind:   kind,
		Amount: s.amountFor(kind),
		Data: &models.Listing{
			ID:         mintID(now),
			Type:       tier,
			Title:      title,
			Price:      ParsePrice(in.PriceRaw),
			District:   in.District,
			Kind:       strings.TrimSpace(in.PropKind),
			Rooms:      strings.TrimSpace(in.Rooms),
			Desc:       in.Desc,
			Phone:      phone,
			Images:     []string{},
			ActiveTill: now.Add(time.Duration(s.activeDays) * 24 * time.Hour).UnixMilli(),
		},
		OrderFiles:     orderFiles,
		OrderFilesMeta: orderMeta,
	}

	err := s.store.Update(func(st *models.State) {
		sub.Code = mintCode(st)
		sub.Data.Code = sub.Code
		st.RemovePending(sub.Code)
		st.Pending = append(st.Pending, sub)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PENDING] kind=%s code=%s amount=%d title=%s files=%d",
		sub.Kind, sub.Code, sub.Amount, sub.Data.Title, len(orderFiles))
	return sub, nil
}

// Publish promotes the pending submission with the given code. Banner
// submissions feed the banner media set; listing submissions are relocated
// into their tier's media area and inserted at the front of the
// collection. The submission leaves the queue either way.
func (s *ModerationService) Publish(code string) error {
	var sub *models.Submission
	s.store.View(func(st *models.State) {
		sub = st.FindPending(code)
	})
	if sub == nil {
		return apperrors.ErrSubmissionNotFound
	}

	if sub.Kind == KindBanner {
		for _, rel := range sub.OrderFiles {
			name := path.Base(rel)
			if _, err := s.media.MoveStaged(name, media.AreaBanners); err != nil {
				log.Printf("[PUBLISHED] skipping banner file %s: %v", name, err)
			}
		}
		if err := s.store.Update(func(st *models.State) { st.RemovePending(code) }); err != nil {
			return err
		}
		s.notifier.PublishBanner()
		log.Printf("[PUBLISHED] banner %s", code)
		return nil
	}

	ad := sub.Data
	area := media.AreaUploads
	if ad.Type == KindHot {
		area = media.AreaHot
	}
	images := []string{}
	for _, rel := range sub.OrderFiles {
		name := path.Base(rel)
		url, err := s.media.MoveStaged(name, area)
		if err != nil {
			log.Printf("[PUBLISHED] skipping file %s: %v", name, err)
			continue
		}
		images = append(images, url)
	}
	if len(images) == 0 {
		// Never publish a listing with zero images.
		images = []string{s.placeholder}
	}

	err := s.store.Update(func(st *models.State) {
		ad.Images = images
		col := st.Collection(ad.Type)
		*col = append([]*models.Listing{ad}, *col...)
		st.RemovePending(code)
	})
	if err != nil {
		return err
	}
	s.notifier.PublishListings()
	log.Printf("[PUBLISHED] %s %s images:%d", ad.Type, code, len(images))
	return nil
}

// Reject removes the submission without relocating its files. Staged files
// stay in the orders area; nothing references them afterwards.
func (s *ModerationService) Reject(code string) error {
	removed := false
	err := s.store.Update(func(st *models.State) {
		removed = st.RemovePending(code)
	})
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.ErrSubmissionNotFound
	}
	log.Printf("[REJECTED] %s", code)
	return nil
}

// Pending snapshots the moderation queue.
func (s *ModerationService) Pending() []*models.Submission {
	var out []*models.Submission
	s.store.View(func(st *models.State) {
		out = append([]*models.Submission{}, st.Pending...)
	})
	return out
}

// FindPending returns the queued submission with the given code, or
// ErrSubmissionNotFound.
func (s *ModerationService) FindPending(code string) (*models.Submission, error) {
	var sub *models.Submission
	s.store.View(func(st *models.State) {
		sub = st.FindPending(code)
	})
	if sub == nil {
		return nil, apperrors.ErrSubmissionNotFound
	}
	return sub, nil
}

// InjectListing creates a published listing directly, bypassing the queue.
// This is the operator console's add path: images come as URLs, with the
// placeholder substituted when none are given.
func (s *ModerationService) InjectListing(kind, title, district string, price int,
	phone, rooms, propKind, desc string, images []string) (*models.Listing, error) {
	tier := KindNormal
	if kind == KindHot {
		tier = KindHot
	}
	if len(images) == 0 {
		images = []string{s.placeholder}
	}
	now := s.clock.Now()
	ad := &models.Listing{
		ID:         mintID(now),
		Type:       tier,
		Title:      title,
		Price:      price,
		District:   district,
		Kind:       propKind,
		Rooms:      rooms,
		Desc:       desc,
		Phone:      phone,
		Images:     images,
		ActiveTill: now.Add(time.Duration(s.activeDays) * 24 * time.Hour).UnixMilli(),
	}
	err := s.store.Update(func(st *models.State) {
		ad.Code = mintCode(st)
		col := st.Collection(tier)
		*col = append([]*models.Listing{ad}, *col...)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.PublishListings()
	return ad, nil
}

func (s *ModerationService) amountFor(kind string) int {
	switch kind {
	case KindBanner:
		return s.tariffs.Banner
	case KindHot:
		return s.tariffs.Hot
	default:
		return s.tariffs.Normal
	}
}

// mintCode takes the current sequence value as a zero-padded code and
// advances the sequence. Caller holds the state lock.
func mintCode(st *models.State) string {
	code := fmt.Sprintf("%0*d", codeWidth, st.Seq)
	st.Seq++
	return code
}

// mintID builds the opaque listing id from the creation time plus a random
// suffix.
func mintID(now time.Time) string {
	return fmt.Sprintf("ad_%d_%04d", now.UnixMilli(), 1000+rand.Intn(9000))
}
