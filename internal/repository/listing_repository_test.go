package repository_test

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repository.StateListingRepository {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	return repository.NewListingRepository(s)
}

func listing(id, code, kind string) *models.Listing {
	return &models.Listing{ID: id, Code: code, Kind: kind, Title: "Оголошення " + code}
}

func TestStateListingRepository_Insert_Prepends(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Insert(listing("ad_1", "51370", "1к"), "normal"))
	require.NoError(t, repo.Insert(listing("ad_2", "51371", "2к"), "normal"))
	require.NoError(t, repo.Insert(listing("ad_3", "51372", "1к"), "hot"))

	hot, normal := repo.Snapshot()
	require.Len(t, hot, 1)
	require.Len(t, normal, 2)
	assert.Equal(t, "ad_2", normal[0].ID)
	assert.Equal(t, "ad_1", normal[1].ID)
}

func TestStateListingRepository_FindByIDOrCode(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(listing("ad_1", "51370", "1к"), "normal"))

	byID, err := repo.FindByIDOrCode("ad_1")
	require.NoError(t, err)
	assert.Equal(t, "51370", byID.Code)

	byCode, err := repo.FindByIDOrCode("51370")
	require.NoError(t, err)
	assert.Equal(t, "ad_1", byCode.ID)

	_, err = repo.FindByIDOrCode("nope")
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
}

func TestStateListingRepository_PurgeExpired(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	expired := listing("ad_old", "51370", "1к")
	expired.ActiveTill = now.UnixMilli()
	alive := listing("ad_new", "51371", "1к")
	alive.ActiveTill = now.Add(time.Hour).UnixMilli()
	forever := listing("ad_forever", "51372", "1к")

	require.NoError(t, repo.Insert(expired, "normal"))
	require.NoError(t, repo.Insert(alive, "normal"))
	require.NoError(t, repo.Insert(forever, "hot"))

	require.NoError(t, repo.PurgeExpired(now))

	hot, normal := repo.Snapshot()
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_new", normal[0].ID)
	// Zero expiry means never expires.
	require.Len(t, hot, 1)
	assert.Equal(t, "ad_forever", hot[0].ID)
}

func TestStateListingRepository_Search_FiltersAreANDed(t *testing.T) {
	repo := newTestRepo(t)

	a := listing("ad_1", "51370", "1к")
	a.Title = "Квартира в центрі"
	a.District = "Центр"
	a.Price = 400
	a.Rooms = "1"
	b := listing("ad_2", "51371", "2к")
	b.Title = "Будинок біля парку"
	b.District = "Салтівка"
	b.Price = 700
	b.Rooms = "2"
	require.NoError(t, repo.Insert(a, "normal"))
	require.NoError(t, repo.Insert(b, "normal"))

	_, normal, err := repo.Search(repository.SearchQuery{Text: "kvartyra"})
	require.NoError(t, err)
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_1", normal[0].ID)

	_, normal, err = repo.Search(repository.SearchQuery{District: "центр", PriceBand: "500"})
	require.NoError(t, err)
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_1", normal[0].ID)

	_, normal, err = repo.Search(repository.SearchQuery{District: "центр", PriceBand: "500+"})
	require.NoError(t, err)
	assert.Empty(t, normal)

	_, normal, err = repo.Search(repository.SearchQuery{Rooms: "2"})
	require.NoError(t, err)
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_2", normal[0].ID)
}

func TestStateListingRepository_Search_RoomsFilterSkipsUnparsable(t *testing.T) {
	repo := newTestRepo(t)

	odd := listing("ad_1", "51370", "1к")
	odd.Rooms = "багато"
	require.NoError(t, repo.Insert(odd, "normal"))

	// Without a rooms filter the listing is still visible.
	_, normal, err := repo.Search(repository.SearchQuery{})
	require.NoError(t, err)
	assert.Len(t, normal, 1)

	// With one, a listing whose rooms value cannot be parsed is excluded.
	_, normal, err = repo.Search(repository.SearchQuery{Rooms: "1"})
	require.NoError(t, err)
	assert.Empty(t, normal)
}

func TestStateListingRepository_RemoveByCode(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(listing("ad_1", "51370", "1к"), "normal"))
	require.NoError(t, repo.Insert(listing("ad_2", "51370", "1к"), "hot"))
	require.NoError(t, repo.Insert(listing("ad_3", "51371", "1к"), "normal"))

	removed, err := repo.RemoveByCode("51370")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	hot, normal := repo.Snapshot()
	assert.Empty(t, hot)
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_3", normal[0].ID)

	removed, err = repo.RemoveByCode("51370")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStateListingRepository_AddViews_MissingListing(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.AddViews("nope", 5)
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
}

func TestStateListingRepository_AddViewsAndLikes(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(listing("ad_1", "51370", "1к"), "normal"))

	require.NoError(t, repo.AddViews("51370", 10))
	require.NoError(t, repo.AddLikes("ad_1", 3))

	got, err := repo.FindByIDOrCode("ad_1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Views)
	assert.Equal(t, 3, got.Likes)
}

func TestStateListingRepository_ReadsReturnCopies(t *testing.T) {
	repo := newTestRepo(t)
	seeded := listing("ad_1", "51370", "1к")
	seeded.Images = []string{"/static/uploads/a.jpg"}
	require.NoError(t, repo.Insert(seeded, "normal"))

	// Mutating anything a read handed out must not touch stored state.
	got, err := repo.FindByIDOrCode("ad_1")
	require.NoError(t, err)
	got.Views = 999
	got.Images[0] = "tampered"

	_, normal := repo.Snapshot()
	require.Len(t, normal, 1)
	normal[0].Likes = 999

	_, hits, err := repo.Search(repository.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	hits[0].Title = "tampered"

	fresh, err := repo.FindByIDOrCode("ad_1")
	require.NoError(t, err)
	assert.Zero(t, fresh.Views)
	assert.Zero(t, fresh.Likes)
	assert.Equal(t, "Оголошення 51370", fresh.Title)
	assert.Equal(t, "/static/uploads/a.jpg", fresh.Images[0])
}

func TestStateListingRepository_Reset(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(listing("ad_1", "51370", "1к"), "normal"))

	require.NoError(t, repo.Reset())

	hot, normal := repo.Snapshot()
	assert.Empty(t, hot)
	assert.Empty(t, normal)
}
