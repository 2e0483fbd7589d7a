package media_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *media.Manager {
	t.Helper()
	m, err := media.NewManager(filepath.Join(t.TempDir(), "static"))
	require.NoError(t, err)
	return m
}

func upload(name, body string) media.Upload {
	return media.Upload{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"photo.JPG", ".jpg"},
		{"photo.png", ".png"},
		{"animation.webp", ".webp"},
		{"archive.zip", ".jpg"},
		{"noext", ".jpg"},
		{"script.php.jpg", ".jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, media.NormalizeExt(tt.name), "name=%q", tt.name)
	}
}

func TestAbsURL(t *testing.T) {
	assert.Equal(t, "http://x/static/hot/a.jpg", media.AbsURL("http://x/", "/static/hot/a.jpg"))
	assert.Equal(t, "http://x/static/hot/a.jpg", media.AbsURL("http://x", "/static/hot/a.jpg"))
	assert.Equal(t, "https://cdn/a.jpg", media.AbsURL("http://x", "https://cdn/a.jpg"))
	assert.Equal(t, "", media.AbsURL("http://x", ""))
}

func TestManager_NewManager_CreatesAreasAndCover(t *testing.T) {
	m := newManager(t)

	for _, area := range []string{media.AreaUploads, media.AreaBanners, media.AreaHot, media.AreaOrders, media.AreaOG} {
		info, err := os.Stat(m.Dir(area))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(filepath.Join(m.Dir(media.AreaOG), "cover.png"))
	assert.NoError(t, err)
}

func TestManager_SaveUpload(t *testing.T) {
	m := newManager(t)

	saved, err := m.SaveUpload(upload("фото квартири.PNG", "body"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved, "ord_"))
	assert.True(t, strings.HasSuffix(saved, ".png"))

	data, err := os.ReadFile(filepath.Join(m.Dir(media.AreaOrders), saved))
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestManager_MoveStaged(t *testing.T) {
	m := newManager(t)
	saved, err := m.SaveUpload(upload("a.jpg", "body"))
	require.NoError(t, err)

	url, err := m.MoveStaged(saved, media.AreaHot)
	require.NoError(t, err)
	assert.Equal(t, "/static/hot/"+saved, url)

	_, err = os.Stat(filepath.Join(m.Dir(media.AreaHot), saved))
	assert.NoError(t, err)

	// Moving the same file again fails: the source is gone.
	_, err = m.MoveStaged(saved, media.AreaHot)
	var relocate apperrors.ErrFileRelocate
	assert.ErrorAs(t, err, &relocate)
}

func TestManager_Banners(t *testing.T) {
	m := newManager(t)
	assert.Empty(t, m.ScanBanners())

	src := filepath.Join(t.TempDir(), "promo.jpg")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	dst, err := m.AddBannerLocal(src, 1712000000000)
	require.NoError(t, err)
	assert.Equal(t, "bn_1712000000000.jpg", filepath.Base(dst))

	urls := m.ScanBanners()
	require.Len(t, urls, 1)
	assert.Equal(t, "/static/banners/bn_1712000000000.jpg", urls[0])

	require.NoError(t, m.RemoveBanner("bn_1712000000000.jpg"))
	assert.Empty(t, m.ScanBanners())
	assert.ErrorIs(t, m.RemoveBanner("bn_1712000000000.jpg"), apperrors.ErrNoSuchFile)
}

func TestManager_AddBannerLocal_Errors(t *testing.T) {
	m := newManager(t)

	_, err := m.AddBannerLocal(filepath.Join(t.TempDir(), "missing.jpg"), 1)
	assert.ErrorIs(t, err, apperrors.ErrNoSuchFile)

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	_, err = m.AddBannerLocal(src, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedExtension)
}

func TestManager_ClearBanners(t *testing.T) {
	m := newManager(t)
	src := filepath.Join(t.TempDir(), "promo.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	_, err := m.AddBannerLocal(src, 7)
	require.NoError(t, err)

	m.ClearBanners()
	assert.Empty(t, m.ScanBanners())
}
