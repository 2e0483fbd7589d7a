// Package media manages the on-disk media areas: staged uploads under
// orders, published images under hot/uploads, the banner set, and the OG
// cover stub. Files are written verbatim; there is no resizing or
// recoding.
package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/khatadev/khata/internal/errors"
)

// Area names the media subdirectories under the static root.
const (
	AreaUploads = "uploads"
	AreaBanners = "banners"
	AreaHot     = "hot"
	AreaOrders  = "orders"
	AreaOG      = "og"
)

// allowedExts is the image extension whitelist for uploads and local banner
// files. Anything else is coerced to DefaultExt on upload.
var allowedExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// DefaultExt replaces extensions outside the allowed set.
const DefaultExt = ".jpg"

// ogCoverPNG is a tiny placeholder written once so the og:image link is
// always valid even before an operator provides a real cover.
const ogCoverPNG = "iVBORw0KGgoAAAANSUhEUgAAAeAAAAJ2CAYAAABm6r8dAAAACXBIWXMAAAsTAAALEwEAmpwY" +
	"AAAAB3RJTUUH5QQUFzQ1qz7WgQAABi9JREFUeJzt3TEBwEAQwDDb/5y0QbIuN3gS8G6QkQAA" +
	"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" +
	"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" +
	"AAAAAPhB4xkAAGl/3KQAAAAASUVORK5CYII="

// Upload is one file to stage, decoupled from multipart so services and
// tests can submit plain readers.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// UploadFromFileHeader adapts a parsed multipart file header into an Upload.
func UploadFromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// Manager resolves paths inside the static root and performs the file
// moves of the moderation workflow.
type Manager struct {
	staticDir string
}

// NewManager ensures every media area exists under staticDir and the OG
// cover stub is in place.
func NewManager(staticDir string) (*Manager, error) {
	m := &Manager{staticDir: staticDir}
	for _, area := range []string{AreaUploads, AreaBanners, AreaHot, AreaOrders, AreaOG} {
		if err := os.MkdirAll(m.Dir(area), 0o750); err != nil {
			return nil, fmt.Errorf("creating media area %s: %w", area, err)
		}
	}
	m.ensureOGCover()
	return m, nil
}

// Dir returns the absolute directory of a media area.
func (m *Manager) Dir(area string) string {
	return filepath.Join(m.staticDir, area)
}

// RelURL returns the client-facing relative URL of a file in an area.
func RelURL(area, name string) string {
	return "/static/" + area + "/" + name
}

// AbsURL makes a relative media URL absolute against base. URLs that are
// already absolute and empty strings pass through unchanged.
func AbsURL(base, u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http") {
		return u
	}
	return strings.TrimRight(base, "/") + u
}

// NormalizeExt extracts the lower-cased extension of name, substituting
// DefaultExt when the extension is missing or not in the allowed image set.
func NormalizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || !allowedExts[ext] {
		return DefaultExt
	}
	return ext
}

// AllowedExt reports whether name carries an extension from the image
// whitelist.
func AllowedExt(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// SaveUpload stages an upload under the orders area with a randomized
// collision-resistant name, preserving only the (whitelisted) extension.
// Returns the saved file name.
func (m *Manager) SaveUpload(up Upload) (string, error) {
	src, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %q: %w", up.Name, err)
	}
	defer src.Close()

	saved := "ord_" + uuid.NewString() + NormalizeExt(up.Name)
	dst, err := os.Create(filepath.Join(m.Dir(AreaOrders), saved))
	if err != nil {
		return "", fmt.Errorf("staging upload %q: %w", up.Name, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing upload %q: %w", up.Name, err)
	}
	return saved, nil
}

// MoveStaged relocates a staged orders file into the given area and returns
// the new relative URL. A missing source yields ErrFileRelocate so the
// caller can skip it.
func (m *Manager) MoveStaged(name, area string) (string, error) {
	src := filepath.Join(m.Dir(AreaOrders), name)
	if _, err := os.Stat(src); err != nil {
		return "", apperrors.ErrFileRelocate{Name: name, Reason: "missing staged file"}
	}
	dst := filepath.Join(m.Dir(area), name)
	if err := os.Rename(src, dst); err != nil {
		return "", apperrors.ErrFileRelocate{Name: name, Reason: err.Error()}
	}
	return RelURL(area, name), nil
}

// ScanBanners lists the banner area's image files, sorted by name, as
// relative URLs. The directory is the source of truth; nothing here is
// persisted.
func (m *Manager) ScanBanners() []string {
	entries, err := os.ReadDir(m.Dir(AreaBanners))
	if err != nil {
		return []string{}
	}
	urls := []string{}
	for _, e := range entries {
		if e.IsDir() || !AllowedExt(e.Name()) {
			continue
		}
		urls = append(urls, RelURL(AreaBanners, e.Name()))
	}
	sort.Strings(urls)
	return urls
}

// ClearBanners removes every file in the banner area. Individual removal
// failures are ignored.
func (m *Manager) ClearBanners() {
	entries, err := os.ReadDir(m.Dir(AreaBanners))
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(m.Dir(AreaBanners), e.Name()))
	}
}

// AddBannerLocal copies a local file into the banner area under a
// timestamp-free unique name. The extension must already be allowed.
func (m *Manager) AddBannerLocal(src string, nowMillis int64) (string, error) {
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return "", apperrors.ErrNoSuchFile
	}
	ext := strings.ToLower(filepath.Ext(src))
	if !allowedExts[ext] {
		return "", apperrors.ErrUnsupportedExtension
	}
	dst := filepath.Join(m.Dir(AreaBanners), fmt.Sprintf("bn_%d%s", nowMillis, ext))
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// RemoveBanner deletes one file from the banner area by bare file name.
func (m *Manager) RemoveBanner(name string) error {
	path := filepath.Join(m.Dir(AreaBanners), filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return apperrors.ErrNoSuchFile
	}
	return os.Remove(path)
}

// ensureOGCover writes the placeholder cover once. Failure is tolerated;
// the og:image link just dangles until an operator drops a real file in.
func (m *Manager) ensureOGCover() {
	path := filepath.Join(m.Dir(AreaOG), "cover.png")
	if _, err := os.Stat(path); err == nil {
		return
	}
	if data, err := base64.StdEncoding.DecodeString(ogCoverPNG); err == nil {
		_ = os.WriteFile(path, data, 0o644)
	}
}
