// Package store owns the canonical in-memory state document and its JSON
// file lifecycle: load with repair at startup, full rewrite after every
// mutation. All access goes through View/Update so the in-process document
// never races, while the file itself stays last-write-wins.
package store

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/models"
)

// Defaults carried by a fresh state document. The visitor and sequence
// counters start high so the site never looks empty and short codes stay
// five digits.
const (
	DefaultVisitors = 27369
	DefaultSeq      = 51369
)

// Store guards the state document with a single mutex. Mutations are short
// (mutate, marshal, rewrite) so one coordinating lock is enough.
type Store struct {
	mu    sync.Mutex
	path  string
	state *models.State
}

// DefaultState returns an empty state document with counters at their
// starting values.
func DefaultState() *models.State {
	return &models.State{
		Visitors: DefaultVisitors,
		Seq:      DefaultSeq,
		Banner:   models.BannerState{Enabled: true, Images: []string{}, Link: "#"},
		Hot:      []*models.Listing{},
		Normal:   []*models.Listing{},
		LikesBy:  map[string][]string{},
		ViewsBy:  map[string]map[string]int64{},
		Pending:  []*models.Submission{},
		SeenUIDs: map[string]int64{},
	}
}

// Open loads the state document at path, falling back to the default state
// when the file is absent or malformed. Missing top-level keys are
// back-filled and collections coerced to non-nil shapes so partially
// corrupt or older-format files keep working. The repaired document is
// written back out before Open returns.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[STATE] unreadable state file %s: %v, starting fresh", path, err)
		}
		s.state = DefaultState()
		return s, s.save()
	}

	st := &models.State{}
	if err := json.Unmarshal(raw, st); err != nil {
		log.Printf("[STATE] malformed state file %s: %v, starting fresh", path, err)
		st = DefaultState()
	}
	repair(st)
	s.state = st
	return s, s.save()
}

// repair back-fills defaults and coerces nil collections after a load.
func repair(st *models.State) {
	if st.Visitors == 0 {
		st.Visitors = DefaultVisitors
	}
	if st.Seq == 0 {
		st.Seq = DefaultSeq
	}
	if st.Banner.Link == "" {
		st.Banner.Link = "#"
	}
	st.Banner.Enabled = true
	if st.Banner.Images == nil {
		st.Banner.Images = []string{}
	}
	if st.Hot == nil {
		st.Hot = []*models.Listing{}
	}
	if st.Normal == nil {
		st.Normal = []*models.Listing{}
	}
	if st.Pending == nil {
		st.Pending = []*models.Submission{}
	}
	if st.LikesBy == nil {
		st.LikesBy = map[string][]string{}
	}
	if st.ViewsBy == nil {
		st.ViewsBy = map[string]map[string]int64{}
	}
	if st.SeenUIDs == nil {
		st.SeenUIDs = map[string]int64{}
	}
}

// View runs fn with the state under the lock, without persisting.
// fn must not retain references to the state after it returns.
func (s *Store) View(fn func(st *models.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Update runs fn with the state under the lock, then rewrites the whole
// document. The write is not retried; a failure is surfaced as
// ErrStatePersist and the in-memory mutation stands.
func (s *Store) Update(fn func(st *models.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
	return s.save()
}

// UpdateIf runs fn under the lock and persists only when fn reports a
// mutation. Lets read-mostly operations (view cooldown hits, repeated
// likes) stay no-ops without a file rewrite.
func (s *Store) UpdateIf(fn func(st *models.State) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(s.state) {
		return false, nil
	}
	return true, s.save()
}

// save serializes the full state and overwrites the file. Caller holds the
// lock. Writes are not atomic; a crash mid-write leaves a truncated file
// that the next Open repairs.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return apperrors.ErrStatePersist{Path: s.path, Reason: err.Error()}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return apperrors.ErrStatePersist{Path: s.path, Reason: err.Error()}
	}
	return nil
}
