package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"audit-analytics/internal/audit"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe storage for audit snapshots, partitioned by hotel.
type Store struct {
	mu     sync.RWMutex
	hotels map[string]*partition
}

// partition keeps every collection in insertion order; index maps identity to position.
type partition struct {
	fetchedAt time.Time
	areas     table[audit.Area]
	templates table[audit.Template]
	sections  table[audit.Section]
	questions table[audit.Question]
	members   table[audit.Member]
	runs      table[audit.Run]
	answers   table[audit.Answer]
}

type table[T any] struct {
	rows  []T
	index map[string]int
}

// upsert replaces a row with the same identity, otherwise appends. It reports whether a row was added.
func (t *table[T]) upsert(id string, row T) bool {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[id]; ok {
		t.rows[i] = row
		return false
	}
	t.index[id] = len(t.rows)
	t.rows = append(t.rows, row)
	return true
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{hotels: make(map[string]*partition)}
}

// Put merges a snapshot into the hotel's partition. Records already present
// (same id; same run and question for answers) are replaced by the newer copy.
// It returns the number of records that were not stored before.
func (s *Store) Put(snap *audit.Snapshot) int {
	if snap == nil || snap.HotelID == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.hotels[snap.HotelID]
	if !ok {
		p = &partition{}
		s.hotels[snap.HotelID] = p
	}
	return p.merge(snap)
}

// Replace swaps the hotel's partition for the snapshot, which must hold the
// hotel's full current state. Records missing from it are dropped. It returns
// how many runs were added and removed compared with what was stored.
func (s *Store) Replace(snap *audit.Snapshot) (added, removed int) {
	if snap == nil || snap.HotelID == "" {
		return 0, 0
	}

	fresh := &partition{}
	fresh.merge(snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.hotels[snap.HotelID]
	s.hotels[snap.HotelID] = fresh
	if old == nil {
		return len(fresh.runs.rows), 0
	}
	for id := range fresh.runs.index {
		if _, ok := old.runs.index[id]; !ok {
			added++
		}
	}
	for id := range old.runs.index {
		if _, ok := fresh.runs.index[id]; !ok {
			removed++
		}
	}
	return added, removed
}

func (p *partition) merge(snap *audit.Snapshot) int {
	if snap.FetchedAt.After(p.fetchedAt) {
		p.fetchedAt = snap.FetchedAt
	}

	added := 0
	count := func(isNew bool) {
		if isNew {
			added++
		}
	}
	for _, a := range snap.Areas {
		count(p.areas.upsert(a.ID, a))
	}
	for _, t := range snap.Templates {
		count(p.templates.upsert(t.ID, t))
	}
	for _, sec := range snap.Sections {
		count(p.sections.upsert(sec.ID, sec))
	}
	for _, q := range snap.Questions {
		count(p.questions.upsert(q.ID, q))
	}
	for _, m := range snap.Members {
		count(p.members.upsert(m.ID, m))
	}
	for _, r := range snap.Runs {
		if r.HotelID == "" {
			r.HotelID = snap.HotelID
		}
		count(p.runs.upsert(r.ID, r))
	}
	for _, a := range snap.Answers {
		count(p.answers.upsert(answerIdentity(a), a))
	}
	return added
}

func answerIdentity(a audit.Answer) string {
	return a.RunID + "|" + a.QuestionID
}

// Snapshot returns a deep copy of everything stored for the hotel, or nil when
// nothing is stored.
func (s *Store) Snapshot(hotelID string) *audit.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.hotels[hotelID]
	if !ok {
		return nil
	}

	snap := &audit.Snapshot{
		HotelID:   hotelID,
		FetchedAt: p.fetchedAt,
		Areas:     make([]audit.Area, 0, len(p.areas.rows)),
		Templates: slices.Clone(p.templates.rows),
		Sections:  slices.Clone(p.sections.rows),
		Questions: slices.Clone(p.questions.rows),
		Members:   slices.Clone(p.members.rows),
		Runs:      make([]audit.Run, 0, len(p.runs.rows)),
		Answers:   make([]audit.Answer, 0, len(p.answers.rows)),
	}
	for _, a := range p.areas.rows {
		a.SortOrder = clonePtr(a.SortOrder)
		snap.Areas = append(snap.Areas, a)
	}
	for _, r := range p.runs.rows {
		r.Score = clonePtr(r.Score)
		snap.Runs = append(snap.Runs, r)
	}
	for _, a := range p.answers.rows {
		a.Result = clonePtr(a.Result)
		a.Answer = clonePtr(a.Answer)
		snap.Answers = append(snap.Answers, a)
	}
	return snap
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Hotels lists the hotel ids held by the store.
func (s *Store) Hotels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.hotels))
	for id := range s.hotels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count returns the number of runs stored for a hotel.
func (s *Store) Count(hotelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.hotels[hotelID]; ok {
		return len(p.runs.rows)
	}
	return 0
}

// LatestRun returns the execution time of the most recent run of a hotel.
func (s *Store) LatestRun(hotelID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	if p, ok := s.hotels[hotelID]; ok {
		for _, r := range p.runs.rows {
			if r.ExecutedAt.After(latest) {
				latest = r.ExecutedAt
			}
		}
	}
	return latest
}

// RunsInRange returns copies of the runs executed within [start, end], oldest first.
// A zero end leaves the range open.
func (s *Store) RunsInRange(hotelID string, start, end time.Time) []audit.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.hotels[hotelID]
	if !ok {
		return nil
	}

	var result []audit.Run
	for _, r := range p.runs.rows {
		if r.ExecutedAt.Before(start) || (!end.IsZero() && r.ExecutedAt.After(end)) {
			continue
		}
		r.Score = clonePtr(r.Score)
		result = append(result, r)
	}
	slices.SortStableFunc(result, func(a, b audit.Run) int {
		if c := a.ExecutedAt.Compare(b.ExecutedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

// record is one JSONL line of the cache file. Exactly one payload field is set.
type record struct {
	Kind      string          `json:"kind"`
	FetchedAt *time.Time      `json:"fetched_at,omitempty"`
	Area      *audit.Area     `json:"area,omitempty"`
	Template  *audit.Template `json:"template,omitempty"`
	Section   *audit.Section  `json:"section,omitempty"`
	Question  *audit.Question `json:"question,omitempty"`
	Member    *audit.Member   `json:"member,omitempty"`
	Run       *audit.Run      `json:"run,omitempty"`
	Answer    *audit.Answer   `json:"answer,omitempty"`
}

func (r record) apply(snap *audit.Snapshot) bool {
	switch {
	case r.Kind == "meta" && r.FetchedAt != nil:
		snap.FetchedAt = *r.FetchedAt
	case r.Kind == "area" && r.Area != nil:
		snap.Areas = append(snap.Areas, *r.Area)
	case r.Kind == "template" && r.Template != nil:
		snap.Templates = append(snap.Templates, *r.Template)
	case r.Kind == "section" && r.Section != nil:
		snap.Sections = append(snap.Sections, *r.Section)
	case r.Kind == "question" && r.Question != nil:
		snap.Questions = append(snap.Questions, *r.Question)
	case r.Kind == "member" && r.Member != nil:
		snap.Members = append(snap.Members, *r.Member)
	case r.Kind == "run" && r.Run != nil:
		snap.Runs = append(snap.Runs, *r.Run)
	case r.Kind == "answer" && r.Answer != nil:
		snap.Answers = append(snap.Answers, *r.Answer)
	default:
		return false
	}
	return true
}

func records(snap *audit.Snapshot) []record {
	out := []record{{Kind: "meta", FetchedAt: &snap.FetchedAt}}
	for i := range snap.Areas {
		out = append(out, record{Kind: "area", Area: &snap.Areas[i]})
	}
	for i := range snap.Templates {
		out = append(out, record{Kind: "template", Template: &snap.Templates[i]})
	}
	for i := range snap.Sections {
		out = append(out, record{Kind: "section", Section: &snap.Sections[i]})
	}
	for i := range snap.Questions {
		out = append(out, record{Kind: "question", Question: &snap.Questions[i]})
	}
	for i := range snap.Members {
		out = append(out, record{Kind: "member", Member: &snap.Members[i]})
	}
	for i := range snap.Runs {
		out = append(out, record{Kind: "run", Run: &snap.Runs[i]})
	}
	for i := range snap.Answers {
		out = append(out, record{Kind: "answer", Answer: &snap.Answers[i]})
	}
	return out
}

// ErrInvalidHotelID reports a hotel id that cannot name a cache file.
var ErrInvalidHotelID = errors.New("invalid hotel id")

// ValidateHotelID rejects ids that are empty or that would resolve outside the
// cache directory once used as a file name.
func ValidateHotelID(hotelID string) error {
	if hotelID == "" || hotelID == "." || hotelID == ".." ||
		strings.ContainsAny(hotelID, `/\`) || filepath.Base(hotelID) != hotelID {
		return fmt.Errorf("%w: %q", ErrInvalidHotelID, hotelID)
	}
	return nil
}

// CachePath is the JSONL file holding a hotel's records.
func CachePath(cacheDir, hotelID string) (string, error) {
	if err := ValidateHotelID(hotelID); err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, fmt.Sprintf("%s.jsonl", hotelID)), nil
}

// Load reads a hotel's records from its JSONL cache file. A missing file is not an error.
func (s *Store) Load(cacheDir string, hotelID string) error {
	path, err := CachePath(cacheDir, hotelID)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer file.Close()

	snap := &audit.Snapshot{HotelID: hotelID}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var r record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			log.Warn().Err(err).Str("hotel_id", hotelID).Msg("Skipping invalid JSON line in cache")
			continue
		}
		if !r.apply(snap) {
			log.Warn().Str("hotel_id", hotelID).Str("kind", r.Kind).Msg("Skipping unknown record in cache")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading cache: %w", err)
	}

	log.Info().Str("hotel_id", hotelID).Int("runs", len(snap.Runs)).Int("answers", len(snap.Answers)).Msg("Loaded snapshot from cache")
	s.Put(snap)
	return nil
}

// Save persists a hotel's records to its JSONL cache file, replacing it atomically.
func (s *Store) Save(cacheDir string, hotelID string) error {
	path, err := CachePath(cacheDir, hotelID)
	if err != nil {
		return err
	}
	snap := s.Snapshot(hotelID)
	if snap == nil {
		return nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, r := range records(snap) {
		if err := encoder.Encode(r); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode %s record: %w", r.Kind, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info().Str("hotel_id", hotelID).Int("runs", len(snap.Runs)).Msg("Snapshot saved to cache")
	return nil
}
