package dataset

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"audit-analytics/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day int) time.Time {
	return time.Date(2024, time.March, day, 10, 0, 0, 0, time.UTC)
}

func score(v float64) *float64 { return &v }

func sampleSnapshot() *audit.Snapshot {
	return &audit.Snapshot{
		HotelID:   "h1",
		FetchedAt: at(20),
		Areas:     []audit.Area{{ID: "a1", Name: "Kitchen"}},
		Templates: []audit.Template{{ID: "t1", Name: "Cold chain", AreaID: "a1", Active: true}},
		Sections:  []audit.Section{{ID: "s1", Name: "Fridges", TemplateID: "t1"}},
		Questions: []audit.Question{{ID: "q1", SectionID: "s1", Active: true, Tag: "temperature"}},
		Members:   []audit.Member{{ID: "m1", Name: "Ana"}},
		Runs: []audit.Run{
			{ID: "r2", AreaID: "a1", TemplateID: "t1", MemberID: "m1", ExecutedAt: at(5), Status: audit.StatusSubmitted, Score: score(80)},
			{ID: "r1", AreaID: "a1", TemplateID: "t1", MemberID: "m1", ExecutedAt: at(2), Status: audit.StatusSubmitted, Score: score(60)},
		},
		Answers: []audit.Answer{
			{RunID: "r1", QuestionID: "q1", Result: audit.StrPtr("FAIL")},
			{RunID: "r2", QuestionID: "q1", Answer: audit.StrPtr("PASS")},
		},
	}
}

func TestStore_PutDeduplicates(t *testing.T) {
	s := NewStore()
	added := s.Put(sampleSnapshot())
	assert.Equal(t, 9, added)

	again := sampleSnapshot()
	again.Runs[0].Score = score(90)
	again.Answers[0].Result = audit.StrPtr("PASS")
	assert.Equal(t, 0, s.Put(again), "same records must not be added twice")

	snap := s.Snapshot("h1")
	require.NotNil(t, snap)
	assert.Len(t, snap.Runs, 2)
	assert.Equal(t, 90.0, *snap.Runs[0].Score, "newer copy replaces the stored run")
	assert.Equal(t, audit.Pass, snap.Answers[0].Value())
	for _, r := range snap.Runs {
		assert.Equal(t, "h1", r.HotelID, "runs inherit the partition's hotel")
	}
}

func TestStore_ReplaceDropsDeletedRecords(t *testing.T) {
	s := NewStore()
	added, removed := s.Replace(sampleSnapshot())
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, removed)

	// Upstream deleted r1, its answer and the only template.
	fresh := sampleSnapshot()
	fresh.FetchedAt = at(21)
	fresh.Runs = fresh.Runs[:1]
	fresh.Answers = fresh.Answers[1:]
	fresh.Templates = nil
	fresh.Runs = append(fresh.Runs, audit.Run{ID: "r3", AreaID: "a1", ExecutedAt: at(6), Status: audit.StatusSubmitted})

	added, removed = s.Replace(fresh)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)

	snap := s.Snapshot("h1")
	require.NotNil(t, snap)
	assert.Equal(t, at(21), snap.FetchedAt)
	require.Len(t, snap.Runs, 2)
	assert.Equal(t, "r2", snap.Runs[0].ID)
	assert.Equal(t, "r3", snap.Runs[1].ID)
	require.Len(t, snap.Answers, 1)
	assert.Equal(t, "r2", snap.Answers[0].RunID)
	assert.Empty(t, snap.Templates)

	// Put, in contrast, keeps what it already had.
	s.Put(sampleSnapshot())
	assert.Equal(t, 3, s.Count("h1"))
}

func TestStore_IgnoresUnscopedSnapshots(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Put(nil))
	assert.Equal(t, 0, s.Put(&audit.Snapshot{Runs: []audit.Run{{ID: "r1"}}}))
	added, removed := s.Replace(&audit.Snapshot{Runs: []audit.Run{{ID: "r1"}}})
	assert.Zero(t, added+removed)
	assert.Empty(t, s.Hotels())
	assert.Nil(t, s.Snapshot("h1"))
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.Put(sampleSnapshot())

	first := s.Snapshot("h1")
	*first.Runs[0].Score = 0
	*first.Answers[0].Result = "NA"
	first.Areas[0].Name = "changed"

	second := s.Snapshot("h1")
	assert.Equal(t, 80.0, *second.Runs[0].Score)
	assert.Equal(t, audit.Fail, second.Answers[0].Value())
	assert.Equal(t, "Kitchen", second.Areas[0].Name)
}

func TestStore_Partitions(t *testing.T) {
	s := NewStore()
	s.Put(sampleSnapshot())
	other := sampleSnapshot()
	other.HotelID = "h2"
	other.Runs = other.Runs[:1]
	s.Put(other)

	assert.Equal(t, []string{"h1", "h2"}, s.Hotels())
	assert.Equal(t, 2, s.Count("h1"))
	assert.Equal(t, 1, s.Count("h2"))
	assert.Equal(t, 0, s.Count("h3"))
	assert.Equal(t, at(5), s.LatestRun("h1"))
	assert.True(t, s.LatestRun("h3").IsZero())
}

func TestStore_RunsInRange(t *testing.T) {
	s := NewStore()
	s.Put(sampleSnapshot())

	runs := s.RunsInRange("h1", at(1), time.Time{})
	require.Len(t, runs, 2)
	assert.Equal(t, "r1", runs[0].ID, "oldest first")

	runs = s.RunsInRange("h1", at(3), at(10))
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)

	assert.Nil(t, s.RunsInRange("missing", at(1), at(2)))
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	s1 := NewStore()
	s1.Put(sampleSnapshot())
	require.NoError(t, s1.Save(dir, "h1"))

	_, err := os.Stat(filepath.Join(dir, "h1.jsonl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "h1.jsonl.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	s2 := NewStore()
	require.NoError(t, s2.Load(dir, "h1"))
	assert.Equal(t, s1.Snapshot("h1"), s2.Snapshot("h1"))

	// Reload on top of existing data changes nothing.
	require.NoError(t, s2.Load(dir, "h1"))
	assert.Equal(t, 2, s2.Count("h1"))
}

func TestStore_LoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	require.NoError(t, s.Load(dir, "nothing-here"))
	assert.Nil(t, s.Snapshot("nothing-here"))

	content := `{"kind":"run","run":{"id":"r1","status":"submitted","score":70}}
not json
{"kind":"unknown"}
{"kind":"answer","answer":{"run_id":"r1","question_id":"q1","result":"FAIL"}}
`
	path, err := CachePath(dir, "h9")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, s.Load(dir, "h9"))

	snap := s.Snapshot("h9")
	require.NotNil(t, snap)
	assert.Len(t, snap.Runs, 1)
	assert.Len(t, snap.Answers, 1)
}

func TestStore_SaveCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := NewStore()
	s.Put(sampleSnapshot())
	require.NoError(t, s.Save(dir, "h1"))
	_, err := os.Stat(filepath.Join(dir, "h1.jsonl"))
	assert.NoError(t, err)
}

func TestStore_SaveEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewStore().Save(dir, "h1"))
	_, err := os.Stat(filepath.Join(dir, "h1.jsonl"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Put(sampleSnapshot())
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot("h1")
			_ = s.RunsInRange("h1", at(1), at(30))
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, s.Count("h1"))
}

func TestValidateHotelID(t *testing.T) {
	for _, id := range []string{"h1", "HOTELTEST_0", "3f2b7c1e-9a4d-4c1b-8f3e-2a1b0c9d8e7f"} {
		assert.NoError(t, ValidateHotelID(id), id)
	}
	for _, id := range []string{"", ".", "..", "../escaped", "a/../b", "nested/h1", `..\h1`, "/etc/passwd"} {
		assert.ErrorIs(t, ValidateHotelID(id), ErrInvalidHotelID, id)
	}
}

func TestStore_CacheStaysInsideCacheDir(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, "cache")

	s := NewStore()
	snap := sampleSnapshot()
	snap.HotelID = "../escaped"
	s.Put(snap)

	assert.ErrorIs(t, s.Save(cacheDir, "../escaped"), ErrInvalidHotelID)
	_, err := os.Stat(filepath.Join(root, "escaped.jsonl"))
	assert.True(t, os.IsNotExist(err), "no file may be written outside the cache dir")

	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "b.jsonl"), []byte(`{"kind":"run","run":{"id":"r1","status":"submitted"}}`+"\n"), 0644))
	assert.ErrorIs(t, s.Load(cacheDir, "a/../b"), ErrInvalidHotelID)
	assert.Nil(t, s.Snapshot("a/../b"))
}
