// Package store_test tests the file-backed story store.
package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/fablecast/story-pipeline/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()

	baseDir := t.TempDir()

	log, err := logger.New(baseDir, "store-test.log")
	require.NoError(t, err)

	fileStore, err := store.NewFileStore(
		filepath.Join(baseDir, "stories.json"),
		filepath.Join(baseDir, "backups"),
		log,
	)
	require.NoError(t, err)

	return fileStore
}

func makeRecord(id int64, title, category string) core.StoryRecord {
	return core.StoryRecord{
		ID:            id,
		Title:         title,
		Description:   "a test story",
		Category:      category,
		Dialect:       "en",
		DurationLabel: "2 min",
		AudioURI:      "nats://audio/story.mp3",
		ThumbnailURI:  "",
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Generated:     true,
		Tags:          []string{"test"},
	}
}

func TestUpsertInsertAndGet(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	result, err := fileStore.Upsert(makeRecord(1, "The Lost Lantern", "horror"))
	require.NoError(t, err)
	assert.Equal(t, core.UpsertInserted, result)

	record, err := fileStore.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "The Lost Lantern", record.Title)

	_, err = fileStore.Get(42)
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestUpsertIsIdempotentByID(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	first := makeRecord(7, "First Title", "horror")
	_, err := fileStore.Upsert(first)
	require.NoError(t, err)

	second := first
	second.Description = "updated description"

	result, err := fileStore.Upsert(second)
	require.NoError(t, err)
	assert.Equal(t, core.UpsertReplaced, result)

	records, err := fileStore.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "updated description", records[0].Description)
}

func TestUpsertSuppressesDuplicateTitles(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Upsert(makeRecord(1, "The Lost Lantern", "horror"))
	require.NoError(t, err)

	// Same title, different ID, cosmetic differences only.
	result, err := fileStore.Upsert(makeRecord(2, "the lost  lantern!", "Horror"))
	require.NoError(t, err)
	assert.Equal(t, core.UpsertSkippedDuplicate, result)

	records, err := fileStore.ListAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUpsertSameTitleDifferentCategoryIsAllowed(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Upsert(makeRecord(1, "The Lost Lantern", "horror"))
	require.NoError(t, err)

	result, err := fileStore.Upsert(makeRecord(2, "The Lost Lantern", "comedy"))
	require.NoError(t, err)
	assert.Equal(t, core.UpsertInserted, result)
}

func TestUpsertReplaceKeepsPosition(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Upsert(makeRecord(1, "Alpha", "horror"))
	require.NoError(t, err)
	_, err = fileStore.Upsert(makeRecord(2, "Beta", "comedy"))
	require.NoError(t, err)

	updated := makeRecord(1, "Alpha Revised", "horror")
	_, err = fileStore.Upsert(updated)
	require.NoError(t, err)

	records, err := fileStore.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alpha Revised", records[0].Title)
	assert.Equal(t, "Beta", records[1].Title)
}

func TestEveryMutationWritesABackup(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Upsert(makeRecord(1, "Alpha", "horror"))
	require.NoError(t, err)

	backups, err := fileStore.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "upsert", backups[0].Label)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	recordA := makeRecord(1, "Story A", "horror")
	_, err := fileStore.Upsert(recordA)
	require.NoError(t, err)

	backupID, err := fileStore.Backup("x")
	require.NoError(t, err)
	require.NotEmpty(t, backupID)

	_, err = fileStore.Upsert(makeRecord(2, "Story B", "comedy"))
	require.NoError(t, err)

	err = fileStore.Restore(backupID)
	require.NoError(t, err)

	// B's insert is undone.
	records, err := fileStore.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Story A", records[0].Title)

	// A further backup captures the pre-restore, B-containing state.
	backups, err := fileStore.ListBackups()
	require.NoError(t, err)
	require.NotEmpty(t, backups)
	assert.Equal(t, "pre-restore", backups[0].Label)
}

func TestRestoreUnknownBackup(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	err := fileStore.Restore("no-such-backup.json")
	require.ErrorIs(t, err, store.ErrBackupNotFound)
}

func TestBackupRejectsEmptyLabel(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Backup("   ")
	require.ErrorIs(t, err, store.ErrLabelEmpty)
}

func TestListBackupsNewestFirst(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Backup("first")
	require.NoError(t, err)
	_, err = fileStore.Backup("second")
	require.NoError(t, err)

	backups, err := fileStore.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "second", backups[0].Label)
	assert.Equal(t, "first", backups[1].Label)
}

func TestStats(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.Upsert(makeRecord(1, "Alpha", "horror"))
	require.NoError(t, err)

	manual := makeRecord(2, "Beta", "comedy")
	manual.Generated = false

	_, err = fileStore.Upsert(manual)
	require.NoError(t, err)

	_, err = fileStore.Upsert(makeRecord(3, "Gamma", "Horror"))
	require.NoError(t, err)

	stats, err := fileStore.Stats()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.GeneratedRecords)
	assert.Equal(t, 2, stats.DistinctCategories)
	assert.Equal(t, 3, stats.BackupCount)
}

func TestPruneBackups(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	for _, label := range []string{"one", "two", "three", "four"} {
		_, err := fileStore.Backup(label)
		require.NoError(t, err)
	}

	removed, err := fileStore.PruneBackups(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	backups, err := fileStore.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "four", backups[0].Label)
	assert.Equal(t, "three", backups[1].Label)
}
