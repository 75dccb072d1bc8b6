// Package store persists story records as a single JSON document with
// whole-file backups taken before every mutation.
//
// The store assumes one logical writer per process invocation. The backup
// protocol makes every mutation recoverable, but it is not a lock: two
// simultaneous runs against the same files can overwrite each other.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/fablecast/story-pipeline/internal/core"
	"github.com/google/renameio/v2"
)

// Reserved backup labels.
const (
	labelUpsert     = "upsert"
	labelPreRestore = "pre-restore"
)

// backupTimeFormat orders backup filenames chronologically when sorted
// lexicographically. Colons are avoided for filesystem safety.
const backupTimeFormat = "20060102T150405.000000000"

const (
	backupExtension = ".json"
	backupSeparator = "_"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Static errors.
var (
	ErrRecordNotFound = errors.New("story record not found")
	ErrBackupNotFound = errors.New("backup not found")
	ErrInvalidBackup  = errors.New("backup is not a valid store document")
	ErrLabelEmpty     = errors.New("backup label cannot be empty")
)

// document is the persisted file layout: one JSON object holding the
// stories array.
type document struct {
	Stories []core.StoryRecord `json:"stories"`
}

// FileStore is the file-backed implementation of core.StoryStore.
type FileStore struct {
	mu        sync.Mutex
	path      string
	backupDir string
	log       *logger.Logger
}

// NewFileStore opens (or initializes) the store at path, with backups kept
// in backupDir.
func NewFileStore(path, backupDir string, log *logger.Logger) (*FileStore, error) {
	dirErr := os.MkdirAll(filepath.Dir(path), dirPermissions)
	if dirErr != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", dirErr)
	}

	dirErr = os.MkdirAll(backupDir, dirPermissions)
	if dirErr != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", dirErr)
	}

	fileStore := &FileStore{
		mu:        sync.Mutex{},
		path:      path,
		backupDir: backupDir,
		log:       log,
	}

	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		writeErr := fileStore.write(&document{Stories: []core.StoryRecord{}})
		if writeErr != nil {
			return nil, writeErr
		}
	}

	return fileStore, nil
}

// Get returns the record with the given ID, or ErrRecordNotFound.
func (s *FileStore) Get(id int64) (*core.StoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	for i := range doc.Stories {
		if doc.Stories[i].ID == id {
			record := doc.Stories[i]

			return &record, nil
		}
	}

	return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
}

// ListAll returns every record in stored order.
func (s *FileStore) ListAll() ([]core.StoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	return doc.Stories, nil
}

// Upsert inserts or replaces a record, snapshotting the store first.
//
// A record whose ID already exists replaces the old one in place. A
// brand-new record is first checked against existing titles: a
// near-duplicate in the same category means the insert is already
// satisfied and is skipped.
func (s *FileStore) Upsert(record core.StoryRecord) (core.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return core.UpsertInserted, err
	}

	_, backupErr := s.writeBackup(labelUpsert)
	if backupErr != nil {
		return core.UpsertInserted, backupErr
	}

	for i := range doc.Stories {
		if doc.Stories[i].ID == record.ID {
			doc.Stories[i] = record

			return core.UpsertReplaced, s.write(doc)
		}
	}

	if s.findDuplicateTitle(doc, record) {
		s.log.Warn("Skipping insert of %q: near-duplicate title already stored",
			record.Title)

		return core.UpsertSkippedDuplicate, nil
	}

	doc.Stories = append(doc.Stories, record)

	return core.UpsertInserted, s.write(doc)
}

// Backup snapshots the current store under the given label and returns the
// backup ID.
func (s *FileStore) Backup(label string) (string, error) {
	if strings.TrimSpace(label) == "" {
		return "", ErrLabelEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeBackup(label)
}

// ListBackups returns all backups, newest first.
func (s *FileStore) ListBackups() ([]core.BackupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listBackups()
}

// Restore overwrites the live store from the named backup. The pre-restore
// state is itself snapshotted first under a reserved label, so a restore is
// always reversible.
func (s *FileStore) Restore(backupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backupPath := filepath.Join(s.backupDir, filepath.Base(backupID))

	data, readErr := os.ReadFile(backupPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, backupID)
		}

		return fmt.Errorf("failed to read backup %s: %w", backupID, readErr)
	}

	var doc document

	parseErr := json.Unmarshal(data, &doc)
	if parseErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBackup, backupID, parseErr)
	}

	_, backupErr := s.writeBackup(labelPreRestore)
	if backupErr != nil {
		return backupErr
	}

	writeErr := renameio.WriteFile(s.path, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to overwrite store from backup: %w", writeErr)
	}

	s.log.Info("Restored store from backup %s (%d records)", backupID, len(doc.Stories))

	return nil
}

// Stats computes aggregate counts by a full scan. Intended for batch use,
// not high-frequency polling.
func (s *FileStore) Stats() (core.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return core.StoreStats{}, err
	}

	backups, err := s.listBackups()
	if err != nil {
		return core.StoreStats{}, err
	}

	categories := make(map[string]struct{})
	generated := 0

	for _, record := range doc.Stories {
		categories[normalizeTitle(record.Category)] = struct{}{}

		if record.Generated {
			generated++
		}
	}

	return core.StoreStats{
		TotalRecords:       len(doc.Stories),
		GeneratedRecords:   generated,
		DistinctCategories: len(categories),
		BackupCount:        len(backups),
	}, nil
}

// PruneBackups removes all but the newest keep backups and returns how many
// were deleted.
func (s *FileStore) PruneBackups(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backups, err := s.listBackups()
	if err != nil {
		return 0, err
	}

	if keep < 0 {
		keep = 0
	}

	if len(backups) <= keep {
		return 0, nil
	}

	removed := 0

	for _, backup := range backups[keep:] {
		removeErr := os.Remove(filepath.Join(s.backupDir, backup.ID))
		if removeErr != nil {
			return removed, fmt.Errorf(
				"failed to remove backup %s: %w", backup.ID, removeErr)
		}

		removed++
	}

	return removed, nil
}

// read loads the live document.
func (s *FileStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}

	return &doc, nil
}

// write replaces the live document atomically. The rename is fsynced, so a
// crash never leaves a torn live file; it can still lose a change made
// after the last backup.
func (s *FileStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	err = renameio.WriteFile(s.path, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	return nil
}

// writeBackup copies the live file into the backup directory. Caller holds
// the lock.
func (s *FileStore) writeBackup(label string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read store for backup: %w", err)
	}

	backupID := time.Now().UTC().Format(backupTimeFormat) +
		backupSeparator + sanitizeLabel(label) + backupExtension

	backupPath := filepath.Join(s.backupDir, backupID)

	err = os.WriteFile(backupPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", backupID, err)
	}

	return backupID, nil
}

// listBackups scans the backup directory, newest first. Caller holds the
// lock.
func (s *FileStore) listBackups() ([]core.BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := make([]core.BackupInfo, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupExtension) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}

		backups = append(backups, core.BackupInfo{
			ID:        entry.Name(),
			Label:     labelFromBackupID(entry.Name()),
			CreatedAt: timeFromBackupID(entry.Name(), info.ModTime()),
			SizeBytes: info.Size(),
		})
	}

	// Filenames start with a fixed-width timestamp, so reverse-lexicographic
	// order is newest first.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ID > backups[j].ID
	})

	return backups, nil
}

// findDuplicateTitle reports whether an existing record carries a
// near-duplicate of the candidate's title within the same category.
func (s *FileStore) findDuplicateTitle(doc *document, record core.StoryRecord) bool {
	candidateTitle := normalizeTitle(record.Title)
	candidateCategory := normalizeTitle(record.Category)

	for _, existing := range doc.Stories {
		if normalizeTitle(existing.Title) == candidateTitle &&
			normalizeTitle(existing.Category) == candidateCategory {
			return true
		}
	}

	return false
}

// normalizeTitle folds case, punctuation, and whitespace so cosmetic
// differences do not defeat duplicate detection.
func normalizeTitle(title string) string {
	var builder strings.Builder

	for _, char := range strings.ToLower(title) {
		switch {
		case char >= 'a' && char <= 'z', char >= '0' && char <= '9':
			builder.WriteRune(char)
		case char > 127:
			builder.WriteRune(char)
		}
	}

	return builder.String()
}

// sanitizeLabel keeps backup filenames safe across filesystems.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)

	var builder strings.Builder

	for _, char := range label {
		switch {
		case char >= 'a' && char <= 'z',
			char >= 'A' && char <= 'Z',
			char >= '0' && char <= '9',
			char == '-', char == '_':
			builder.WriteRune(char)
		default:
			builder.WriteRune('-')
		}
	}

	return builder.String()
}

func labelFromBackupID(backupID string) string {
	trimmed := strings.TrimSuffix(backupID, backupExtension)

	_, label, found := strings.Cut(trimmed, backupSeparator)
	if !found {
		return trimmed
	}

	return label
}

func timeFromBackupID(backupID string, fallback time.Time) time.Time {
	stamp, _, found := strings.Cut(backupID, backupSeparator)
	if !found {
		return fallback
	}

	parsed, err := time.Parse(backupTimeFormat, stamp)
	if err != nil {
		return fallback
	}

	return parsed
}
