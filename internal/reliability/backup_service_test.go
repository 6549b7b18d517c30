package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/roi-tracker/internal/database"
	"github.com/aristath/roi-tracker/internal/events"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, _ string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Object, 0, len(m.objects))
	for k, v := range m.objects {
		out = append(out, Object{Key: k, SizeBytes: int64(len(v))})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func setupHistoryDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "history.db"), Name: "history"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	_, err = db.Conn().Exec(`INSERT INTO snapshots (run_id, version, current_period, record_count, alert_count, payload, recorded_at)
		VALUES ('run-1', 1, 1, 0, 0, x'80', 1700000000)`)
	require.NoError(t, err)
	return db
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUpload(t *testing.T) {
	db := setupHistoryDB(t)
	store := newMemoryStore()
	bus := events.NewBus(zerolog.Nop())

	var completed *events.BackupCompletedData
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) {
		completed = e.Data.(*events.BackupCompletedData)
	})

	service := NewBackupService(db, store, t.TempDir(), bus, zerolog.Nop())
	service.now = func() time.Time { return time.Date(2024, 3, 1, 3, 30, 0, 0, time.UTC) }

	info, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "roi-backup-2024-03-01-033000.tar.gz", info.Filename)

	data, ok := store.objects[info.Filename]
	require.True(t, ok)
	assert.Equal(t, int64(len(data)), info.SizeBytes)

	files := readArchive(t, data)
	require.Contains(t, files, "history.db")
	require.Contains(t, files, metadataFile)
	assert.True(t, bytes.HasPrefix(files["history.db"], []byte("SQLite format 3")))

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "history", metadata.Databases[0].Name)
	assert.Equal(t, int64(len(files["history.db"])), metadata.Databases[0].SizeBytes)
	assert.Contains(t, metadata.Databases[0].Checksum, "sha256:")

	require.NotNil(t, completed)
	assert.Equal(t, info.Filename, completed.Archive)
}

func TestCreateAndUpload_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unavailable")
	service := NewBackupService(setupHistoryDB(t), store, t.TempDir(), nil, zerolog.Nop())

	_, err := service.CreateAndUpload(context.Background())
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestCreateAndUpload_Disabled(t *testing.T) {
	service := NewBackupService(nil, nil, t.TempDir(), nil, zerolog.Nop())
	assert.False(t, service.Enabled())

	_, err := service.CreateAndUpload(context.Background())
	assert.Error(t, err)

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestListAndRotateBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, daysAgo := range []int{1, 5, 40, 50, 60} {
		store.objects[ArchiveName(now.AddDate(0, 0, -daysAgo))] = []byte("x")
	}
	store.objects["unrelated.txt"] = []byte("x")

	service := NewBackupService(setupHistoryDB(t), store, t.TempDir(), nil, zerolog.Nop())
	service.now = func() time.Time { return now }

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 5)
	assert.True(t, sort.SliceIsSorted(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	}))
	assert.Equal(t, int64(24), backups[0].AgeHours)

	deleted, err := service.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.ElementsMatch(t, []string{
		ArchiveName(now.AddDate(0, 0, -50)),
		ArchiveName(now.AddDate(0, 0, -60)),
	}, store.deleted)

	deleted, err = service.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestParseArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 1, 3, 30, 15, 0, time.UTC)
	parsed, ok := parseArchiveName(ArchiveName(at))
	require.True(t, ok)
	assert.True(t, at.Equal(parsed))

	_, ok = parseArchiveName("roi-backup-garbage.tar.gz")
	assert.False(t, ok)
}
