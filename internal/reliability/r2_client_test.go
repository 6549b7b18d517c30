package reliability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/roi-tracker/internal/config"
)

// fakeS3 serves path-style PUT, DELETE and ListObjectsV2 for a single bucket
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/backups")
	key = strings.TrimPrefix(key, "/")

	switch {
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>backups</Name><IsTruncated>false</IsTruncated>`)
		for k, v := range f.objects {
			if strings.HasPrefix(k, prefix) {
				b.WriteString("<Contents><Key>" + k + "</Key><Size>" + strconv.Itoa(len(v)) + "</Size></Contents>")
			}
		}
		b.WriteString(`</ListBucketResult>`)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(b.String()))
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestR2Client_UploadListDelete(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := &config.BackupConfig{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "backups",
		Endpoint:        server.URL,
		Region:          "auto",
	}
	client, err := NewR2Client(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	payload := []byte("archive bytes")
	require.NoError(t, client.Upload(context.Background(), "roi-backup-2024-03-01-033000.tar.gz", bytes.NewReader(payload), int64(len(payload))))

	objects, err := client.List(context.Background(), "roi-backup-")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "roi-backup-2024-03-01-033000.tar.gz", objects[0].Key)
	assert.Greater(t, objects[0].SizeBytes, int64(0))

	require.NoError(t, client.Delete(context.Background(), "roi-backup-2024-03-01-033000.tar.gz"))
	fake.mu.Lock()
	assert.Empty(t, fake.objects)
	fake.mu.Unlock()
}

func TestNewR2Client_RequiresConfig(t *testing.T) {
	_, err := NewR2Client(context.Background(), &config.BackupConfig{}, zerolog.Nop())
	assert.Error(t, err)
}
