package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

type fakeBlobWriter struct {
	objects   map[string][]byte
	multipart map[string]bool
	err       error
}

func newFakeBlobWriter() *fakeBlobWriter {
	return &fakeBlobWriter{
		objects:   make(map[string][]byte),
		multipart: make(map[string]bool),
	}
}

func (f *fakeBlobWriter) Put(_ context.Context, key string, data io.Reader, _ string) error {
	if f.err != nil {
		return f.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = buf
	return nil
}

func (f *fakeBlobWriter) PutMultipart(_ context.Context, key string, data io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = buf
	f.multipart[key] = true
	return nil
}

type fakeAlertArchive struct {
	alerts  []domain.DetectionAlert
	listErr error
	deleted bool
}

func (f *fakeAlertArchive) ListBefore(context.Context, time.Time) ([]domain.DetectionAlert, error) {
	return f.alerts, f.listErr
}

func (f *fakeAlertArchive) DeleteBefore(context.Context, time.Time) (int64, error) {
	f.deleted = true
	return int64(len(f.alerts)), nil
}

func archiveLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testArchiver(writer BlobWriter, alerts AlertArchiveStore) *Archiver {
	cfg := Config{Interval: time.Hour, Retention: 30 * 24 * time.Hour}
	return NewArchiver(cfg, writer, alerts, nil, nil, archiveLogger())
}

func TestArchiveAlertsUploadsThenPrunes(t *testing.T) {
	writer := newFakeBlobWriter()
	store := &fakeAlertArchive{
		alerts: []domain.DetectionAlert{
			{ID: "a-1", Level: domain.AlertWarning, Title: "Unusual Trading Activity Detected"},
			{ID: "a-2", Level: domain.AlertCritical, Title: "Potential spoofing detected"},
		},
	}
	a := testArchiver(writer, store)

	before := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveAlerts(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, store.deleted)

	body, ok := writer.objects["archive/alerts/2026-08.jsonl"]
	require.True(t, ok)
	assert.False(t, writer.multipart["archive/alerts/2026-08.jsonl"])

	// One JSON document per line.
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	require.Len(t, lines, 2)
	var alert domain.DetectionAlert
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &alert))
	assert.Equal(t, "a-1", alert.ID)
}

func TestArchiveAlertsEmptyStoreNoUpload(t *testing.T) {
	writer := newFakeBlobWriter()
	store := &fakeAlertArchive{}
	a := testArchiver(writer, store)

	n, err := a.ArchiveAlerts(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.objects)
	assert.False(t, store.deleted)
}

func TestArchiveAlertsUploadFailureKeepsRows(t *testing.T) {
	writer := newFakeBlobWriter()
	writer.err = errors.New("s3: access denied")
	store := &fakeAlertArchive{
		alerts: []domain.DetectionAlert{{ID: "a-1"}},
	}
	a := testArchiver(writer, store)

	_, err := a.ArchiveAlerts(context.Background(), time.Now())
	require.Error(t, err)
	assert.False(t, store.deleted, "rows must survive a failed upload")
}

func TestArchiveAlertsListError(t *testing.T) {
	store := &fakeAlertArchive{listErr: errors.New("pg: relation missing")}
	a := testArchiver(newFakeBlobWriter(), store)

	_, err := a.ArchiveAlerts(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive alerts query")
}

func TestUploadSwitchesToMultipartForLargeExports(t *testing.T) {
	writer := newFakeBlobWriter()

	big := make([]domain.DetectionAlert, 0, 40000)
	desc := strings.Repeat("x", 256)
	for i := 0; i < 40000; i++ {
		big = append(big, domain.DetectionAlert{ID: "a", Description: desc})
	}

	require.NoError(t, upload(context.Background(), writer, "archive/alerts/2026-08.jsonl", big))
	assert.True(t, writer.multipart["archive/alerts/2026-08.jsonl"])
}

func TestArchivePath(t *testing.T) {
	before := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "archive/flagged_trades/2026-09.jsonl", archivePath("flagged_trades", before))
}

func TestMarshalJSONLKeepsRawStrings(t *testing.T) {
	buf, err := marshalJSONL([]domain.DetectionAlert{{Description: "score < 0.5 & rising"}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(buf, []byte("score < 0.5 & rising")))
}
