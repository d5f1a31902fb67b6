package output

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/contact-scraper/pkg/models"
	"github.com/Sriram-PR/contact-scraper/pkg/utils"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSink_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	sink := NewCSVSink(path, testLogger())

	records := []models.ContactRecord{
		{URL: "https://example.com/contact", Emails: []string{"a@example.com"}},
		{URL: "https://example.com/about", Phones: []string{"+1 555 123 4567"}},
		{URL: "https://example.com/team", Emails: []string{"b@example.com"}, Phones: []string{"555 000 1111"}},
	}
	for _, r := range records {
		require.NoError(t, sink.Append(r))
	}

	rows := readRows(t, path)
	require.Len(t, rows, 1+len(records))
	assert.Equal(t, []string{"url", "emails", "phones"}, rows[0])
	assert.Equal(t, []string{"https://example.com/contact", "a@example.com", ""}, rows[1])
	assert.Equal(t, []string{"https://example.com/about", "", "+1 555 123 4567"}, rows[2])
	assert.Equal(t, 3, sink.Written())
}

func TestCSVSink_MultiValueFieldsAreQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	sink := NewCSVSink(path, testLogger())

	require.NoError(t, sink.Append(models.ContactRecord{
		URL:    "https://example.com/contact",
		Emails: []string{"a@example.com", "b@example.com"},
		Phones: []string{"+1 555 123 4567", "(020) 7946 0018"},
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "url,emails,phones", lines[0])
	assert.Equal(t, `https://example.com/contact,"a@example.com, b@example.com","+1 555 123 4567, (020) 7946 0018"`, lines[1])
}

func TestCSVSink_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	first := NewCSVSink(path, testLogger())
	require.NoError(t, first.Append(models.ContactRecord{URL: "https://example.com/a", Emails: []string{"a@example.com"}}))

	// A second sink (e.g. a later run) must not write another header
	second := NewCSVSink(path, testLogger())
	require.NoError(t, second.Append(models.ContactRecord{URL: "https://example.com/b", Emails: []string{"b@example.com"}}))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "url", rows[0][0])
	assert.Equal(t, "https://example.com/b", rows[2][0])
	assert.Equal(t, 1, second.Written())
}

func TestCSVSink_EmptyExistingFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	sink := NewCSVSink(path, testLogger())
	require.NoError(t, sink.Append(models.ContactRecord{URL: "https://example.com/a", Emails: []string{"a@example.com"}}))

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
}

func TestCSVSink_PrepareCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "results.csv")
	sink := NewCSVSink(path, testLogger())

	require.NoError(t, sink.Prepare())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	require.NoError(t, sink.Append(models.ContactRecord{URL: "https://example.com/a", Phones: []string{"555 123 4567"}}))
	assert.Len(t, readRows(t, path), 2)
	assert.Equal(t, path, sink.Path())
}

func TestCSVSink_FilesystemError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	sink := NewCSVSink(filepath.Join(blocker, "results.csv"), testLogger())

	err := sink.Prepare()
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrFilesystem))

	err = sink.Append(models.ContactRecord{URL: "https://example.com/a", Emails: []string{"a@example.com"}})
	require.Error(t, err)
	assert.True(t, IsFilesystemError(err))
	assert.Equal(t, 0, sink.Written())
}

func TestCSVSink_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	sink := NewCSVSink(path, testLogger())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sink.Append(models.ContactRecord{URL: "https://example.com/x", Emails: []string{"a@example.com"}}))
		}()
	}
	wg.Wait()

	rows := readRows(t, path)
	assert.Len(t, rows, n+1)
	assert.Equal(t, n, sink.Written())
}
