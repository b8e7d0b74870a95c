package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragworks/rag/models"
)

func TestFetcherDownloadsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello from the server"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	url := server.URL + "/docs/readme.txt"
	doc, err := fetcher.Fetch(context.Background(), models.IngestFile{URL: url})
	require.NoError(t, err)

	assert.Equal(t, models.DocumentID(url), doc.ID)
	assert.Equal(t, "readme.txt", doc.Name)
	assert.Equal(t, "readme.txt", doc.Title)
	assert.Equal(t, "hello from the server", doc.Content)
	assert.Equal(t, ".txt", doc.ContentType)
}

func TestFetcherUsesMarkdownHeadingAsTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Getting Started\n\nInstall the thing.\n"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	doc, err := fetcher.Fetch(context.Background(), models.IngestFile{URL: server.URL + "/guide.md"})
	require.NoError(t, err)
	assert.Equal(t, "Getting Started", doc.Title)
}

func TestFetcherPrefersExplicitName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Heading\n\nbody\n"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	doc, err := fetcher.Fetch(context.Background(), models.IngestFile{
		URL:  server.URL + "/guide.md",
		Name: "Operator Handbook",
	})
	require.NoError(t, err)
	assert.Equal(t, "Operator Handbook", doc.Title)
}

func TestFetcherReadsLocalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("local file content"), 0o644))

	fetcher := NewHTTPFetcher(nil)
	doc, err := fetcher.Fetch(context.Background(), models.IngestFile{URL: path})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "local file content", doc.Content)
}

func TestFetcherFailureStages(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	cases := []struct {
		name  string
		url   string
		stage string
	}{
		{"http error", missing.URL + "/gone.txt", models.StageFetching},
		{"missing local file", filepath.Join(t.TempDir(), "absent.txt"), models.StageFetching},
		{"unsupported type", writeTempFile(t, "data.csv", "a,b,c"), models.StageParsing},
		{"empty document", writeTempFile(t, "empty.txt", "  \n\t "), models.StageParsing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := NewHTTPFetcher(nil)
			_, err := fetcher.Fetch(context.Background(), models.IngestFile{URL: tc.url})
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.stage, fe.Stage)
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Title", markdownTitle("# Title\nbody"))
	assert.Equal(t, "Title", markdownTitle("\n\n# Title\nbody"))
	assert.Equal(t, "", markdownTitle("plain text first\n# Title"))
	assert.Equal(t, "", markdownTitle("## Subheading only"))
}
