package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/ragworks/rag/models"
)

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			log.Printf("WARN: Failed to set Unidoc license key: %v. PDF processing will fail.", err)
		}
	}
}

// Fetcher retrieves a source file and extracts its text. Anything that is
// not text-extractable is a fatal per-document failure.
type Fetcher interface {
	Fetch(ctx context.Context, file models.IngestFile) (models.Document, error)
}

// FetchError distinguishes download failures from parse failures so the
// ingestion pipeline can report the stage a document died in.
type FetchError struct {
	Stage string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", strings.ToLower(e.Stage), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher downloads http(s) URLs and reads local paths, then extracts
// text by file type: .txt and .md directly, .pdf through UniPDF.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, file models.IngestFile) (models.Document, error) {
	raw, name, err := f.download(ctx, file.URL)
	if err != nil {
		return models.Document{}, &FetchError{Stage: models.StageFetching, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(name))
	var content string
	switch ext {
	case ".txt", ".md", ".markdown":
		content = string(raw)
	case ".pdf":
		content, err = extractTextFromPDF(raw)
		if err != nil {
			return models.Document{}, &FetchError{Stage: models.StageParsing, Err: err}
		}
	default:
		return models.Document{}, &FetchError{Stage: models.StageParsing, Err: fmt.Errorf("unsupported file type: %s", ext)}
	}
	if strings.TrimSpace(content) == "" {
		return models.Document{}, &FetchError{Stage: models.StageParsing, Err: fmt.Errorf("no extractable text in %s", name)}
	}

	title := file.Name
	if title == "" {
		title = markdownTitle(content)
	}
	if title == "" {
		title = name
	}

	return models.Document{
		ID:          models.DocumentID(file.URL),
		URL:         file.URL,
		Name:        name,
		Title:       title,
		Content:     content,
		ContentType: ext,
	}, nil
}

// download fetches the raw bytes and reports the file's base name. Local
// paths are read directly, which is what the directory watcher hands us.
func (f *HTTPFetcher) download(ctx context.Context, fileURL string) ([]byte, string, error) {
	parsed, err := url.Parse(fileURL)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("GET %s: status %d", fileURL, resp.StatusCode)
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		return raw, path.Base(parsed.Path), nil
	}

	localPath := strings.TrimPrefix(fileURL, "file://")
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return nil, "", err
	}
	return raw, filepath.Base(localPath), nil
}

// extractTextFromPDF uses UniPDF to get all text from a PDF.
func extractTextFromPDF(raw []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // Add space between pages
	}

	return sb.String(), nil
}

// markdownTitle returns the first level-one heading, if any.
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			return ""
		}
	}
	return ""
}
