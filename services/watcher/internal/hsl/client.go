package hsl

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ulikunitz/xz"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/snapshot"
)

var (
	// ErrNotFound is returned when the server has no file for a requested name.
	ErrNotFound = errors.New("hsl: file not found on server")
	// ErrUnavailable wraps failures on the remote side: non-2xx statuses other
	// than 404, transport errors and truncated or corrupt archives.
	ErrUnavailable = errors.New("hsl: server unavailable")
)

const (
	filePrefix   = "stations_"
	minuteLayout = "20060102T1504"
	monthLayout  = "200601"
)

// ArchiveName returns the monthly archive file name for month.
func ArchiveName(month time.Time) string {
	return filePrefix + month.UTC().Format(monthLayout) + ".tar.xz"
}

// SnapshotName returns the per-minute snapshot file name for t. The server
// stamps every snapshot at second 01.
func SnapshotName(t time.Time) string {
	return filePrefix + t.UTC().Format(minuteLayout) + "01Z.json"
}

// Client downloads station snapshots from the HSL archive and live feed.
type Client struct {
	http       *http.Client
	baseURL    string
	currentURL string
}

// NewClient builds a client. baseURL must end in a slash.
func NewClient(httpClient *http.Client, baseURL, currentURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, baseURL: baseURL, currentURL: currentURL}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w: %w", url, ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w: unexpected status %s", url, ErrUnavailable, resp.Status)
	}
	return resp, nil
}

// FetchArchive downloads the monthly tar.xz archive and extracts its regular
// files into dir, flattening member paths. It returns the extracted names.
func (c *Client) FetchArchive(ctx context.Context, month time.Time, dir string) ([]string, error) {
	resp, err := c.get(ctx, c.baseURL+ArchiveName(month))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	xr, err := xz.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w: %w", ErrUnavailable, err)
	}

	var names []string
	tr := tar.NewReader(xr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return names, fmt.Errorf("read archive: %w: %w", ErrUnavailable, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		if name == "." || name == "/" || strings.HasPrefix(name, "..") {
			continue
		}
		if err := writeFile(filepath.Join(dir, name), tr); err != nil {
			return names, err
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// FetchRange downloads every per-minute snapshot in [start, end) into dir.
// Missing or unreachable files are logged and skipped. Names for which skip
// returns true are not requested. It returns the names that were written.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time, dir string, skip func(name string) bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	var names []string
	for t := start.UTC().Truncate(time.Minute); t.Before(end); t = t.Add(time.Minute) {
		if err := ctx.Err(); err != nil {
			return names, err
		}
		name := SnapshotName(t)
		if skip != nil && skip(name) {
			continue
		}
		if err := c.fetchTo(ctx, c.baseURL+name, filepath.Join(dir, name)); err != nil {
			if ctx.Err() != nil {
				return names, ctx.Err()
			}
			log.Printf("File %s not found on server, skipping. (%v)", name, err)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// FetchCurrent saves the live feed under the snapshot name for now. The body
// must parse as a snapshot before it is written.
func (c *Client) FetchCurrent(ctx context.Context, now time.Time, dir string) (string, error) {
	resp, err := c.get(ctx, c.currentURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read current feed: %w", err)
	}

	name := SnapshotName(now)
	if _, err := snapshot.ParseBytes(name, body); err != nil {
		return "", fmt.Errorf("current feed: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// ListArchives scrapes the archive index page for monthly archive names.
func (c *Client) ListArchives(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse archive index: %w", err)
	}

	seen := map[string]bool{}
	var names []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := path.Base(href)
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".tar.xz") && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	sort.Strings(names)
	return names, nil
}

func (c *Client) fetchTo(ctx context.Context, url, dst string) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return writeFile(dst, resp.Body)
}

// writeFile writes through a temp file so a partial download never shows up
// under its final name.
func writeFile(dst string, r io.Reader) error {
	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
