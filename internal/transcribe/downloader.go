package transcribe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// Downloader fetches a remote video into dir and returns the local path.
type Downloader interface {
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, domain.ValidationError("invalid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, domain.ValidationError(fmt.Sprintf("unsupported URL scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, domain.ValidationError("URL has no host", nil)
	}
	return u, nil
}

// HTTPDownloader downloads direct links to video files.
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPDownloader creates a downloader. A non-positive maxBytes disables
// the size cap.
func NewHTTPDownloader(client *http.Client, maxBytes int64) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDownloader{client: client, maxBytes: maxBytes}
}

// Download streams the response body to a file in dir.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", domain.ValidationError("invalid URL", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", domain.IOError("download video", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.IOError(fmt.Sprintf("download video: unexpected status %d", resp.StatusCode), nil)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		ext = ".mp4"
	}
	dest := filepath.Join(dir, "download"+ext)
	f, err := os.Create(dest)
	if err != nil {
		return "", domain.IOError("create download file", err)
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil {
		return "", domain.IOError("download video", copyErr)
	}
	if closeErr != nil {
		return "", domain.IOError("download video", closeErr)
	}
	if d.maxBytes > 0 && n > d.maxBytes {
		return "", domain.ValidationError(fmt.Sprintf("video exceeds %d bytes", d.maxBytes), nil)
	}
	return dest, nil
}

// YTDLPDownloader downloads from video sites with the yt-dlp binary.
type YTDLPDownloader struct {
	binary string
}

// NewYTDLPDownloader creates a downloader using the given binary path.
func NewYTDLPDownloader(binary string) *YTDLPDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPDownloader{binary: binary}
}

// Download runs yt-dlp and returns the path of the finished file.
func (d *YTDLPDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.binary,
		"--no-playlist",
		"--quiet",
		"-f", "bestvideo+bestaudio/best",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--no-simulate",
		"--print", "after_move:filepath",
		u.String(),
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.IOError(fmt.Sprintf("yt-dlp failed: %s", lastLines(stderr.String(), 3)), err)
	}

	var printed string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			printed = line
		}
	}
	if printed != "" {
		if _, err := os.Stat(printed); err == nil {
			return printed, nil
		}
	}

	// Older yt-dlp builds ignore --print with --no-simulate.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", domain.IOError("list download directory", err)
	}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasSuffix(e.Name(), ".part") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", domain.IOError("yt-dlp produced no file", nil)
}

// RemoteDownloader downloads direct video links over HTTP and everything
// else with yt-dlp.
type RemoteDownloader struct {
	direct Downloader
	site   Downloader
}

// NewRemoteDownloader creates a routing downloader.
func NewRemoteDownloader(direct, site Downloader) *RemoteDownloader {
	return &RemoteDownloader{direct: direct, site: site}
}

// Download picks a strategy based on the URL path extension.
func (d *RemoteDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}
	if validateExt(u.Path, VideoExtensions, "video") == nil {
		return d.direct.Download(ctx, rawURL, dir)
	}
	return d.site.Download(ctx, rawURL, dir)
}
