package feed

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrAuthFailure means the portal rejected the configured
// credentials. It aborts the whole refresh pass since no feed can be
// fetched without a token.
var ErrAuthFailure = errors.New("feed credentials rejected")

type downloader struct {
	cfg    Config
	client *http.Client
}

func newDownloader(cfg Config) *downloader {
	return &downloader{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// token obtains an access token from the portal's form-encoded
// username/password endpoint.
func (d *downloader) token(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("username", d.cfg.Username)
	form.Set("password", d.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.cfg.BaseURL+"/authenticate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrAuthFailure
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if body.Token == "" {
		return "", ErrAuthFailure
	}
	return body.Token, nil
}

// fetch places the feed's file, extracted if it is an archive, into a
// working directory under dataDir and returns that directory.
func (d *downloader) fetch(ctx context.Context, token string, f Feed, dataDir string) (string, error) {
	dir := filepath.Join(dataDir, strings.ReplaceAll(f.APIURL(), "/", "_"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}

	if d.cfg.DisableDownload {
		if err := d.copyFromStorage(f, dir); err != nil {
			return "", err
		}
	} else if err := d.download(ctx, token, f, dir); err != nil {
		return "", err
	}

	if strings.HasSuffix(strings.ToUpper(f.FileName()), ".ZIP") {
		if err := extractArchive(filepath.Join(dir, f.FileName())); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (d *downloader) copyFromStorage(f Feed, dir string) error {
	src := filepath.Join(d.cfg.LocalStorageDir, f.FileName())
	if err := copyFile(src, filepath.Join(dir, f.FileName())); err != nil {
		return fmt.Errorf("copying %s from local storage: %w", f.FileName(), err)
	}
	return nil
}

func (d *downloader) download(ctx context.Context, token string, f Feed, dir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.cfg.BaseURL+"/api/staticfeeds/"+f.APIURL(), nil)
	if err != nil {
		return fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", f.APIURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed %s returned %s", f.APIURL(), resp.Status)
	}

	if name := dispositionName(resp.Header.Get("Content-Disposition")); name != "" && name != f.FileName() {
		logrus.WithFields(logrus.Fields{
			"feed":     f.APIURL(),
			"expected": f.FileName(),
			"received": name,
		}).Warn("feed served an unexpected file name")
	}

	length := resp.ContentLength
	logrus.WithFields(logrus.Fields{
		"feed":  f.APIURL(),
		"file":  f.FileName(),
		"bytes": length,
	}).Info("downloading feed")

	out, err := os.Create(filepath.Join(dir, f.FileName()))
	if err != nil {
		return fmt.Errorf("creating %s: %w", f.FileName(), err)
	}
	defer out.Close()

	buf := make([]byte, d.cfg.DownloadChunkSize)
	var written int64
	lastReport := time.Time{}
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("writing %s: %w", f.FileName(), err)
			}
			written += int64(n)
			if length > 0 && time.Since(lastReport) >= time.Second {
				d.report(f.FileName(), int(written), int(length))
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// A stream error leaves a partial file behind; it must
			// not be treated as a complete download.
			return fmt.Errorf("streaming %s: %w", f.FileName(), readErr)
		}
	}
	if length > 0 {
		d.report(f.FileName(), int(length), int(length))
	}

	if d.cfg.BackupToLocal {
		if err := os.MkdirAll(d.cfg.LocalStorageDir, 0o755); err != nil {
			return fmt.Errorf("creating local storage dir: %w", err)
		}
		dst := filepath.Join(d.cfg.LocalStorageDir, f.FileName())
		if err := copyFile(filepath.Join(dir, f.FileName()), dst); err != nil {
			return fmt.Errorf("backing up %s: %w", f.FileName(), err)
		}
	}
	return nil
}

func (d *downloader) report(name string, done, outOf int) {
	if d.cfg.Progress != nil {
		d.cfg.Progress.Report(name, done, outOf)
	}
}

func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// extractArchive unpacks a downloaded ZIP into its own directory and
// removes the archive, leaving only the contained feed files.
func extractArchive(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer r.Close()

	dir := filepath.Dir(path)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening %s in archive: %w", f.Name, err)
		}
		out, err := os.Create(filepath.Join(dir, filepath.Base(f.Name)))
		if err != nil {
			rc.Close()
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return os.Remove(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
