// Package mirror pushes debug artifacts to a GitHub repository through
// the contents API. The mirror is an optional external collaborator:
// every failure here degrades to a logged skip and never fails a merge.
package mirror

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const apiBase = "https://api.github.com"

// Client talks to one repository/branch.
type Client struct {
	repo   string // owner/name
	token  string
	branch string
	http   *http.Client
	logger *slog.Logger
}

func NewClient(repo, token, branch string, logger *slog.Logger) *Client {
	if branch == "" {
		branch = "main"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		repo:   repo,
		token:  token,
		branch: branch,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Enabled reports whether the mirror is configured at all.
func (c *Client) Enabled() bool {
	return c != nil && c.repo != "" && c.token != ""
}

// UploadDir pushes every file under localDir to remotePrefix, creating
// or updating files as needed. It uploads what it can and returns the
// joined failures for the caller's log line.
func (c *Client) UploadDir(ctx context.Context, localDir, remotePrefix string) error {
	if !c.Enabled() {
		return nil
	}

	var errs []error
	err := filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		remote := path.Join(remotePrefix, filepath.ToSlash(rel))
		if upErr := c.uploadFile(ctx, p, remote); upErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", remote, upErr))
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Client) uploadFile(ctx context.Context, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	contentsURL := fmt.Sprintf("%s/repos/%s/contents/%s", apiBase, c.repo, sanitizePath(remotePath))

	// An existing file needs its blob sha to be replaced.
	sha, err := c.fileSHA(ctx, contentsURL)
	if err != nil {
		c.logger.Debug("mirror.sha lookup failed", "path", remotePath, "error", err)
	}

	body := map[string]any{
		"message": "Add " + remotePath,
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
		body["message"] = "Update " + remotePath
	}
	_, err = c.do(ctx, http.MethodPut, contentsURL, body)
	return err
}

// DeleteFolder removes every file under remotePath on the mirror,
// descending into subdirectories.
func (c *Client) DeleteFolder(ctx context.Context, remotePath string) error {
	if !c.Enabled() {
		return nil
	}

	listURL := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", apiBase, c.repo, sanitizePath(remotePath), url.QueryEscape(c.branch))
	raw, err := c.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return err
	}

	var items []struct {
		Type string `json:"type"`
		Path string `json:"path"`
		SHA  string `json:"sha"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		// A single file comes back as one object, not an array.
		var one struct {
			Type string `json:"type"`
			Path string `json:"path"`
			SHA  string `json:"sha"`
		}
		if err := json.Unmarshal(raw, &one); err != nil {
			return fmt.Errorf("decode contents listing: %w", err)
		}
		items = append(items, one)
	}

	var errs []error
	for _, item := range items {
		if item.Type == "dir" {
			if err := c.DeleteFolder(ctx, item.Path); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if item.SHA == "" || item.Path == "" {
			continue
		}
		fileURL := fmt.Sprintf("%s/repos/%s/contents/%s", apiBase, c.repo, sanitizePath(item.Path))
		body := map[string]any{
			"message": "Delete " + item.Path,
			"sha":     item.SHA,
			"branch":  c.branch,
		}
		if _, err := c.do(ctx, http.MethodDelete, fileURL, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.Path, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) fileSHA(ctx context.Context, contentsURL string) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, contentsURL+"?ref="+url.QueryEscape(c.branch), nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.SHA, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body map[string]any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github api %s %s: %s", method, rawURL, resp.Status)
	}
	return data, nil
}

// sanitizePath mirrors artifact paths into repo-safe ones: spaces become
// underscores, everything else is percent-escaped per segment.
func sanitizePath(p string) string {
	p = strings.ReplaceAll(p, " ", "_")
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
