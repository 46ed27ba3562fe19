// Package assets checks that the source PDF and font exist and loads their bytes.
// A path is either a local file or an http(s) URL.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
)

// DefaultTimeout bounds one probe or fetch so an unreachable host fails fast
const DefaultTimeout = 10 * time.Second

// CheckResult reports which of the probed paths were unreachable
type CheckResult struct {
	OK      bool
	Missing []string
}

// Store probes and fetches assets
type Store struct {
	logger  *logger.Logger
	client  *http.Client
	baseDir string
	timeout time.Duration
}

// Config holds configuration for the store
type Config struct {
	Logger *logger.Logger
	// BaseDir resolves relative file paths; empty means the working directory
	BaseDir string
	Timeout time.Duration
	Client  *http.Client
}

// New creates an asset store
func New(cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Store{
		logger:  log,
		client:  client,
		baseDir: cfg.BaseDir,
		timeout: timeout,
	}
}

// IsRemote reports whether path is fetched over HTTP
func IsRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (s *Store) resolve(path string) string {
	if IsRemote(path) || s.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Probe returns nil when path can be fetched
func (s *Store) Probe(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("asset path is empty")
	}

	if !IsRemote(path) {
		info, err := os.Stat(s.resolve(path))
		if err != nil {
			return fmt.Errorf("asset not found: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("asset is a directory: %s", path)
		}
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.doContext(reqCtx, http.MethodHead, path)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// Check probes every path, without stopping at the first failure
func (s *Store) Check(ctx context.Context, paths ...string) CheckResult {
	result := CheckResult{OK: true}
	for _, p := range paths {
		if err := s.Probe(ctx, p); err != nil {
			s.logger.WithFields("path", p).WithError(err).Warn("Asset probe failed")
			result.OK = false
			result.Missing = append(result.Missing, p)
		}
	}
	return result
}

// Fetch returns the asset's bytes
func (s *Store) Fetch(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("asset path is empty")
	}

	if !IsRemote(path) {
		data, err := os.ReadFile(s.resolve(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read asset: %w", err)
		}
		return data, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.doContext(reqCtx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset body: %w", err)
	}
	s.logger.WithFields("path", path, "bytes", len(data)).Debug("Fetched asset")
	return data, nil
}

// doContext issues the request and rejects non-2xx answers
func (s *Store) doContext(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid asset URL: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("asset request failed: unexpected status %s", resp.Status)
	}
	return resp, nil
}
