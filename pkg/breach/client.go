// Package breach checks passwords against the Have I Been Pwned range API
// using k-anonymity: only the first five hex characters of the SHA-1 hash
// ever leave the machine.
package breach

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // SHA-1 is what the range API is keyed by
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Pwned Passwords endpoint.
const DefaultBaseURL = "https://api.pwnedpasswords.com"

// PrefixLength is the number of hash characters sent to the API.
const PrefixLength = 5

// DefaultTimeout bounds a single range request.
const DefaultTimeout = 5 * time.Second

// maxRangeBytes caps a range response body. Real responses are well under 1 MB.
const maxRangeBytes = 4 << 20

// Errors
var (
	ErrUnavailable   = errors.New("breach: range service unavailable")
	ErrInvalidPrefix = errors.New("breach: invalid hash prefix")
)

// Cache stores range response bodies by hash prefix.
type Cache interface {
	Get(ctx context.Context, prefix string) (body string, ok bool, err error)
	Put(ctx context.Context, prefix, body string) error
}

// Client queries the range API.
type Client struct {
	baseURL   string
	http      *http.Client
	cache     Cache
	padding   bool
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for range requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithCache sets a range cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithPadding asks the API to pad responses so their size does not reveal
// the prefix.
func WithPadding(enabled bool) Option {
	return func(c *Client) { c.padding = enabled }
}

// WithLogger sets the logger for cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a range API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: DefaultTimeout},
		padding:   true,
		userAgent: "harpocrates-breach-check",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HashPrefix returns the upper-case SHA-1 hex of password split into the
// 5-character prefix sent to the API and the suffix matched locally.
func HashPrefix(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password)) //nolint:gosec // required by the range API
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:PrefixLength], h[PrefixLength:]
}

// Check returns how many times password appears in the breach corpus.
// Zero means not found.
func (c *Client) Check(ctx context.Context, password string) (int, error) {
	prefix, suffix := HashPrefix(password)

	body, err := c.Range(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return parseRange(body, suffix)
}

// Range returns the raw range body for prefix, from the cache when possible.
func (c *Client) Range(ctx context.Context, prefix string) (string, error) {
	if !validPrefix(prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, prefix)
		if err != nil {
			c.logger.Warn("breach cache read failed", "error", err)
		} else if ok {
			return body, nil
		}
	}

	body, err := c.fetchRange(ctx, prefix)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, prefix, body); err != nil {
			c.logger.Warn("breach cache write failed", "error", err)
		}
	}
	return body, nil
}

func (c *Client) fetchRange(ctx context.Context, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return "", fmt.Errorf("breach: failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.padding {
		req.Header.Set("Add-Padding", "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRangeBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), nil
}

// parseRange finds suffix in a "SUFFIX:COUNT" per line body. Padding lines
// carry a count of 0 and never match a real hash.
func parseRange(body, suffix string) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		hash, countStr, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(hash, suffix) {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return 0, fmt.Errorf("breach: malformed range line %q: %w", line, err)
		}
		return count, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("breach: failed to read range: %w", err)
	}
	return 0, nil
}

func validPrefix(prefix string) bool {
	if len(prefix) != PrefixLength {
		return false
	}
	for _, r := range prefix {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return false
		}
	}
	return true
}
