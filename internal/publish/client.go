// Package publish uploads forest artifacts to a key-value store over HTTP.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fraud-forest/internal/cfg"
	"fraud-forest/internal/ml"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoEndpoint = errors.New("publish base URL not configured")
	ErrEmptyKey   = errors.New("publish key is empty")
	ErrTooLarge   = errors.New("artifact exceeds size limit")
	ErrRejected   = errors.New("upload rejected")
)

// Header names sent with every upload.
const (
	HeaderDigest    = "X-Content-Sha256"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

type Client struct {
	token, secret, base string
	limit               int64
	rest                *resty.Client
	now                 func() time.Time
}

// NewClient builds an uploader. Bodies larger than limit bytes are refused.
func NewClient(s cfg.PublishSettings, limit int64) *Client {
	r := resty.New()
	if s.Timeout > 0 {
		r.SetTimeout(s.Timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	return &Client{
		token:  s.Token,
		secret: s.Secret,
		base:   strings.TrimRight(s.BaseURL, "/"),
		limit:  limit,
		rest:   r,
		now:    time.Now,
	}
}

// Result describes a completed upload.
type Result struct {
	Key    string
	URL    string
	Bytes  int
	Digest string
	Status int
}

// Publish PUTs body under key. Any non-2xx status is an error and nothing
// is retried.
func (c *Client) Publish(ctx context.Context, key string, body []byte) (Result, error) {
	if c.base == "" {
		return Result{}, ErrNoEndpoint
	}
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	if c.limit > 0 && int64(len(body)) > c.limit {
		return Result{}, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(body), c.limit)
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	digest := Digest(body)
	target := c.base + "/values/" + url.PathEscape(key)

	req := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderDigest, digest).
		SetHeader(HeaderTimestamp, ts).
		SetBody(body)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if c.secret != "" {
		req.SetHeader(HeaderSignature, Sign(c.secret, digest, ts))
	}

	resp, err := req.Put(target)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("%w: status %d, body: %s", ErrRejected, resp.StatusCode(), resp.String())
	}

	res := Result{
		Key:    key,
		URL:    target,
		Bytes:  len(body),
		Digest: digest,
		Status: resp.StatusCode(),
	}
	log.Info().
		Str("key", key).
		Int("bytes", res.Bytes).
		Str("sha256", digest).
		Int("status", res.Status).
		Msg("Artifact published")
	return res, nil
}

// PublishArtifact checks that path holds a decodable forest artifact and
// uploads its bytes unchanged.
func (c *Client) PublishArtifact(ctx context.Context, key, path string) (Result, error) {
	a, raw, err := ml.LoadArtifact(path)
	if err != nil {
		return Result{}, err
	}
	log.Debug().
		Str("version", a.Meta.Version).
		Str("run_id", a.Meta.RunID).
		Int("trees", len(a.Forest)).
		Msg("Artifact loaded for publish")
	return c.Publish(ctx, key, raw)
}
