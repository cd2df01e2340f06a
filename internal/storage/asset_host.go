package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAssetURLTTL = 15 * time.Minute

// AssetHostConfig describes the CDN or media host that serves uploaded video
// and image assets. When SigningSecret is set, generated URLs carry an HMAC
// signature with an expiry so the host can reject tampered links.
type AssetHostConfig struct {
	BaseURL       string
	SigningSecret string
	URLTTL        time.Duration
}

// AssetHost builds playback and thumbnail URLs for stored media keys.
type AssetHost struct {
	base   *url.URL
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAssetHost validates the configuration and returns a URL builder. An empty
// base URL disables the host; callers should fall back to raw stored URLs.
func NewAssetHost(cfg AssetHostConfig) (*AssetHost, error) {
	trimmed := strings.TrimSpace(cfg.BaseURL)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse asset host url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("asset host url must include scheme and host")
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = defaultAssetURLTTL
	}
	host := &AssetHost{
		base: parsed,
		ttl:  ttl,
		now:  time.Now,
	}
	if secret := strings.TrimSpace(cfg.SigningSecret); secret != "" {
		host.secret = []byte(secret)
	}
	return host, nil
}

// Enabled reports whether the host was configured.
func (h *AssetHost) Enabled() bool {
	return h != nil && h.base != nil
}

// URL returns the address under which the asset key is served. Signed hosts
// append expires and sig query parameters.
func (h *AssetHost) URL(key string) string {
	if !h.Enabled() {
		return ""
	}
	trimmedKey := strings.TrimLeft(strings.TrimSpace(key), "/")
	if trimmedKey == "" {
		return ""
	}
	target := *h.base
	basePath := strings.TrimRight(target.Path, "/")
	target.Path = basePath + "/" + trimmedKey

	if len(h.secret) == 0 {
		return target.String()
	}

	expires := h.now().UTC().Add(h.ttl).Unix()
	query := target.Query()
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("sig", h.sign(target.Path, expires))
	target.RawQuery = query.Encode()
	return target.String()
}

// Verify checks the signature and expiry carried by a previously issued URL
// path. Hosts that terminate playback themselves use this to validate links.
func (h *AssetHost) Verify(path string, expires int64, signature string) error {
	if !h.Enabled() || len(h.secret) == 0 {
		return errors.New("asset host signing not configured")
	}
	if expires < h.now().UTC().Unix() {
		return errors.New("asset url expired")
	}
	expected := h.sign(path, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("asset url signature mismatch")
	}
	return nil
}

func (h *AssetHost) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
