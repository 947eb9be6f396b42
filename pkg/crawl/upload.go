package crawl

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UploadConfig configures the presigned-URL upload of crawl output.
type UploadConfig struct {
	// APIBase is the service issuing presigned upload URLs
	APIBase string

	// Prefix is the root bucket directory; each run uploads under
	// prefix/<source>/<timestamp>
	Prefix string

	// Auth is sent as the Authorization header when non-empty
	Auth string
}

// UploadSink pushes each crawler's CSV output to object storage through a
// presigned-URL API: one GET to obtain the upload target, one PUT with the
// file bytes. All runs of one batch share a timestamp so their objects land
// under the same directory per source.
type UploadSink struct {
	cfg    UploadConfig
	client *http.Client
	stamp  string
}

// NewUploadSink creates an upload sink. The batch timestamp is fixed at
// construction.
func NewUploadSink(cfg UploadConfig) *UploadSink {
	return &UploadSink{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		stamp:  time.Now().UTC().Format("20060102-150405"),
	}
}

type uploadTarget struct {
	uploadURL string
	objectURL string
}

// Write implements Sink.
func (s *UploadSink) Write(ctx context.Context, source string, records []Record) error {
	body, err := encodeCSV(records)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s.csv", source, s.stamp)
	prefix := strings.Trim(s.cfg.Prefix, "/") + "/" + source + "/" + s.stamp

	target, err := s.presign(ctx, prefix, name)
	if err != nil {
		return fmt.Errorf("requesting upload url for %s: %w", name, err)
	}
	if err := s.put(ctx, target.uploadURL, body); err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	return nil
}

// presign asks the API for an upload target. The response may spell the two
// URL fields several ways depending on the API version.
func (s *UploadSink) presign(ctx context.Context, prefix, name string) (uploadTarget, error) {
	endpoint := strings.TrimRight(s.cfg.APIBase, "/") + "/v1/image/presigned-url"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return uploadTarget{}, err
	}

	q := req.URL.Query()
	q.Set("prefix", prefix)
	q.Set("fileName", name)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if s.cfg.Auth != "" {
		req.Header.Set("Authorization", s.cfg.Auth)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return uploadTarget{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uploadTarget{}, fmt.Errorf("presign API returned %d", resp.StatusCode)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return uploadTarget{}, fmt.Errorf("decoding presign response: %w", err)
	}

	target := uploadTarget{
		uploadURL: firstValue(payload, "presignedUrl", "preSignedUrl", "url", "uploadUrl"),
		objectURL: firstValue(payload, "objectUrl", "objectURL", "object_url"),
	}
	if target.uploadURL == "" || target.objectURL == "" {
		return uploadTarget{}, fmt.Errorf("unexpected presign response: %v", payload)
	}
	return target, nil
}

func (s *UploadSink) put(ctx context.Context, uploadURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if needsContentMD5(uploadURL) {
		sum := md5.Sum(body)
		req.Header.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return fmt.Errorf("PUT returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// needsContentMD5 reports whether the presigned URL was signed over a
// Content-MD5 header, in which case the PUT must carry one.
func needsContentMD5(uploadURL string) bool {
	u, err := url.Parse(uploadURL)
	if err != nil {
		return false
	}
	q := u.Query()
	if q.Has("Content-MD5") {
		return true
	}
	return strings.Contains(strings.ToLower(q.Get("X-Amz-SignedHeaders")), "content-md5")
}

func firstValue(payload map[string]string, keys ...string) string {
	for _, key := range keys {
		if payload[key] != "" {
			return payload[key]
		}
	}
	return ""
}
