package crawl

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// presignFixture fakes the presigned-URL API and the bucket PUT endpoint in
// one httptest server.
type presignFixture struct {
	server *httptest.Server

	signedHeaders string
	urlKey        string
	objectKey     string

	presignQuery map[string]string
	putBody      []byte
	putMD5       string
}

func newPresignFixture(t *testing.T) *presignFixture {
	t.Helper()
	f := &presignFixture{urlKey: "presignedUrl", objectKey: "objectUrl"}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/image/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		f.presignQuery = map[string]string{
			"prefix":   r.URL.Query().Get("prefix"),
			"fileName": r.URL.Query().Get("fileName"),
		}
		uploadURL := f.server.URL + "/bucket/" + r.URL.Query().Get("fileName")
		if f.signedHeaders != "" {
			uploadURL += "?X-Amz-SignedHeaders=" + f.signedHeaders
		}
		fmt.Fprintf(w, `{"%s": %q, "%s": %q}`,
			f.urlKey, uploadURL, f.objectKey, f.server.URL+"/bucket/final")
	})
	mux.HandleFunc("/bucket/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.putBody, _ = io.ReadAll(r.Body)
		f.putMD5 = r.Header.Get("Content-MD5")
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func TestUploadSinkWrite(t *testing.T) {
	fixture := newPresignFixture(t)
	sink := NewUploadSink(UploadConfig{APIBase: fixture.server.URL, Prefix: "prod/all"})

	records := []Record{{Source: "toss", Title: "headline", URL: "https://toss.im/a/1"}}
	require.NoError(t, sink.Write(context.Background(), "toss", records))

	assert.Equal(t, "prod/all/toss/"+sink.stamp, fixture.presignQuery["prefix"])
	assert.Equal(t, "toss-"+sink.stamp+".csv", fixture.presignQuery["fileName"])

	body := string(fixture.putBody)
	assert.Contains(t, body, strings.Join(csvHeader, ","))
	assert.Contains(t, body, "https://toss.im/a/1")
	assert.Empty(t, fixture.putMD5)
}

func TestUploadSinkContentMD5(t *testing.T) {
	fixture := newPresignFixture(t)
	fixture.signedHeaders = "host;content-md5"
	sink := NewUploadSink(UploadConfig{APIBase: fixture.server.URL, Prefix: "prod/all"})

	require.NoError(t, sink.Write(context.Background(), "kakao", nil))

	sum := md5.Sum(fixture.putBody)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), fixture.putMD5)
}

func TestUploadSinkAlternateResponseKeys(t *testing.T) {
	fixture := newPresignFixture(t)
	fixture.urlKey = "preSignedUrl"
	fixture.objectKey = "object_url"
	sink := NewUploadSink(UploadConfig{APIBase: fixture.server.URL, Prefix: "demo"})

	require.NoError(t, sink.Write(context.Background(), "naver", nil))
	assert.NotEmpty(t, fixture.putBody)
}

func TestUploadSinkPresignFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewUploadSink(UploadConfig{APIBase: server.URL, Prefix: "demo"})
	err := sink.Write(context.Background(), "toss", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presign API returned 500")
}

func TestNeedsContentMD5(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"signed header", "https://b.example/k?X-Amz-SignedHeaders=host%3Bcontent-md5", true},
		{"explicit param", "https://b.example/k?Content-MD5=abc", true},
		{"unsigned", "https://b.example/k?X-Amz-SignedHeaders=host", false},
		{"no query", "https://b.example/k", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsContentMD5(tt.url))
		})
	}
}
