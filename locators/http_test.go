package locators

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/brettbedarf/resourcefs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNewHTTPLocator_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
		desc    string
	}{
		{"http://test.com/a.jar", false, "basic HTTP URL"},
		{"https://test.com/a.jar", false, "basic HTTPS URL"},
		{"http://test.com/path?arg=1&arg2=2", false, "URL with path and query"},
		{"http://localhost:8080/test", false, "localhost with port"},
		{"http://123.123.123.123/test", false, "IP address"},

		{"ftp://test.com/a", true, "different scheme rejected"},
		{"http:///a.jar", true, "missing host"},
		{"http://user@test.com/path", true, "URL with user info"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			loc, err := NewHTTPLocator(mustParse(t, tt.url), HTTPOptions{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, loc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, mustParse(t, tt.url).EscapedPath(), loc.Path())
		})
	}
}

func TestHTTPLocator_PathKeepsEscapedSeparators(t *testing.T) {
	t.Parallel()

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.EscapedPath()
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader([]byte("x")))
	}))
	t.Cleanup(srv.Close)

	loc, err := NewHTTPLocator(mustParse(t, srv.URL+"/a%2Fb/c.jar"), HTTPOptions{Client: srv.Client()})
	require.NoError(t, err)

	assert.Equal(t, "/a%2Fb/c.jar", loc.Path())
	assert.Equal(t, []string{"", "a%2Fb", "c.jar"}, strings.Split(loc.Path(), "/"), "encoded slash stays inside its segment")

	_, err = loc.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a%2Fb/c.jar", requested)
}

func newContentServer(t *testing.T, data []byte, modified time.Time) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.jar":
			http.NotFound(w, r)
		default:
			http.ServeContent(w, r, "", modified, bytes.NewReader(data))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLocator_Metadata(t *testing.T) {
	t.Parallel()

	modified := time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC)
	srv := newContentServer(t, []byte("test\n"), modified)

	loc, err := NewHTTPLocator(mustParse(t, srv.URL+"/lib/resource.txt"), HTTPOptions{Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, "/lib/resource.txt", loc.Path())

	meta, err := loc.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	require.NotNil(t, meta.LastModified)
	assert.True(t, modified.Equal(*meta.LastModified))
	require.NotNil(t, meta.Created, "Date header becomes the creation time")
	assert.WithinDuration(t, time.Now(), *meta.Created, time.Minute)
}

func TestHTTPLocator_Open(t *testing.T) {
	t.Parallel()

	srv := newContentServer(t, []byte("test\n"), time.Time{})
	loc, err := NewHTTPLocator(mustParse(t, srv.URL+"/resource.txt"), HTTPOptions{Client: srv.Client()})
	require.NoError(t, err)

	rc, err := loc.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "test\n", string(got))
}

func TestHTTPLocator_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := newContentServer(t, nil, time.Time{})
	loc, err := NewHTTPLocator(mustParse(t, srv.URL+"/missing.jar"), HTTPOptions{Client: srv.Client()})
	require.NoError(t, err)

	_, err = loc.Metadata(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = loc.Open(context.Background())
	assert.Error(t, err)
}

func TestHTTPLocator_SendsHeaders(t *testing.T) {
	t.Parallel()

	client := &mocks.MockHTTPClient{}
	client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodHead &&
			req.Header.Get("User-Agent") == "resourcefs-test" &&
			req.Header.Get("X-Token") == "secret"
	})).Return(&http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		ContentLength: -1,
		Header:        http.Header{"Last-Modified": []string{"not a date"}},
		Body:          io.NopCloser(bytes.NewReader(nil)),
	}, nil)

	loc, err := NewHTTPLocator(mustParse(t, "https://example.com/a.jar"), HTTPOptions{
		Client:    client,
		UserAgent: "resourcefs-test",
		Headers:   map[string]string{"X-Token": "secret"},
	})
	require.NoError(t, err)

	meta, err := loc.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(-1), meta.Size, "unknown length is passed through")
	assert.Nil(t, meta.LastModified, "malformed header is ignored")
	assert.Nil(t, meta.Created)
	client.AssertExpectations(t)
}

func TestHTTPLocator_TransportError(t *testing.T) {
	t.Parallel()

	client := &mocks.MockHTTPClient{}
	client.On("Do", mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	loc, err := NewHTTPLocator(mustParse(t, "http://example.com/a.jar"), HTTPOptions{Client: client})
	require.NoError(t, err)

	_, err = loc.Open(context.Background())
	assert.ErrorContains(t, err, "refused")
}
