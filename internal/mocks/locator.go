package mocks

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/resourcefs"
	"github.com/stretchr/testify/mock"
)

// MockLocator implements resourcefs.Locator for testing across packages
type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLocator) Open(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)

	// Handle function return types (fresh stream per call)
	if fn, ok := args.Get(0).(func(context.Context) io.ReadCloser); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockLocator) Metadata(ctx context.Context) (*resourcefs.Metadata, error) {
	args := m.Called(ctx)

	if fn, ok := args.Get(0).(func(context.Context) *resourcefs.Metadata); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resourcefs.Metadata), args.Error(1)
}

var _ resourcefs.Locator = (*MockLocator)(nil)

// StaticLocator is an in-memory resourcefs.Locator with fixed content.
// It counts Open calls so tests can observe stream reopening.
type StaticLocator struct {
	URLPath  string
	Data     []byte
	Modified *time.Time
	Created  *time.Time

	opens atomic.Int64
}

// NewStaticLocator returns a StaticLocator serving data at path
func NewStaticLocator(path string, data []byte) *StaticLocator {
	return &StaticLocator{URLPath: path, Data: data}
}

func (s *StaticLocator) Path() string {
	return s.URLPath
}

func (s *StaticLocator) Open(context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

func (s *StaticLocator) Metadata(context.Context) (*resourcefs.Metadata, error) {
	return &resourcefs.Metadata{
		Size:         int64(len(s.Data)),
		LastModified: s.Modified,
		Created:      s.Created,
	}, nil
}

// Opens returns how many streams have been opened
func (s *StaticLocator) Opens() int64 {
	return s.opens.Load()
}

var _ resourcefs.Locator = (*StaticLocator)(nil)

// MockHTTPClient implements the Do method used by HTTP locators
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}
