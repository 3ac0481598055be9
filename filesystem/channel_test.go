package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// closeTracker records Close calls on a stream
type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func openTestChannel(t *testing.T, data []byte) (*ReadChannel, *mocks.StaticLocator) {
	t.Helper()
	loc := mocks.NewStaticLocator("/f.bin", data)
	m := mountLocators(t, NewRegistry(), "chan", loc)
	ch, err := m.Open(context.Background(), m.Path("/f.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch, loc
}

func TestReadChannel_ReadAll(t *testing.T) {
	t.Parallel()

	ch, _ := openTestChannel(t, []byte("test\n"))

	got, err := io.ReadAll(ch)
	require.NoError(t, err)
	assert.Equal(t, []byte("test\n"), got)
	assert.Equal(t, int64(5), ch.Position())
	assert.Equal(t, int64(5), ch.Size())
	assert.Equal(t, "/f.bin", ch.Path().String())
}

func TestReadChannel_SetPositionReopensAndSkips(t *testing.T) {
	t.Parallel()

	data := []byte("0123456789")
	ch, loc := openTestChannel(t, data)
	require.Equal(t, int64(1), loc.Opens())

	buf := make([]byte, 3)
	_, err := io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf))

	require.NoError(t, ch.SetPosition(7))
	assert.Equal(t, int64(2), loc.Opens(), "repositioning opens a new stream")
	assert.Equal(t, int64(7), ch.Position())

	rest, err := io.ReadAll(ch)
	require.NoError(t, err)
	assert.Equal(t, "789", string(rest))

	require.NoError(t, ch.SetPosition(ch.Position()))
	assert.Equal(t, int64(2), loc.Opens(), "same position does not reopen")
}

func TestReadChannel_Seek(t *testing.T) {
	t.Parallel()

	ch, _ := openTestChannel(t, []byte("abcdefgh"))

	pos, err := ch.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 1)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "g", string(buf))

	pos, err = ch.Seek(-5, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	assert.Equal(t, "c", string(buf))

	_, err = ch.Seek(-1, io.SeekStart)
	assert.Error(t, err)
	_, err = ch.Seek(0, 42)
	assert.Error(t, err)
}

func TestReadChannel_PositionPastEnd(t *testing.T) {
	t.Parallel()

	ch, _ := openTestChannel(t, []byte("abc"))

	require.NoError(t, ch.SetPosition(10))
	n, err := ch.Read(make([]byte, 4))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadChannel_Close(t *testing.T) {
	t.Parallel()

	ch, _ := openTestChannel(t, []byte("abc"))

	require.NoError(t, ch.Close())
	assert.False(t, ch.IsOpen())
	assert.NoError(t, ch.Close(), "second close is a no-op")

	_, err := ch.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, ch.SetPosition(1), ErrClosed)
}

func TestReadChannel_CloseReleasesStreamOnce(t *testing.T) {
	t.Parallel()

	first := &closeTracker{Reader: bytes.NewReader([]byte("0123456789"))}
	second := &closeTracker{Reader: bytes.NewReader([]byte("0123456789"))}

	loc := &mocks.MockLocator{}
	loc.On("Path").Return("/f")
	loc.On("Metadata", mock.Anything).Return(&resourcefs.Metadata{Size: 10}, nil)
	loc.On("Open", mock.Anything).Return(first, nil).Once()
	loc.On("Open", mock.Anything).Return(second, nil).Once()

	m := mountLocators(t, NewRegistry(), "close", loc)
	ch, err := m.Open(context.Background(), m.Path("/f"))
	require.NoError(t, err)

	require.NoError(t, ch.SetPosition(4))
	assert.Equal(t, 1, first.closed, "previous stream closed on reposition")

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.Equal(t, 1, second.closed)
	loc.AssertExpectations(t)
}

func TestReadChannel_ReopenFailure(t *testing.T) {
	t.Parallel()

	loc := &mocks.MockLocator{}
	loc.On("Path").Return("/f")
	loc.On("Metadata", mock.Anything).Return(&resourcefs.Metadata{Size: 3}, nil)
	loc.On("Open", mock.Anything).Return(io.NopCloser(bytes.NewReader([]byte("abc"))), nil).Once()
	loc.On("Open", mock.Anything).Return(nil, errors.New("gone")).Once()

	m := mountLocators(t, NewRegistry(), "reopen", loc)
	ch, err := m.Open(context.Background(), m.Path("/f"))
	require.NoError(t, err)

	err = ch.SetPosition(1)
	require.Error(t, err)
	assert.Zero(t, ch.Position(), "position unchanged on failure")

	buf := make([]byte, 3)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err, "original stream still usable")
	assert.Equal(t, "abc", string(buf))
}

func TestReadChannel_Mutations(t *testing.T) {
	t.Parallel()

	ch, _ := openTestChannel(t, []byte("abc"))

	_, err := ch.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, ch.Truncate(0), ErrUnsupported)
}

func TestReadChannel_IndependentChannels(t *testing.T) {
	t.Parallel()

	loc := mocks.NewStaticLocator("/f", []byte("abcdef"))
	m := mountLocators(t, NewRegistry(), "indep", loc)

	a, err := m.Open(context.Background(), m.Path("/f"))
	require.NoError(t, err)
	defer a.Close()
	b, err := m.Open(context.Background(), m.Path("/f"))
	require.NoError(t, err)
	defer b.Close()

	buf := make([]byte, 4)
	_, err = io.ReadFull(a, buf)
	require.NoError(t, err)

	all, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(all), "cursor not shared")
	assert.Equal(t, int64(4), a.Position())
	assert.Equal(t, int64(2), loc.Opens())
}
