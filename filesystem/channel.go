package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/google/uuid"
)

// ReadChannel is a read-only cursor over the content of a file node. Every
// channel owns its own stream from the node's locator; nothing is shared
// between channels.
//
// Repositioning (Seek, SetPosition) opens a new stream and discards bytes up
// to the target offset, so it costs O(offset) in transferred bytes. Seeking
// to the current position is free.
//
// A ReadChannel is not safe for concurrent use.
type ReadChannel struct {
	id   uuid.UUID
	ctx  context.Context // reused when the stream is reopened
	path Path
	loc  resourcefs.Locator
	size int64

	rc     io.ReadCloser
	pos    int64
	closed bool
}

var _ io.ReadSeekCloser = (*ReadChannel)(nil)

func openChannel(ctx context.Context, node *Node) (*ReadChannel, error) {
	logger := util.GetLogger("ReadChannel.open")

	rc, err := node.locator.Open(ctx)
	if err != nil {
		return nil, pathErr("open", node.Path(), err)
	}
	ch := &ReadChannel{
		id:   uuid.New(),
		ctx:  ctx,
		path: node.Path(),
		loc:  node.locator,
		size: node.Size(),
		rc:   rc,
	}
	logger.Trace().Str("channel", ch.id.String()).Str("path", ch.path.String()).Msg("Channel opened")
	return ch, nil
}

// Path returns the path the channel was opened on
func (ch *ReadChannel) Path() Path {
	return ch.path
}

// Size returns the indexed size of the file
func (ch *ReadChannel) Size() int64 {
	return ch.size
}

// Position returns the current read offset
func (ch *ReadChannel) Position() int64 {
	return ch.pos
}

// IsOpen reports whether Close has not been called yet
func (ch *ReadChannel) IsOpen() bool {
	return !ch.closed
}

// Read reads up to len(p) bytes from the current position
func (ch *ReadChannel) Read(p []byte) (int, error) {
	if ch.closed {
		return 0, pathErr("read", ch.path, ErrClosed)
	}
	n, err := ch.rc.Read(p)
	ch.pos += int64(n)
	return n, err
}

// SetPosition moves the cursor to off. A position past the end is allowed;
// reads from there return io.EOF.
func (ch *ReadChannel) SetPosition(off int64) error {
	if ch.closed {
		return pathErr("seek", ch.path, ErrClosed)
	}
	if off < 0 {
		return pathErr("seek", ch.path, fmt.Errorf("negative position %d", off))
	}
	if off == ch.pos {
		return nil
	}

	logger := util.GetLogger("ReadChannel.SetPosition")
	logger.Trace().Str("channel", ch.id.String()).Int64("from", ch.pos).Int64("to", off).Msg("Reopening stream")

	rc, err := ch.loc.Open(ch.ctx)
	if err != nil {
		return pathErr("seek", ch.path, err)
	}
	if _, err := io.CopyN(io.Discard, rc, off); err != nil && !errors.Is(err, io.EOF) {
		rc.Close()
		return pathErr("seek", ch.path, err)
	}
	old := ch.rc
	ch.rc, ch.pos = rc, off
	if err := old.Close(); err != nil {
		logger.Debug().Err(err).Str("channel", ch.id.String()).Msg("Failed to close previous stream")
	}
	return nil
}

// Seek implements io.Seeker on top of SetPosition
func (ch *ReadChannel) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = ch.pos + offset
	case io.SeekEnd:
		abs = ch.size + offset
	default:
		return ch.pos, pathErr("seek", ch.path, fmt.Errorf("invalid whence %d", whence))
	}
	if err := ch.SetPosition(abs); err != nil {
		return ch.pos, err
	}
	return ch.pos, nil
}

// Write always fails; channels are read-only
func (ch *ReadChannel) Write(p []byte) (int, error) {
	return 0, pathErr("write", ch.path, ErrUnsupported)
}

// Truncate always fails; channels are read-only
func (ch *ReadChannel) Truncate(size int64) error {
	return pathErr("truncate", ch.path, ErrUnsupported)
}

// Close releases the underlying stream. Closing twice is a no-op.
func (ch *ReadChannel) Close() error {
	if ch.closed {
		return nil
	}
	ch.closed = true
	logger := util.GetLogger("ReadChannel.Close")
	logger.Trace().Str("channel", ch.id.String()).Msg("Channel closed")
	return ch.rc.Close()
}
