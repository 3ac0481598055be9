// Package server exposes a [filesystem.Registry] over FUSE. Every registered
// mount appears as a top-level directory of the mount point; the hierarchy
// below it is read-only.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brettbedarf/resourcefs/config"
	"github.com/brettbedarf/resourcefs/filesystem"
	"github.com/brettbedarf/resourcefs/internal/util"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ResourceFs serves the mounts of a registry at a FUSE mount point
type ResourceFs struct {
	registry *filesystem.Registry
	cfg      *config.Config
	server   *fuse.Server

	// ctx scopes the streams opened on behalf of the kernel. FUSE request
	// contexts end with the request while a channel outlives it.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a ResourceFs for registry with the given config
func New(cfg *config.Config, registry *filesystem.Registry) *ResourceFs {
	return &ResourceFs{
		registry: registry,
		cfg:      cfg,
	}
}

func seconds(s float64) *time.Duration {
	d := time.Duration(s * float64(time.Second))
	return &d
}

func (r *ResourceFs) options() *gofuse.Options {
	opts := r.cfg.MountOptions
	logger := util.NewLogLogger("FuseServer", util.DebugLevel)
	return &gofuse.Options{
		EntryTimeout: seconds(r.cfg.EntryTimeout),
		AttrTimeout:  seconds(r.cfg.AttrTimeout),
		Logger:       logger,
		MountOptions: fuse.MountOptions{
			FsName:     opts.FsName,
			Name:       opts.Name,
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug || r.cfg.LogLvl == util.TraceLevel,
			Logger:     logger,
		},
	}
}

// Serve mounts the filesystem at mountPoint and returns once the kernel
// has accepted the mount. The directory is created if missing.
func (r *ResourceFs) Serve(mountPoint string) error {
	logger := util.GetLogger("ResourceFs.Serve")
	if r.server != nil {
		return errors.New("filesystem is already mounted")
	}
	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return fmt.Errorf("creating mountpoint %s: %w", mountPoint, err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	srv, err := gofuse.Mount(mountPoint, &rootNode{fs: r}, r.options())
	if err != nil {
		r.cancel()
		return fmt.Errorf("mounting FUSE filesystem at %s: %w", mountPoint, err)
	}
	r.server = srv

	logger.Info().Str("mountpoint", mountPoint).Strs("mounts", r.registry.Names()).Msg("Filesystem mounted")
	return nil
}

// Wait blocks until the filesystem is unmounted
func (r *ResourceFs) Wait() {
	if r.server != nil {
		r.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem. Streams still open on behalf of
// the kernel are canceled.
func (r *ResourceFs) Unmount() error {
	if r.server == nil {
		return nil
	}
	err := r.server.Unmount()
	r.cancel()
	r.server = nil
	return err
}
