// resourcefs mounts collections of remote resources as read-only
// hierarchies. A manifest names each mount and the URLs it is built from;
// the mounts are either listed or served over FUSE, one top-level
// directory per mount.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/resourcefs/config"
	"github.com/brettbedarf/resourcefs/filesystem"
	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/brettbedarf/resourcefs/locators"
	"github.com/brettbedarf/resourcefs/requests"
	"github.com/brettbedarf/resourcefs/server"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	manifestPath string
	verbose      int
	umount       bool
	list         bool
}

func parseFlags(args []string) (*options, []string, error) {
	var opts options
	flagSet := pflag.NewFlagSet("resourcefs", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flagSet.StringVarP(&opts.manifestPath, "manifest", "m", "", "Path to a YAML or JSON mount manifest")
	flagSet.IntVarP(&opts.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity between 1 (error) and 5 (trace); overrides the config file when set")
	flagSet.BoolVarP(&opts.umount, "umount", "u", false,
		"Unmount the mount point first if needed. Useful for debuggers that don't exit properly.")
	flagSet.BoolVarP(&opts.list, "list", "l", false, "Print every mounted tree and exit instead of serving")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: resourcefs [flags] [mountpoint]\n\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}
	if !flagSet.Changed("verbose") {
		opts.verbose = 0
	}
	return &opts, flagSet.Args(), nil
}

// loadConfig reads the config file if given. An explicit verbosity wins over
// the file.
func loadConfig(opts *options) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if opts.configPath != "" {
		loaded, err := config.LoadConfigOverrideFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		override = loaded
	}
	if opts.verbose != 0 {
		override.LogLvl = &opts.verbose
	}
	return config.NewConfig(override), nil
}

func newLocatorRegistry(cfg *config.Config) *locators.Registry {
	r := locators.NewRegistry()
	locators.RegisterBuiltins(r, locators.HTTPOptions{
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent: cfg.UserAgent,
		Headers:   cfg.Headers,
	})
	return r
}

// mountManifest creates every mount in the manifest. The first failure
// stops the process; mounts created before it stay registered.
func mountManifest(ctx context.Context, registry *filesystem.Registry, resolver requests.Resolver, path string) error {
	logger := util.GetLogger("main")

	manifest, err := requests.LoadManifestFile(path)
	if err != nil {
		return fmt.Errorf("loading manifest %s: %w", path, err)
	}
	reqs, err := manifest.Convert(resolver)
	if err != nil {
		return fmt.Errorf("manifest %s: %w", path, err)
	}
	for _, req := range reqs {
		if _, err := registry.Mount(ctx, req.Name, req.Locators); err != nil {
			return err
		}
	}
	logger.Debug().Int("mounts", len(reqs)).Str("manifest", path).Msg("Manifest mounted")
	return nil
}

// listMounts prints every registered mount as an indented tree
func listMounts(w io.Writer, registry *filesystem.Registry) error {
	for _, name := range registry.Names() {
		m, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%s)\n", m, humanize.Bytes(uint64(m.TotalSize())))
		err = m.Walk(m.Root(), func(p filesystem.Path, attrs *filesystem.Attributes) error {
			if p.IsRoot() {
				return nil
			}
			indent := 2 * p.NameCount()
			if attrs.IsDirectory() {
				fmt.Fprintf(w, "%*s%s/\n", indent, "", p.FileName())
				return nil
			}
			fmt.Fprintf(w, "%*s%s  %s  %s\n", indent, "", p.FileName(),
				humanize.Bytes(uint64(attrs.Size())), attrs.LastModifiedTime().Format("2006-01-02 15:04:05"))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func run(args []string, stdout io.Writer) error {
	opts, rest, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	var mnt string
	if len(rest) > 0 {
		mnt = rest[0]
	}
	if mnt == "" && !opts.list {
		return errors.New("mount point not specified; it must be passed as the argument")
	}
	logger.Info().Str("manifest", opts.manifestPath).Str("mnt", mnt).Msg("resourcefs initializing")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	registry := filesystem.NewRegistry()
	defer registry.Close()

	if opts.manifestPath != "" {
		if err := mountManifest(ctx, registry, newLocatorRegistry(cfg), opts.manifestPath); err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("No manifest provided")
	}

	if opts.list {
		return listMounts(stdout, registry)
	}

	if opts.umount {
		// ignore the error when not already mounted
		exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
	}

	fs := server.New(cfg, registry)
	if err := fs.Serve(mnt); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("Received signal, unmounting filesystem")
	if err := fs.Unmount(); err != nil {
		return fmt.Errorf("unmounting %s: %w", mnt, err)
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}
