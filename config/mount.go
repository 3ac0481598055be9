package config

// MountOptions holds high-level settings for the FUSE mount.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug      bool   // fuse debug logs
	AllowOther bool   // let other users access the mount
	FsName     string // mount's FsName (first column of /proc/mounts)
	Name       string // mount's Name (fuse.<Name> filesystem type)
}
