package fuseops

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
)

// Mount wires a config.Options and an already-parsed branch.Registry into
// a running go-fuse server rooted at mountpoint, grounded on
// soitun-go-fuse/fs/api.go's fs.Mount entry point (the same call
// GoogleCloudPlatform-gcsfuse's cmd/mount.go uses to start its own
// server).
func Mount(mountpoint string, opt *config.Options, reg *branch.Registry, log logrus.FieldLogger) (*fuse.Server, error) {
	sharedFS := New(opt, reg, log)
	root := &Node{fsys: sharedFS, fusePath: ""}

	entry := 1 * time.Second
	attr := 1 * time.Second
	negative := 1 * time.Second
	if opt.Cache.Entry > 0 {
		entry = opt.Cache.Entry
	}
	if opt.Cache.Attr > 0 {
		attr = opt.Cache.Attr
	}
	if opt.Cache.NegativeEntry > 0 {
		negative = opt.Cache.NegativeEntry
	}

	fsOpt := &fs.Options{
		EntryTimeout:    &entry,
		AttrTimeout:     &attr,
		NegativeTimeout: &negative,
		MountOptions: fuse.MountOptions{
			FsName:        opt.FSName,
			Name:          "unionfuse",
			AllowOther:    true,
			EnableLocks:   true,
			DisableXAttrs: !opt.XattrEnabled,
		},
	}

	server, err := fs.Mount(mountpoint, root, fsOpt)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"mountpoint": mountpoint,
		"branches":   len(reg.Snapshot()),
	}).Info("unionfuse mounted")
	return server, nil
}
