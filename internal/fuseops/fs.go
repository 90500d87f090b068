// Package fuseops implements the FUSE-facing dispatcher (C9) and the
// per-opcode operation handlers (C6): the one place every other package
// in this module (branch, policy, resolver, statcache, inode, readdir,
// spillcopy) is wired together and exposed to the kernel.
//
// Grounded on github.com/hanwen/go-fuse/v2/fs's InodeEmbedder/NodeXxxer
// interface family (api.go, retrieved in full from soitun-go-fuse) for
// the method shapes, and on GoogleCloudPlatform-gcsfuse/fs/fs.go for the
// "one struct per concern, explicit comment describing what's safe to
// call concurrently" shape.
package fuseops

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
	"github.com/unionfuse/unionfuse/internal/policy"
	"github.com/unionfuse/unionfuse/internal/statcache"
)

// FS is the shared state every Node and FileHandle in the mounted tree
// holds a pointer to. It is the dispatcher's (C9) root: opcode handlers
// read it to find the current branch snapshot, resolve the configured
// policy, and log.
//
// Registry mutation is safe from any goroutine (it is itself CoW); Log
// is a logrus.FieldLogger and safe for concurrent use per logrus's own
// contract. Options is read-only after Mount except for the fields the
// control-plane ioctls (C11) mutate, which take optMu.
type FS struct {
	Registry *branch.Registry
	Stat     *statcache.Cache
	Log      logrus.FieldLogger

	optMu sync.RWMutex
	opt   *config.Options
}

// New builds the shared filesystem state from a defaulted, parsed
// config.Options and an already-populated branch registry.
func New(opt *config.Options, reg *branch.Registry, log logrus.FieldLogger) *FS {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FS{
		Registry: reg,
		Stat:     statcache.New(opt.Cache.Statfs),
		Log:      log,
		opt:      opt,
	}
}

// Options returns the live configuration snapshot. Safe for concurrent
// use; callers get a consistent pointer, never a torn read, even while
// a control-plane ioctl is replacing individual fields.
func (fs *FS) Options() *config.Options {
	fs.optMu.RLock()
	defer fs.optMu.RUnlock()
	return fs.opt
}

// ReplaceOptions atomically swaps the live configuration, used by the
// control-plane "set option" ioctl (C11).
func (fs *FS) ReplaceOptions(next *config.Options) {
	fs.optMu.Lock()
	defer fs.optMu.Unlock()
	fs.opt = next
}

// policyEnv builds the policy.Env every Policy call needs: the statvfs
// cache and the global minimum free space default.
func (fs *FS) policyEnv() *policy.Env {
	return &policy.Env{Cache: fs.Stat, MinFree: fs.Options().MinFreeSpace}
}

// policyFor resolves the configured policy for one opcode, honoring a
// func.<op> override before falling back to the opcode's category
// default (config.Options.PolicyFor), per spec.md §4.3/§6.
func (fs *FS) policyFor(opcode string, category string) (policy.Policy, error) {
	name := fs.Options().PolicyFor(opcode, category)
	return policy.Get(name)
}

// snapshot returns the current branch list, a single CoW read shared by
// every handler in one request.
func (fs *FS) snapshot() branch.List {
	return fs.Registry.Snapshot()
}
