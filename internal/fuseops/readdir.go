package fuseops

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/config"
	"github.com/unionfuse/unionfuse/internal/inode"
	"github.com/unionfuse/unionfuse/internal/readdir"
	"github.com/unionfuse/unionfuse/internal/resolver"
)

var (
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpendirer = (*Node)(nil)
)

// Opendir always succeeds; it performs no permission check of its own.
// The actual listing is driven by Readdir per go-fuse's own contract.
func (n *Node) Opendir(ctx context.Context) syscall.Errno {
	return 0
}

// dirStream adapts a pre-materialized []readdir.Entry to go-fuse's pull
// based fs.DirStream, computing each entry's inode lazily (only once
// the kernel actually asks for it).
type dirStream struct {
	node    *Node
	entries []readdir.Entry
	pos     int
}

var _ fs.DirStream = (*dirStream)(nil)

func (s *dirStream) HasNext() bool { return s.pos < len(s.entries) }

func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	e := s.entries[s.pos]
	s.pos++

	childFusePath := childPath(s.node.fusePath, e.Name)
	var st unix.Stat_t
	mode := uint32(unix.S_IFREG)
	var ino uint64
	if err := unix.Lstat(resolver.BackingPath(e.Source, childFusePath), &st); err == nil {
		mode = st.Mode
		algo, bits, _ := inode.ParseAlgorithm(s.node.fsys.Options().InodeCalc)
		ino = inode.ComputeBits(algo, bits, childFusePath, uint64(st.Dev), uint64(st.Ino), e.IsDir)
	}
	return fuse.DirEntry{Name: e.Name, Mode: mode, Ino: ino}, 0
}

func (s *dirStream) Close() {}

// Readdir does not use a policy: it reads every branch containing the
// directory and deduplicates by name, first occurrence wins, per
// spec.md §4.6/§4.7.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	var entries []readdir.Entry
	withCreds(ctx, func() error {
		opt := n.fsys.Options()
		mode := readdir.Sequential
		if opt.Readdir == config.ReaddirConcurrent {
			mode = readdir.Concurrent
		}
		entries = readdir.Merge(n.fsys.snapshot(), n.fusePath, readdir.Options{
			Mode:    mode,
			Workers: opt.ReaddirWorkers,
		})
		return nil
	})
	return &dirStream{node: n, entries: entries}, 0
}
