package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Get returns the current string form of one mount-option key, the
// counterpart to applyOption's Set direction, used by the control-plane
// "get option" ioctl (§6/C11).
func Get(opt *Options, key string) (string, bool) {
	if strings.HasPrefix(key, "func.") {
		op := strings.TrimPrefix(key, "func.")
		v, ok := opt.FuncOverrides[op]
		return v, ok
	}
	switch key {
	case "branches":
		return opt.Branches, true
	case "minfreespace":
		return strconv.FormatUint(opt.MinFreeSpace, 10), true
	case "category.search":
		return opt.CategorySearch, true
	case "category.action":
		return opt.CategoryAction, true
	case "category.create":
		return opt.CategoryCreate, true
	case "moveonenospc":
		return strconv.FormatBool(opt.MoveOnENOSPC), true
	case "spillpolicy":
		return opt.SpillPolicy, true
	case "dropcacheonclose":
		return strconv.FormatBool(opt.DropCacheOnClose), true
	case "readdir":
		if opt.Readdir == ReaddirConcurrent {
			return "concurrent", true
		}
		return "sequential", true
	case "statfs":
		if opt.Statfs == StatfsFull {
			return "full", true
		}
		return "base", true
	case "statfs-ignore":
		switch opt.StatfsIgnore {
		case StatfsIgnoreRO:
			return "ro", true
		case StatfsIgnoreNC:
			return "nc", true
		default:
			return "none", true
		}
	case "inodecalc":
		return opt.InodeCalc, true
	case "xattr":
		return strconv.FormatBool(opt.XattrEnabled), true
	case "nfsopenhack":
		return strconv.FormatBool(opt.NFSOpenHack), true
	case "link-exdev":
		return exdevString(opt.LinkExdev), true
	case "rename-exdev":
		return exdevString(opt.RenameExdev), true
	case "symlinkify":
		return strconv.FormatBool(opt.Symlinkify), true
	case "symlinkify-timeout":
		return opt.SymlinkifyTimeout.String(), true
	case "threads":
		return strconv.Itoa(opt.Threads), true
	case "fsname":
		return opt.FSName, true
	default:
		return "", false
	}
}

// Set applies one "key=value" pair to opt, sharing applyOption's parsing
// so the control-plane "set option" ioctl behaves identically to a mount
// -o remount for the same key.
func Set(opt *Options, key, val string) error {
	return applyOption(opt, key, val, true)
}

func exdevString(p ExdevPolicy) string {
	switch p {
	case ExdevRelSymlink:
		return "rel-symlink"
	case ExdevAbsBaseSymlink:
		return "abs-base-symlink"
	case ExdevAbsPoolSymlink:
		return "abs-pool-symlink"
	default:
		return "passthrough"
	}
}

// dumpKeys lists every key Get/Set understand, in the fixed order Dump
// reports them.
var dumpKeys = []string{
	"branches", "minfreespace",
	"category.search", "category.action", "category.create",
	"moveonenospc", "spillpolicy", "dropcacheonclose",
	"readdir", "statfs", "statfs-ignore",
	"inodecalc", "xattr", "nfsopenhack",
	"link-exdev", "rename-exdev",
	"symlinkify", "symlinkify-timeout",
	"threads", "fsname",
}

// Dump renders every known option as a "key=value" line in dumpKeys
// order, used by the control-plane "get full config" ioctl. func.<op> overrides are
// appended after the fixed keys, sorted by opcode name.
func Dump(opt *Options) []string {
	lines := make([]string, 0, len(dumpKeys)+len(opt.FuncOverrides))
	for _, k := range dumpKeys {
		v, _ := Get(opt, k)
		lines = append(lines, fmt.Sprintf("%s=%s", k, v))
	}
	funcKeys := make([]string, 0, len(opt.FuncOverrides))
	for op := range opt.FuncOverrides {
		funcKeys = append(funcKeys, op)
	}
	sort.Strings(funcKeys)
	for _, op := range funcKeys {
		lines = append(lines, fmt.Sprintf("func.%s=%s", op, opt.FuncOverrides[op]))
	}
	return lines
}
