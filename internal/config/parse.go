package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ParseMountOptions applies a "k=v,k=v,flag" mount -o string onto opt,
// mutating it in place. Unknown keys are preserved verbatim in
// FuncOverrides when they match "func.<op>"; any other unknown key is an
// error, matching mount(8)'s usual strictness.
func ParseMountOptions(opt *Options, raw string) error {
	if raw == "" {
		return nil
	}
	for _, kv := range strings.Split(raw, ",") {
		if kv == "" {
			continue
		}
		key, val, hasVal := strings.Cut(kv, "=")
		if err := applyOption(opt, key, val, hasVal); err != nil {
			return err
		}
	}
	return nil
}

func applyOption(opt *Options, key, val string, hasVal bool) error {
	if strings.HasPrefix(key, "func.") {
		op := strings.TrimPrefix(key, "func.")
		opt.FuncOverrides[op] = val
		return nil
	}

	switch key {
	case "branches":
		opt.Branches = val
	case "minfreespace":
		v, err := parseSize(val)
		if err != nil {
			return err
		}
		opt.MinFreeSpace = v
	case "category.search":
		opt.CategorySearch = val
	case "category.action":
		opt.CategoryAction = val
	case "category.create":
		opt.CategoryCreate = val
	case "moveonenospc":
		if val == "" {
			opt.MoveOnENOSPC = true
		} else {
			opt.SpillPolicy = val
			opt.MoveOnENOSPC = true
		}
	case "dropcacheonclose":
		opt.DropCacheOnClose = boolOf(val, hasVal)
	case "readdir":
		if val == "concurrent" {
			opt.Readdir = ReaddirConcurrent
		} else {
			opt.Readdir = ReaddirSequential
		}
	case "statfs":
		if val == "full" {
			opt.Statfs = StatfsFull
		} else {
			opt.Statfs = StatfsBase
		}
	case "statfs-ignore":
		switch val {
		case "ro":
			opt.StatfsIgnore = StatfsIgnoreRO
		case "nc":
			opt.StatfsIgnore = StatfsIgnoreNC
		default:
			opt.StatfsIgnore = StatfsIgnoreNone
		}
	case "inodecalc":
		opt.InodeCalc = val
	case "xattr":
		opt.XattrEnabled = val != "off" && val != "false"
	case "nfsopenhack":
		opt.NFSOpenHack = boolOf(val, hasVal)
	case "link-exdev":
		v, err := parseExdev(val)
		if err != nil {
			return err
		}
		opt.LinkExdev = v
	case "rename-exdev":
		v, err := parseExdev(val)
		if err != nil {
			return err
		}
		opt.RenameExdev = v
	case "symlinkify":
		opt.Symlinkify = boolOf(val, hasVal)
	case "symlinkify-timeout":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		opt.SymlinkifyTimeout = d
	case "cache.files":
		opt.Cache.Files = boolOf(val, hasVal)
	case "cache.attr":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		opt.Cache.Attr = d
	case "cache.entry":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		opt.Cache.Entry = d
	case "cache.negative_entry":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		opt.Cache.NegativeEntry = d
	case "cache.statfs":
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		opt.Cache.Statfs = d
	case "cache.readdir":
		opt.Cache.Readdir = boolOf(val, hasVal)
	case "cache.writeback":
		opt.Cache.Writeback = boolOf(val, hasVal)
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		opt.Threads = n
	case "fsname":
		opt.FSName = val
	default:
		return fmt.Errorf("config: unknown mount option %q", key)
	}
	return nil
}

func boolOf(val string, hasVal bool) bool {
	if !hasVal {
		return true // bare flag present, e.g. "dropcacheonclose"
	}
	return val == "true" || val == "1" || val == "yes"
}

func parseExdev(val string) (ExdevPolicy, error) {
	switch val {
	case "passthrough", "":
		return ExdevPassthrough, nil
	case "rel-symlink":
		return ExdevRelSymlink, nil
	case "abs-base-symlink":
		return ExdevAbsBaseSymlink, nil
	case "abs-pool-symlink":
		return ExdevAbsPoolSymlink, nil
	default:
		return 0, fmt.Errorf("config: unknown exdev policy %q", val)
	}
}

func parseSize(val string) (uint64, error) {
	if val == "" {
		return 0, nil
	}
	mult := uint64(1)
	suffix := val[len(val)-1]
	switch suffix {
	case 'K', 'k':
		mult, val = 1024, val[:len(val)-1]
	case 'M', 'm':
		mult, val = 1024*1024, val[:len(val)-1]
	case 'G', 'g':
		mult, val = 1024*1024*1024, val[:len(val)-1]
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// LoadFile layers an optional YAML/TOML/JSON config file onto opt using
// viper, matching gcsfuse's cmd/ layering of a config file under
// explicit flags.
func LoadFile(opt *Options, path string) error {
	if path == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if v.IsSet("branches") {
		opt.Branches = v.GetString("branches")
	}
	if v.IsSet("minfreespace") {
		size, err := parseSize(v.GetString("minfreespace"))
		if err != nil {
			return err
		}
		opt.MinFreeSpace = size
	}
	if v.IsSet("category.search") {
		opt.CategorySearch = v.GetString("category.search")
	}
	if v.IsSet("category.action") {
		opt.CategoryAction = v.GetString("category.action")
	}
	if v.IsSet("category.create") {
		opt.CategoryCreate = v.GetString("category.create")
	}
	if v.IsSet("threads") {
		opt.Threads = v.GetInt("threads")
	}
	return nil
}
