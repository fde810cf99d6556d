package tmpldb

import (
	"io"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprinter returns the fingerprint of the code that defines a
// descriptor type. Record files are reused only when the stored fingerprint
// equals the current one.
type Fingerprinter func(t reflect.Type) int32

// ModuleFingerprint derives a fingerprint from the module defining t.
//
// Versioned dependencies hash their module path, version and go.sum hash.
// The main module, local replacements and unversioned builds additionally
// hash the vcs stamp and the running executable, so any rebuild with changed
// code produces a new value while identical builds agree.
func ModuleFingerprint(t reflect.Type) int32 {
	info := readBuildInfo()
	h := xxhash.New()

	if info == nil {
		h.WriteString(t.PkgPath())
		h.WriteString(executableDigest())
		return fold(h.Sum64())
	}

	mod, isMain := moduleFor(info, t.PkgPath())
	h.WriteString(mod.Path)
	h.WriteString(mod.Version)
	h.WriteString(mod.Sum)

	if isMain || unversioned(mod) {
		for _, s := range info.Settings {
			if strings.HasPrefix(s.Key, "vcs.") {
				h.WriteString(s.Key)
				h.WriteString(s.Value)
			}
		}
		h.WriteString(executableDigest())
	}
	return fold(h.Sum64())
}

func fold(sum uint64) int32 {
	return int32(uint32(sum) ^ uint32(sum>>32))
}

var readBuildInfo = sync.OnceValue(func() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
})

var executableDigest = sync.OnceValue(func() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return string(h.Sum(nil))
})

// moduleFor returns the module that contains pkg, falling back to the main
// module for packages no module claims (such as "main").
func moduleFor(info *debug.BuildInfo, pkg string) (*debug.Module, bool) {
	best, isMain, bestLen := &info.Main, true, -1
	if contains(info.Main.Path, pkg) {
		bestLen = len(info.Main.Path)
	}
	for _, dep := range info.Deps {
		if contains(dep.Path, pkg) && len(dep.Path) > bestLen {
			best, isMain, bestLen = dep, false, len(dep.Path)
		}
	}
	if best.Replace != nil {
		return best.Replace, isMain
	}
	return best, isMain
}

func contains(modPath, pkg string) bool {
	return modPath != "" && (pkg == modPath || strings.HasPrefix(pkg, modPath+"/"))
}

func unversioned(mod *debug.Module) bool {
	return mod.Version == "" || mod.Version == "(devel)" || strings.HasSuffix(mod.Version, "+dirty")
}
