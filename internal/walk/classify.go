package walk

import (
	"io/fs"
	"os"
)

type nodeKind uint8

const (
	kindFile nodeKind = iota
	kindDir
	kindOther
)

// classify resolves the type of a directory entry. Directory listings already carry
// the entry type, so a stat call is only made for symlinks that must be followed.
// The returned FileInfo is set whenever the walker has one, and is used for loop
// detection.
func (w *Walker) classify(path string, entry fs.DirEntry) (nodeKind, fs.FileInfo, error) {
	mode := entry.Type()

	if mode&fs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			return kindOther, nil, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return kindOther, nil, err
		}
		return kindOf(info.Mode()), info, nil
	}

	if mode.IsDir() && w.opts.FollowSymlinks {
		// Loop detection needs the directory identity.
		info, err := entry.Info()
		if err != nil {
			return kindOther, nil, err
		}
		return kindDir, info, nil
	}

	return kindOf(mode), nil, nil
}

func kindOf(mode fs.FileMode) nodeKind {
	switch {
	case mode.IsRegular():
		return kindFile
	case mode.IsDir():
		return kindDir
	default:
		return kindOther
	}
}
