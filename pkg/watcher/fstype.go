package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType is a coarse classification of the filesystem holding the
// watched database. Remote filesystems do not deliver inotify events for
// writes made on other hosts, so the watcher polls on them.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS:
		return true
	}
	return false
}

// mountsFile is replaced in tests.
var mountsFile = "/proc/self/mounts"

// detectFilesystemTypeFunc is replaced in tests.
var detectFilesystemTypeFunc = DetectFilesystemType

// DetectFilesystemType classifies the mount that contains path, walking up
// to the nearest existing parent. It returns FSTypeUnknown when the mount
// table cannot be read.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			break
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return FSTypeUnknown
		}
		abs = parent
	}

	f, err := os.Open(mountsFile)
	if err != nil {
		return FSTypeUnknown
	}
	defer f.Close()

	best, bestType := "", ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mnt, fstype := fields[1], fields[2]
		if !withinMount(abs, mnt) || len(mnt) < len(best) {
			continue
		}
		best, bestType = mnt, fstype
	}
	if best == "" {
		return FSTypeUnknown
	}
	return classify(bestType)
}

func withinMount(path, mnt string) bool {
	if mnt == "/" {
		return true
	}
	return path == mnt || strings.HasPrefix(path, mnt+string(filepath.Separator))
}

func classify(fstype string) FilesystemType {
	switch {
	case strings.HasPrefix(fstype, "nfs"):
		return FSTypeNFS
	case fstype == "cifs" || fstype == "smb3" || fstype == "smbfs":
		return FSTypeSMB
	case fstype == "fuse.sshfs":
		return FSTypeSSHFS
	case strings.HasPrefix(fstype, "fuse"):
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}
