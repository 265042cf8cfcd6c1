//go:build !windows

package filesystem

import "os"

// syncDir 同步父目录元数据（尽力而为）。
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
