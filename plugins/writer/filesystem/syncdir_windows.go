//go:build windows

package filesystem

func syncDir(string) error { return nil }
