//go:build linux || darwin || freebsd || netbsd || openbsd

package monitoring

import "golang.org/x/sys/unix"

// uploadsVolume reports the filesystem holding the uploads directory.
func uploadsVolume(path string) volumeUsage {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return volumeUsage{}
	}
	blockSize := uint64(stat.Bsize)
	return volumeUsage{
		TotalBytes: stat.Blocks * blockSize,
		FreeBytes:  stat.Bavail * blockSize,
		Known:      true,
	}
}
