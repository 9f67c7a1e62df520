//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package monitoring

func uploadsVolume(string) volumeUsage {
	return volumeUsage{}
}
