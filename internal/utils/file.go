package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// frameExts are the raster extensions accepted as frame inputs.
var frameExts = []string{"tif", "tiff", "png", "jpg", "jpeg", "webp"}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot, lowercased.
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsFrameFile checks whether a file has a supported frame image extension.
func IsFrameFile(filename string) bool {
	ext := GetFileExtension(filename)
	for _, e := range frameExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsTIFF checks for the native AFM capture format.
func IsTIFF(filename string) bool {
	ext := GetFileExtension(filename)
	return ext == "tif" || ext == "tiff"
}

// FileExists checks if a file exists and is not a directory.
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}
