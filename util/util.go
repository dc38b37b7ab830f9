package util

import (
	"os"
	"path"
)

// FileMode is the default FileMode used when creating files.
const FileMode = 0664

// DirMode is the default FileMode used when creating directories.
const DirMode = 0775

// FileExists checks whether some file exists.
func FileExists(file string) bool {
	stat, err := os.Stat(file)
	return err == nil && !stat.IsDir()
}

// DirExists checks whether some directory exists.
func DirExists(dir string) bool {
	stat, err := os.Stat(dir)
	return err == nil && stat.IsDir()
}

// WriteFile creates the parent directory if needed and writes the file.
func WriteFile(filePath string, data []byte) error {
	if err := os.MkdirAll(path.Dir(filePath), DirMode); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, FileMode)
}

// Maps the input slice using the provided mapping function.
func MappedSlice[V any, U any](values []V, f func(V) U) []U {
	result := make([]U, 0, len(values))
	for _, v := range values {
		result = append(result, f(v))
	}
	return result
}
