package sbfs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalFileSystem abstracts the local disk as a filesystem.
// The backing afero.Fs is swappable so tests can run against an
// in-memory filesystem.
type LocalFileSystem struct {
	fs afero.Fs
}

// NewLocalFileSystem creates a local filesystem on top of the given
// afero backend.
func NewLocalFileSystem(fs afero.Fs) *LocalFileSystem {
	return &LocalFileSystem{fs: fs}
}

// Init initializes the filesystem.
func (l *LocalFileSystem) Init() error {
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	return nil
}

func localPath(path string) string {
	return strings.TrimPrefix(path, "file://")
}

// ListFiles lists files that match pathGlob.
func (l *LocalFileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	pathGlob = localPath(pathGlob)

	// A bare directory lists its immediate children.
	if stat, err := l.fs.Stat(pathGlob); err == nil && stat.IsDir() {
		pathGlob = filepath.Join(pathGlob, "*")
	}

	matches, err := afero.Glob(l.fs, pathGlob)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(matches))
	for _, match := range matches {
		stat, err := l.fs.Stat(match)
		if err != nil {
			return nil, err
		}
		if stat.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Name: match,
			Size: stat.Size(),
		})
	}

	return files, nil
}

// Stat returns information about the file at filePath.
func (l *LocalFileSystem) Stat(filePath string) (FileInfo, error) {
	stat, err := l.fs.Stat(localPath(filePath))
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Name: filePath,
		Size: stat.Size(),
	}, nil
}

// OpenReader opens a reader to the file at filePath. The reader
// is initially seeked to "startAt" bytes into the file.
func (l *LocalFileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	file, err := l.fs.Open(localPath(filePath))
	if err != nil {
		return nil, err
	}

	_, err = file.Seek(startAt, io.SeekStart)
	if err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// OpenWriter opens a writer to the file at filePath, creating parent
// directories as needed.
func (l *LocalFileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	path := localPath(filePath)
	err := l.fs.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}
	return l.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

// Exists reports whether a file or directory exists at filePath.
func (l *LocalFileSystem) Exists(filePath string) (bool, error) {
	return afero.Exists(l.fs, localPath(filePath))
}

// Remove deletes filePath and any children it contains.
func (l *LocalFileSystem) Remove(path string) error {
	return l.fs.RemoveAll(localPath(path))
}

// CopyFromLocal copies localPath into the filesystem at remotePath.
func (l *LocalFileSystem) CopyFromLocal(localSrc, remotePath string) (int64, error) {
	src, err := l.fs.Open(localPath(localSrc))
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := l.OpenWriter(remotePath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return n, err
	}
	return n, dst.Close()
}

// MkdirAll creates path along with any missing parents.
func (l *LocalFileSystem) MkdirAll(path string) error {
	return l.fs.MkdirAll(localPath(path), 0755)
}

// Join joins file path elements
func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}
