package sbfs

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FileSystemType is an identifier for supported FileSystems
type FileSystemType int

// Identifiers for supported FileSystemTypes
const (
	Local FileSystemType = iota
	HDFS
	S3
)

// FileSystem provides the storage backend for batch workflows.
// Staging scripts mutate it before a job is submitted, and the
// submitted job reads its inputs from it.
// This is abstracted to allow remote filesystems like HDFS or S3
// to be supported.
type FileSystem interface {
	ListFiles(pathGlob string) ([]FileInfo, error)
	Stat(filePath string) (FileInfo, error)
	OpenReader(filePath string, startAt int64) (io.ReadCloser, error)
	OpenWriter(filePath string) (io.WriteCloser, error)
	Exists(filePath string) (bool, error)
	// Remove deletes the path recursively. Removing a path that does
	// not exist is not an error.
	Remove(path string) error
	// CopyFromLocal copies a file from the local disk into the
	// filesystem namespace. Returns the number of bytes copied.
	CopyFromLocal(localPath, remotePath string) (int64, error)
	MkdirAll(path string) error
	Join(elem ...string) string
	Init() error
}

// FileInfo provides information about a file
type FileInfo struct {
	Name string // file path
	Size int64  // file size in bytes
}

// InitFilesystem intializes a filesystem of the given type
func InitFilesystem(fsType FileSystemType) (FileSystem, error) {
	var fs FileSystem
	switch fsType {
	case Local:
		log.Debug("using local fs")
		fs = &LocalFileSystem{}
	case HDFS:
		log.Debug("using hdfs fs")
		fs = &HDFSFileSystem{}
	case S3:
		log.Debug("using s3 fs")
		fs = &S3FileSystem{}
	}

	err := fs.Init()
	return fs, err
}

// InferFilesystem initializes a filesystem by inferring its type from
// a file address.
// For example, locations starting with "hdfs://" will resolve to an
// HDFS filesystem.
func InferFilesystem(location string) (FileSystem, error) {
	var fs FileSystem
	if strings.HasPrefix(location, "hdfs://") {
		log.Debug("using hdfs fs")
		fs = &HDFSFileSystem{}
	} else if strings.HasPrefix(location, "s3://") {
		log.Debug("using s3 fs")
		fs = &S3FileSystem{}
	} else {
		log.Debug("using local fs")
		fs = &LocalFileSystem{}
	}

	err := fs.Init()
	return fs, err
}

// FilesystemType reports the type identifier of an initialized filesystem.
func FilesystemType(fs FileSystem) FileSystemType {
	switch fs.(type) {
	case *HDFSFileSystem:
		return HDFS
	case *S3FileSystem:
		return S3
	default:
		return Local
	}
}
