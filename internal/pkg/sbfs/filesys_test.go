package sbfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitFilesystem(t *testing.T) {
	fs, err := InitFilesystem(S3)
	assert.NotNil(t, fs)
	assert.Nil(t, err)
	assert.IsType(t, &S3FileSystem{}, fs)

	fs, err = InitFilesystem(Local)
	assert.NotNil(t, fs)
	assert.Nil(t, err)
	assert.IsType(t, &LocalFileSystem{}, fs)
}

func TestInferFilesystem(t *testing.T) {
	fs, _ := InferFilesystem("s3://foo/bar.txt")
	assert.NotNil(t, fs)
	assert.IsType(t, &S3FileSystem{}, fs)

	fs, _ = InferFilesystem("./bar.txt")
	assert.NotNil(t, fs)
	assert.IsType(t, &LocalFileSystem{}, fs)
}

func TestFilesystemType(t *testing.T) {
	assert.Equal(t, S3, FilesystemType(&S3FileSystem{}))
	assert.Equal(t, HDFS, FilesystemType(&HDFSFileSystem{}))
	assert.Equal(t, Local, FilesystemType(&LocalFileSystem{}))
}

func TestHdfsPath(t *testing.T) {
	assert.Equal(t, "/tmp/hashtags/input", hdfsPath("hdfs:///tmp/hashtags/input"))
	assert.Equal(t, "/tmp/hashtags/input", hdfsPath("hdfs://namenode:8020/tmp/hashtags/input"))
	assert.Equal(t, "/tmp/hashtags/input", hdfsPath("/tmp/hashtags/input"))
	assert.Equal(t, "/", hdfsPath("hdfs://namenode:8020"))
}
