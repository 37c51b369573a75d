package sbfs

import (
	"io"
	"net/url"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/colinmarc/hdfs/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// HDFSFileSystem abstracts a Hadoop Distributed File System namespace
// as a filesystem.
type HDFSFileSystem struct {
	client *hdfs.Client
}

// hdfsPath extracts the namenode-relative path from a (possibly
// fully-qualified) hdfs URI.
func hdfsPath(uri string) string {
	if !strings.HasPrefix(uri, "hdfs://") {
		return uri
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

// Init initializes the filesystem.
// The namenode address is taken from HADOOP_NAMENODE, falling back to
// the "namenodeAddress" config key.
func (h *HDFSFileSystem) Init() error {
	address := os.Getenv("HADOOP_NAMENODE")
	if address == "" {
		address = viper.GetString("namenodeAddress")
	}

	username := os.Getenv("HADOOP_USER_NAME")
	if username == "" {
		username = viper.GetString("hdfsUser")
	}
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: strings.Split(address, ","),
		User:      username,
	})
	if err != nil {
		log.Errorf("could not reach namenode at %s - %s", address, err)
		return err
	}

	h.client = client
	return nil
}

// ListFiles lists files that match pathGlob.
func (h *HDFSFileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	pathGlob = hdfsPath(pathGlob)

	baseDir := pathGlob
	if globRegex.MatchString(pathGlob) {
		baseDir = path.Dir(globRegex.FindStringSubmatch(pathGlob)[1] + "x")
	} else if stat, err := h.client.Stat(pathGlob); err == nil && !stat.IsDir() {
		return []FileInfo{{Name: pathGlob, Size: stat.Size()}}, nil
	}

	entries, err := h.client.ReadDir(baseDir)
	if err != nil {
		return nil, err
	}

	dirGlob := pathGlob
	if !globRegex.MatchString(pathGlob) {
		dirGlob = strings.TrimSuffix(pathGlob, "/") + "/*"
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fullPath := path.Join(baseDir, entry.Name())
		dirMatch, _ := filepath.Match(dirGlob, fullPath)
		pathMatch, _ := filepath.Match(pathGlob, fullPath)
		if !(dirMatch || pathMatch) {
			continue
		}
		files = append(files, FileInfo{
			Name: fullPath,
			Size: entry.Size(),
		})
	}

	return files, nil
}

// Stat returns information about the file at filePath.
func (h *HDFSFileSystem) Stat(filePath string) (FileInfo, error) {
	stat, err := h.client.Stat(hdfsPath(filePath))
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
func (h *HDFSFileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	reader, err := h.client.Open(hdfsPath(filePath))
	if err != nil {
		return nil, err
	}

	_, err = reader.Seek(startAt, io.SeekStart)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return reader, nil
}

// OpenWriter opens a writer to the file at filePath. An existing file
// is replaced.
func (h *HDFSFileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	name := hdfsPath(filePath)
	err := h.client.MkdirAll(path.Dir(name), 0755)
	if err != nil {
		return nil, err
	}

	// Create fails on an existing file, replace semantics are
	// delete-then-create.
	if _, err := h.client.Stat(name); err == nil {
		if err := h.client.Remove(name); err != nil {
			return nil, err
		}
	}

	return h.client.Create(name)
}

// Exists reports whether a file or directory exists at filePath.
func (h *HDFSFileSystem) Exists(filePath string) (bool, error) {
	_, err := h.client.Stat(hdfsPath(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes filePath and any children it contains.
func (h *HDFSFileSystem) Remove(filePath string) error {
	return h.client.RemoveAll(hdfsPath(filePath))
}

// CopyFromLocal copies a file from the local disk into HDFS.
func (h *HDFSFileSystem) CopyFromLocal(localPath, remotePath string) (int64, error) {
	name := hdfsPath(remotePath)
	err := h.client.MkdirAll(path.Dir(name), 0755)
	if err != nil {
		return 0, err
	}

	if _, err := h.client.Stat(name); err == nil {
		if err := h.client.Remove(name); err != nil {
			return 0, err
		}
	}

	err = h.client.CopyToRemote(localPath, name)
	if err != nil {
		return 0, err
	}

	stat, err := h.client.Stat(name)
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// MkdirAll creates path along with any missing parents.
func (h *HDFSFileSystem) MkdirAll(filePath string) error {
	return h.client.MkdirAll(hdfsPath(filePath), 0755)
}

// Join joins file path elements, preserving any scheme prefix on the
// first element.
func (h *HDFSFileSystem) Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	joined := elem[0]
	for _, e := range elem[1:] {
		joined = strings.TrimSuffix(joined, "/") + "/" + strings.TrimPrefix(e, "/")
	}
	return joined
}
