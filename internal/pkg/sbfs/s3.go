package sbfs

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mattetti/filebuffer"
)

var validS3Schemes = map[string]bool{
	"s3": true,
}

// s3MinPartSize is the smallest part size accepted by the S3
// multipart upload API, except for the final part.
const s3MinPartSize = 5 * 1024 * 1024

// S3FileSystem abstracts AWS S3 as a filesystem
type S3FileSystem struct {
	s3Client    *s3.S3
	objectCache *lru.Cache
}

func parseS3URL(uri string) (*url.URL, error) {
	return parseURIWithMap(uri, validS3Schemes)
}

// ListFiles lists files that match pathGlob.
func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	s3Files := make([]FileInfo, 0)

	parsed, err := parseS3URL(pathGlob)
	if err != nil {
		return nil, err
	}

	baseURI := parsed.Path
	if globRegex.MatchString(parsed.Path) {
		baseURI = globRegex.FindStringSubmatch(parsed.Path)[1]
	}

	var dirGlob string
	if !strings.HasSuffix(pathGlob, "/") {
		dirGlob = pathGlob + "/*"
	} else {
		dirGlob = pathGlob + "*"
	}

	params := &s3.ListObjectsInput{
		Bucket: aws.String(parsed.Hostname()),
		Prefix: aws.String(baseURI),
	}

	objectPrefix := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Hostname())
	err = s.s3Client.ListObjectsPages(params,
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				fullPath := objectPrefix + *object.Key

				dirMatch, _ := filepath.Match(dirGlob, fullPath)
				pathMatch, _ := filepath.Match(pathGlob, fullPath)
				if !(dirMatch || pathMatch) {
					continue
				}

				s3Files = append(s3Files, FileInfo{
					Name: fullPath,
					Size: *object.Size,
				})
				s.objectCache.Add(fullPath, object)
			}
			return true
		})

	return s3Files, err
}

// OpenReader opens a reader to the file at filePath. The reader
// is initially seeked to "startAt" bytes into the file.
func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	parsed, err := parseS3URL(filePath)
	if err != nil {
		return nil, err
	}

	objStat, err := s.Stat(filePath)
	if err != nil {
		return nil, err
	}

	reader := &s3Reader{
		client:    s.s3Client,
		bucket:    parsed.Hostname(),
		key:       parsed.Path,
		offset:    startAt,
		chunkSize: 20 * 1024 * 1024, // 20 Mb chunk size
		totalSize: objStat.Size,
	}
	err = reader.loadNextChunk()
	return reader, err
}

// OpenWriter opens a writer to the file at filePath.
func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	parsed, err := parseS3URL(filePath)
	if err != nil {
		return nil, err
	}

	writer := &s3Writer{
		client:         s.s3Client,
		bucket:         parsed.Hostname(),
		key:            parsed.Path,
		buf:            filebuffer.New(nil),
		completedParts: []*s3.CompletedPart{},
	}
	err = writer.Init()
	return writer, err
}

// Stat returns information about the file at filePath.
func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	if object, exists := s.objectCache.Get(filePath); exists {
		return FileInfo{
			Name: filePath,
			Size: *object.(*s3.Object).Size,
		}, nil
	}

	parsed, err := parseS3URL(filePath)
	if err != nil {
		return FileInfo{}, err
	}

	params := &s3.ListObjectsInput{
		Bucket: aws.String(parsed.Hostname()),
		Prefix: aws.String(parsed.Path),
	}
	result, err := s.s3Client.ListObjects(params)
	if err != nil {
		return FileInfo{}, err
	}

	for _, object := range result.Contents {
		if *object.Key == parsed.Path {
			s.objectCache.Add(filePath, object)
			return FileInfo{
				Name: filePath,
				Size: *object.Size,
			}, nil
		}
	}

	return FileInfo{}, errors.New("no file with given filename")
}

// Exists reports whether an object exists at filePath.
func (s *S3FileSystem) Exists(filePath string) (bool, error) {
	_, err := s.Stat(filePath)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Remove deletes every object under filePath.
func (s *S3FileSystem) Remove(filePath string) error {
	objects, err := s.ListFiles(strings.TrimSuffix(filePath, "/"))
	if err != nil {
		return err
	}

	for _, object := range objects {
		if err := s.delete(object.Name); err != nil {
			return err
		}
		s.objectCache.Remove(object.Name)
	}
	return nil
}

// delete deletes the object at filePath.
func (s *S3FileSystem) delete(filePath string) error {
	parsed, err := parseS3URL(filePath)
	if err != nil {
		return err
	}

	params := &s3.DeleteObjectInput{
		Bucket: aws.String(parsed.Hostname()),
		Key:    aws.String(parsed.Path),
	}
	_, err = s.s3Client.DeleteObject(params)
	return err
}

// CopyFromLocal copies a file from the local disk into S3.
func (s *S3FileSystem) CopyFromLocal(localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := s.OpenWriter(remotePath)
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

// MkdirAll is a no-op, S3 has no directories.
func (s *S3FileSystem) MkdirAll(path string) error {
	return nil
}

// Init initializes the filesystem.
func (s *S3FileSystem) Init() error {
	os.Setenv("AWS_SDK_LOAD_CONFIG", "true")
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	s.s3Client = s3.New(sess)

	s.objectCache, _ = lru.New(10000)

	return nil
}

// Join joins file path elements
func (s *S3FileSystem) Join(elem ...string) string {
	stripped := make([]string, len(elem))
	for i, str := range elem {
		if i != 0 && strings.HasPrefix(str, "/") {
			str = str[1:]
		}
		if strings.HasSuffix(str, "/") && i != len(elem)-1 {
			str = str[:len(str)-1]
		}
		stripped[i] = str
	}
	return strings.Join(stripped, "/")
}

// s3Reader reads an S3 object in chunks using ranged GETs.
type s3Reader struct {
	client    *s3.S3
	bucket    string
	key       string
	chunk     io.ReadCloser
	offset    int64
	chunkSize int64
	totalSize int64
}

func (r *s3Reader) loadNextChunk() error {
	if r.chunk != nil {
		r.chunk.Close()
	}

	endByte := min64(r.offset+r.chunkSize-1, r.totalSize-1)
	byteRange := fmt.Sprintf("bytes=%d-%d", r.offset, endByte)

	params := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(byteRange),
	}
	result, err := r.client.GetObject(params)
	if err != nil {
		return err
	}

	r.offset = endByte + 1
	r.chunk = result.Body
	return nil
}

func (r *s3Reader) Read(p []byte) (int, error) {
	n, err := r.chunk.Read(p)
	if err == io.EOF && r.offset < r.totalSize {
		err = r.loadNextChunk()
	}
	return n, err
}

func (r *s3Reader) Close() error {
	if r.chunk != nil {
		return r.chunk.Close()
	}
	return nil
}

// s3Writer writes an S3 object using a multipart upload, buffering
// parts in memory until they reach the minimum part size.
type s3Writer struct {
	client         *s3.S3
	bucket         string
	key            string
	buf            *filebuffer.Buffer
	uploadID       string
	completedParts []*s3.CompletedPart
}

func (w *s3Writer) Init() error {
	params := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
	}
	resp, err := w.client.CreateMultipartUpload(params)
	if err != nil {
		return err
	}

	w.uploadID = *resp.UploadId
	return nil
}

func (w *s3Writer) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if err != nil {
		return n, err
	}

	if w.buf.Buff.Len() >= s3MinPartSize {
		err = w.flushPart()
	}
	return n, err
}

func (w *s3Writer) flushPart() error {
	w.buf.Seek(0, io.SeekStart)
	partNumber := int64(len(w.completedParts) + 1)

	params := &s3.UploadPartInput{
		Bucket:     aws.String(w.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int64(partNumber),
		Body:       w.buf,
	}
	resp, err := w.client.UploadPart(params)
	if err != nil {
		return err
	}

	w.completedParts = append(w.completedParts, &s3.CompletedPart{
		ETag:       resp.ETag,
		PartNumber: aws.Int64(partNumber),
	})
	w.buf = filebuffer.New(nil)
	return nil
}

func (w *s3Writer) Close() error {
	if w.buf.Buff.Len() > 0 || len(w.completedParts) == 0 {
		if err := w.flushPart(); err != nil {
			return err
		}
	}

	params := &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: w.completedParts,
		},
	}
	_, err := w.client.CompleteMultipartUpload(params)
	return err
}
