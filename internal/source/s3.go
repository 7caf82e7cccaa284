package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gitdrop/internal/drop"
)

// S3Scheme prefixes locations served by S3Source.
const S3Scheme = "s3://"

// Location is a parsed s3:// URI.
type Location struct {
	Bucket string
	Key    string // object key, or a prefix when it does not name an archive
}

// ParseLocation splits an s3://bucket/key URI.
func ParseLocation(uri string) (Location, error) {
	if !strings.HasPrefix(uri, S3Scheme) {
		return Location{}, fmt.Errorf("not an s3 location: %s", uri)
	}
	rest := strings.TrimPrefix(uri, S3Scheme)
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("s3 location has no bucket: %s", uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// downloader is the part of manager.Downloader S3Source uses.
type downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// S3Source fetches archives from S3. A location naming an archive object is
// downloaded directly; any other location is treated as a prefix and the
// newest matching object below it is downloaded.
type S3Source struct {
	client     s3.ListObjectsV2APIClient
	downloader downloader
	extension  string
	local      drop.ArchiveSource
	logger     drop.Logger
}

// NewS3Source creates an S3Source on top of client. Locations that are not
// s3:// URIs are delegated to local.
func NewS3Source(client *s3.Client, extension string, local drop.ArchiveSource, logger drop.Logger) *S3Source {
	return &S3Source{
		client:     client,
		downloader: manager.NewDownloader(client),
		extension:  extension,
		local:      local,
		logger:     logger,
	}
}

func (s *S3Source) Remote(location string) bool {
	return strings.HasPrefix(location, S3Scheme)
}

func (s *S3Source) Fetch(ctx context.Context, location, downloadDir string) (string, error) {
	if !s.Remote(location) {
		return s.local.Fetch(ctx, location, downloadDir)
	}

	loc, err := ParseLocation(location)
	if err != nil {
		return "", err
	}

	key := loc.Key
	if !s.isArchive(key) {
		key, err = s.newestKey(ctx, loc)
		if err != nil {
			return "", err
		}
	}

	dst := filepath.Join(downloadDir, path.Base(key))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}

	n, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("downloading s3://%s/%s: %w", loc.Bucket, key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}

	s.logger.Info("archive downloaded", "bucket", loc.Bucket, "key", key, "bytes", n)
	return dst, nil
}

func (s *S3Source) isArchive(key string) bool {
	return key != "" && !strings.HasSuffix(key, "/") && strings.EqualFold(path.Ext(key), s.extension)
}

// newestKey lists every object under the prefix and picks the most recently
// modified archive. Ties go to the lexically smallest key.
func (s *S3Source) newestKey(ctx context.Context, loc Location) (string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(loc.Bucket)}
	if loc.Key != "" {
		input.Prefix = aws.String(loc.Key)
	}

	var newest *types.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("listing s3://%s/%s: %w", loc.Bucket, loc.Key, err)
		}
		for i := range page.Contents {
			obj := page.Contents[i]
			if !s.isArchive(aws.ToString(obj.Key)) {
				continue
			}
			if newest == nil || newer(obj, *newest) {
				newest = &obj
			}
		}
	}

	if newest == nil {
		return "", fmt.Errorf("no %s objects under s3://%s/%s", s.extension, loc.Bucket, loc.Key)
	}
	return aws.ToString(newest.Key), nil
}

func newer(a, b types.Object) bool {
	at, bt := aws.ToTime(a.LastModified), aws.ToTime(b.LastModified)
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return aws.ToString(a.Key) < aws.ToString(b.Key)
}

var _ drop.ArchiveSource = (*S3Source)(nil)
