// Package fsxs3 reads source documents from an S3 bucket.
package fsxs3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FileSystem implements fsx.PathReader over bucket/prefix.
type S3FileSystem struct {
	client S3API
	bucket string
	prefix string
}

func NewS3FileSystem(client S3API, bucket, prefix string) *S3FileSystem {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3FileSystem{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3FileSystem) key(p string) string {
	return s.prefix + strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	rc, err := s.ReadFileStream(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *S3FileSystem) ReadFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return nil, s.wrap("get object", p, err)
	}
	return out.Body, nil
}

func (s *S3FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return fsx.FileInfo{}, s.wrap("head object", p, err)
	}

	info := fsx.FileInfo{
		Name:        path.Base(p),
		Size:        aws.ToInt64(out.ContentLength),
		ModTime:     aws.ToTime(out.LastModified),
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}
	if info.Metadata == nil {
		info.Metadata = make(map[string]string)
	}
	if out.ETag != nil {
		info.Metadata["etag"] = strings.Trim(*out.ETag, `"`)
	}
	return info, nil
}

// List returns the direct children of a "directory" prefix.
func (s *S3FileSystem) List(ctx context.Context, p string) ([]fsx.FileInfo, error) {
	prefix := s.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var infos []fsx.FileInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.wrap("list objects", p, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			infos = append(infos, fsx.FileInfo{Name: name, IsDir: true, Metadata: map[string]string{}})
		}
		for _, obj := range page.Contents {
			infos = append(infos, fsx.FileInfo{
				Name:     strings.TrimPrefix(aws.ToString(obj.Key), prefix),
				Size:     aws.ToInt64(obj.Size),
				ModTime:  aws.ToTime(obj.LastModified),
				Metadata: map[string]string{},
			})
		}
	}
	return infos, nil
}

func (s *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *S3FileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

func (s *S3FileSystem) wrap(op, p string, err error) error {
	var (
		notFound *types.NotFound
		noKey    *types.NoSuchKey
	)
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return fmt.Errorf("s3://%s/%s not found: %w", s.bucket, s.key(p), fs.ErrNotExist)
	}
	return fmt.Errorf("failed to %s s3://%s/%s: %w", op, s.bucket, s.key(p), err)
}
