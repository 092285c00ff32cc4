package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"zengallery/internal/config"
	"zengallery/internal/gallery"
)

// S3Store implements the BlobStore interface against an S3-compatible
// bucket. Ranged reads, server-side copies, and the multipart session
// protocol all map onto native S3 operations; the backend holds parts until
// completion and assigns session identifiers itself.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3 client from the blob configuration. A custom
// endpoint switches the client to path-style addressing for MinIO and other
// S3-compatible stores.
func NewS3Store(ctx context.Context, cfg config.BlobConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

func (s *S3Store) fullKey(key string) string {
	return gallery.JoinKey(s.prefix, key)
}

// isNotFound maps the S3 error types that mean "no such object/session".
func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var noUpload *types.NoSuchUpload
	return errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noUpload)
}

// Put stores the object with a single PutObject call. Bodies on this path
// are bounded by the single-upload cap, far under the S3 single-put limit,
// and a single put keeps the returned ETag equal to the content MD5, which
// hashless staged uploads adopt as the identifier. A chunked upload would
// return a composite ETag instead.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (gallery.PutResult, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return gallery.PutResult{}, fmt.Errorf("putting object %s: %w", key, err)
	}

	return gallery.PutResult{ETag: aws.ToString(out.ETag), Size: size}, nil
}

// Get returns the full object. The caller must close the body.
func (s *S3Store) Get(ctx context.Context, key string) (*gallery.Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}

	size := aws.ToInt64(out.ContentLength)
	return &gallery.Object{
		ObjectInfo: gallery.ObjectInfo{
			Key:         key,
			Size:        size,
			ContentType: aws.ToString(out.ContentType),
			ETag:        aws.ToString(out.ETag),
		},
		TotalSize: size,
		Body:      out.Body,
	}, nil
}

// GetRange asks S3 for the byte window directly; bytes outside it are never
// transferred.
func (s *S3Store) GetRange(ctx context.Context, key string, offset, length int64) (*gallery.Object, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("getting range of object %s: %w", key, err)
	}

	return &gallery.Object{
		ObjectInfo: gallery.ObjectInfo{
			Key:         key,
			Size:        aws.ToInt64(out.ContentLength),
			ContentType: aws.ToString(out.ContentType),
			ETag:        aws.ToString(out.ETag),
		},
		Body: out.Body,
	}, nil
}

// Head returns object metadata without the body.
func (s *S3Store) Head(ctx context.Context, key string) (*gallery.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("heading object %s: %w", key, err)
	}

	return &gallery.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
	}, nil
}

// Delete removes the object. S3 deletes are silent for absent keys, so a
// head check keeps not-found distinguishable for callers.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.Head(ctx, key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// Copy duplicates srcKey to dstKey server-side.
func (s *S3Store) Copy(ctx context.Context, srcKey, dstKey string) (gallery.PutResult, error) {
	source := s.bucket + "/" + s.fullKey(srcKey)
	out, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.fullKey(dstKey)),
		CopySource: aws.String(url.PathEscape(source)),
	})
	if err != nil {
		if isNotFound(err) {
			return gallery.PutResult{}, fmt.Errorf("%w: %s", gallery.ErrNotFound, srcKey)
		}
		return gallery.PutResult{}, fmt.Errorf("copying object %s to %s: %w", srcKey, dstKey, err)
	}

	var etag string
	if out.CopyObjectResult != nil {
		etag = aws.ToString(out.CopyObjectResult.ETag)
	}
	return gallery.PutResult{ETag: etag}, nil
}

// CreateMultipart opens a native S3 multipart upload.
func (s *S3Store) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	in := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := s.client.CreateMultipartUpload(ctx, in)
	if err != nil {
		return "", fmt.Errorf("creating multipart upload for %s: %w", key, err)
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart streams one part; S3 holds it until completion.
func (s *S3Store) UploadPart(ctx context.Context, key, sessionID string, partNumber int, r io.Reader, size int64) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		UploadId:      aws.String(sessionID),
		PartNumber:    aws.Int32(int32(partNumber)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: multipart session %s", gallery.ErrNotFound, sessionID)
		}
		return "", fmt.Errorf("uploading part %d: %w", partNumber, err)
	}
	return aws.ToString(out.ETag), nil
}

// CompleteMultipart commits the parts; S3 assembles them in the order given.
func (s *S3Store) CompleteMultipart(ctx context.Context, key, sessionID string, parts []gallery.CompletedPart) (gallery.PutResult, error) {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.PartNumber)),
		}
	}

	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(s.fullKey(key)),
		UploadId:        aws.String(sessionID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		if isNotFound(err) {
			return gallery.PutResult{}, fmt.Errorf("%w: multipart session %s", gallery.ErrNotFound, sessionID)
		}
		return gallery.PutResult{}, fmt.Errorf("completing multipart upload: %w", err)
	}

	return gallery.PutResult{ETag: aws.ToString(out.ETag)}, nil
}

// AbortMultipart releases all staged parts. An already-gone session is
// treated as success to keep abort idempotent.
func (s *S3Store) AbortMultipart(ctx context.Context, key, sessionID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.fullKey(key)),
		UploadId: aws.String(sessionID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("aborting multipart upload: %w", err)
	}
	return nil
}

// SupportsRange reports native range support via the HTTP Range header.
func (s *S3Store) SupportsRange() bool { return true }

// Compile-time check that S3Store implements the BlobStore interface
var _ gallery.BlobStore = (*S3Store)(nil)
