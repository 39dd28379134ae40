package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vkozyrev/backupd/internal/common"
	sc "github.com/vkozyrev/backupd/internal/server/config"
)

// s3API is the subset of the S3 client used by S3Store, extracted so tests
// can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps blobs in an S3-compatible bucket (MinIO in local setups),
// one key prefix per user: "users/<id>/<filename>".
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store builds an S3 client from the server configuration. The static
// credentials and base endpoint match a MinIO deployment; against real AWS
// leave S3BaseEndpoint empty.
func NewS3Store(ctx context.Context, config *sc.Config) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.S3RootUser,     // MINIO_ROOT_USER
			config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(config.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: config.S3Bucket}, nil
}

func storageKey(userID, filename string) string {
	return fmt.Sprintf("users/%s/%s", userID, filename)
}

func (s *S3Store) Put(ctx context.Context, userID, filename string, data []byte) error {
	key := storageKey(userID, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, userID, filename string) ([]byte, error) {
	key := storageKey(userID, filename)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Stat(ctx context.Context, userID, filename string) (*BlobInfo, error) {
	key := storageKey(userID, filename)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("s3 head %s: %w", key, err)
	}

	info := &BlobInfo{Name: filename}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	return info, nil
}

func (s *S3Store) Delete(ctx context.Context, userID, filename string) error {
	key := storageKey(userID, filename)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, userID string) ([]string, error) {
	prefix := fmt.Sprintf("users/%s/", userID)

	var names []string
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			names = append(names, strings.TrimPrefix(*obj.Key, prefix))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return names, nil
}

// Users enumerates the per-user key prefixes under "users/".
func (s *S3Store) Users(ctx context.Context) ([]string, error) {
	prefix := "users/"
	delimiter := "/"

	var ids []string
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			Delimiter:         &delimiter,
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list users: %w", err)
		}
		for _, p := range out.CommonPrefixes {
			if p.Prefix == nil {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(*p.Prefix, prefix), delimiter)
			if id != "" {
				ids = append(ids, id)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return ids, nil
}
