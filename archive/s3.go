package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Archiver uploads snapshots to Amazon S3 or a compatible service.
// Snapshots contain registrant addresses and are uploaded with a private ACL.
type S3Archiver struct {
	client      s3iface.S3API
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Archiver creates an S3 archiver. Without static credentials the
// default AWS credential chain (environment, shared config, instance role) is used.
func NewS3Archiver(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Archiver, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Archiver(s3.New(sess), bucketName, prefix, uri, log), nil
}

func newS3Archiver(client s3iface.S3API, bucketName, prefix, uri string, log *slog.Logger) *S3Archiver {
	return &S3Archiver{
		client:      client,
		bucketName:  bucketName,
		prefix:      strings.Trim(prefix, "/"),
		log:         log,
		locationURI: uri,
	}
}

// Put uploads data as prefix/name.
func (a *S3Archiver) Put(ctx context.Context, name string, data []byte) (string, error) {
	start := time.Now()
	key := a.objectKey(name)

	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
		ACL:         aws.String(s3.ObjectCannedACLPrivate),
	})
	if err != nil {
		a.log.Error("Failed to upload snapshot to S3",
			slog.String("bucket", a.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("failed to upload object to S3: %w", err)
	}

	a.log.Debug("Archived snapshot to S3",
		slog.String("bucket", a.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return fmt.Sprintf("s3://%s/%s", a.bucketName, key), nil
}

// Available checks if the bucket is reachable.
func (a *S3Archiver) Available(ctx context.Context) bool {
	_, err := a.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucketName),
	})
	if err != nil {
		a.log.Warn("S3 archive unavailable",
			slog.String("bucket", a.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this archive.
func (a *S3Archiver) Name() string {
	return fmt.Sprintf("s3-%s", a.bucketName)
}

// LocationURI returns the URI that identifies this archive.
func (a *S3Archiver) LocationURI() string {
	return a.locationURI
}

func (a *S3Archiver) objectKey(name string) string {
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}
