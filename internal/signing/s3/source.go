package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/jdillenkofer/signtool/internal/signing"
)

const uriScheme = "s3://"

// Key material is small, anything bigger is not a PEM file.
const maxObjectSize = 64 * 1024

var ErrKeyNotFound = errors.New("key object not found")
var ErrInvalidURI = errors.New("invalid s3 uri")
var ErrObjectTooLarge = errors.New("key object too large")

type KeySource struct {
	s3Client *s3.Client
	bucket   string
	key      string
}

// Compile-time check to ensure KeySource implements signing.KeySource
var _ signing.KeySource = (*KeySource)(nil)

func NewKeySource(s3Client *s3.Client, bucket string, key string) *KeySource {
	return &KeySource{
		s3Client: s3Client,
		bucket:   bucket,
		key:      key,
	}
}

func (ks *KeySource) LoadPEM(ctx context.Context) (string, error) {
	out, err := ks.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ks.bucket),
		Key:    aws.String(ks.key),
	})
	var ae smithy.APIError
	if err != nil && errors.As(err, &ae) && (ae.ErrorCode() == "NoSuchKey" || ae.ErrorCode() == "NoSuchBucket" || ae.ErrorCode() == "NotFound") {
		return "", fmt.Errorf("%w: s3://%s/%s", ErrKeyNotFound, ks.bucket, ks.key)
	}
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxObjectSize {
		return "", fmt.Errorf("%w: s3://%s/%s", ErrObjectTooLarge, ks.bucket, ks.key)
	}
	return strings.TrimSpace(string(data)), nil
}

func IsURI(input string) bool {
	return strings.HasPrefix(input, uriScheme)
}

// ParseURI splits "s3://bucket/some/key.pem" into bucket and key.
func ParseURI(uri string) (string, string, error) {
	rest, found := strings.CutPrefix(uri, uriScheme)
	if !found {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

// NewClient builds an s3 client. Static credentials are used if accessKeyId is set,
// otherwise the default AWS credential chain applies. A non-empty endpoint switches
// to path style addressing for S3 compatible stores.
func NewClient(ctx context.Context, region string, endpoint string, accessKeyId string, secretAccessKey string) (*s3.Client, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKeyId != "" {
		optFns = append(optFns, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyId, secretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewKeySourceFromURI is a convenience wrapper around ParseURI and NewKeySource.
func NewKeySourceFromURI(s3Client *s3.Client, uri string) (*KeySource, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return NewKeySource(s3Client, bucket, key), nil
}
