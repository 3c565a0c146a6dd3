package lode

import (
	"context"
	"fmt"
	"strings"
)

// S3Config locates a validation dataset in an S3 bucket.
type S3Config struct {
	Bucket string
	// Prefix is the key prefix datasets/ lives under; no surrounding slashes.
	Prefix string
	// Region overrides the default chain's region.
	Region string
	// Endpoint is the base URL of an S3-compatible provider.
	Endpoint     string
	UsePathStyle bool
}

// Validate checks the bucket name and endpoint before any AWS call is made.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 storage path needs a bucket (bucket[/prefix])")
	}
	if n := len(c.Bucket); n < 3 || n > 63 {
		return fmt.Errorf("s3 bucket %q: name must be 3 to 63 characters", c.Bucket)
	}
	for _, r := range c.Bucket {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.') {
			return fmt.Errorf("s3 bucket %q: invalid character %q", c.Bucket, r)
		}
	}
	if c.Endpoint != "" && !strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("s3 endpoint %q: missing scheme", c.Endpoint)
	}
	return nil
}

// RunURI is the s3:// location of one run's partitions and sidecar files.
func (c S3Config) RunURI(cfg Config) string {
	uri := "s3://" + c.Bucket + "/"
	if c.Prefix != "" {
		uri += c.Prefix + "/"
	}
	return uri + RunPrefix(cfg)
}

// ParseS3Path splits a --storage-path of the form [s3://]bucket[/prefix].
func ParseS3Path(path string) (bucket, prefix string) {
	path = strings.Trim(strings.TrimPrefix(path, "s3://"), "/")
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, strings.Trim(prefix, "/")
}

// NewLodeS3Client creates a client writing run records to S3 with the AWS
// default credential chain.
func NewLodeS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, newStorageError(OpInit, "", cfg.RunID, s3cfg.RunURI(cfg), err)
	}
	return NewLodeClientWithFactory(cfg, factory)
}
