package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// S3API is the part of the S3 client the source needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads trail objects under a bucket prefix.
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// NewS3SourceFromConfig builds an S3 client from cfg. Static credentials are
// used when both key id and secret are set; otherwise the default AWS chain.
// An empty bucket is allowed and yields a source that reads nothing.
func NewS3SourceFromConfig(ctx context.Context, cfg config.S3Cfg) (*S3Source, error) {
	if cfg.Bucket == "" {
		return NewS3Source(nil, "", cfg.Prefix), nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 source: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.L().Infow("s3 source initialized", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", region)
	return NewS3Source(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Source) Name() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

func (s *S3Source) Fetch(ctx context.Context) ([]event.Record, error) {
	records := []event.Record{}
	if s.bucket == "" || s.client == nil {
		logger.L().Warnw("s3 bucket not configured, no events read")
		return records, nil
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	objects := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			logger.L().Warnw("listing trail objects failed, keeping records read so far",
				"bucket", s.bucket, "prefix", s.prefix, "records", len(records), "error", err)
			break
		}

		for _, obj := range page.Contents {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			key := aws.ToString(obj.Key)
			if !isTrailFile(key) {
				continue
			}
			recs, err := s.readObject(ctx, key)
			if err != nil {
				logger.L().Warnw("skipping unreadable trail object", "bucket", s.bucket, "key", key, "error", err)
				continue
			}
			objects++
			records = append(records, recs...)
		}
	}

	logger.L().Debugw("read trail objects", "bucket", s.bucket, "prefix", s.prefix, "objects", objects, "records", len(records))
	return records, nil
}

func (s *S3Source) readObject(ctx context.Context, key string) ([]event.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return decodeRecords(out.Body, strings.HasSuffix(key, ".gz"))
}
