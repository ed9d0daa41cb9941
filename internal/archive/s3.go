package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the part of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes published leaderboard snapshots to an S3-compatible bucket.
type Archiver struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	timeout time.Duration
}

func New(client ObjectPutter, bucket, prefix string) *Archiver {
	return &Archiver{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 15 * time.Second,
	}
}

// NewFromConfig builds an S3 client from the archive config. A custom
// endpoint selects path-style addressing, as R2 and MinIO expect.
func NewFromConfig(ctx context.Context, cfg config.Archive) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket, cfg.Prefix), nil
}

// Keys returns the object keys a snapshot is stored under.
func (a *Archiver) Keys(snap *leaderboard.Snapshot) (latest, versioned string) {
	dir := path.Join(a.prefix, snap.GroupID)
	return path.Join(dir, "latest.json"), path.Join(dir, strconv.FormatUint(snap.Generation, 10)+".json")
}

// Store uploads the versioned object first so latest.json never points
// ahead of the history.
func (a *Archiver) Store(ctx context.Context, snap *leaderboard.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	latest, versioned := a.Keys(snap)
	for _, key := range []string{versioned, latest} {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}
	return nil
}

// Listener adapts the archiver to leaderboard.Controller. Upload errors are
// logged; the live snapshot is unaffected.
func (a *Archiver) Listener() leaderboard.Listener {
	return func(snap *leaderboard.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.Store(ctx, snap); err != nil {
			zap.S().Errorf("failed to archive leaderboard of group %s generation %d: %v", snap.GroupID, snap.Generation, err)
			return
		}
		zap.S().Debugf("archived leaderboard of group %s generation %d", snap.GroupID, snap.Generation)
	}
}
