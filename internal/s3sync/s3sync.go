// Package s3sync pulls newly uploaded raw session videos from the platform's
// S3 bucket into the local video directory. Only files not already present
// locally are downloaded, so a pull is cheap to re-run.
package s3sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/videoname"
)

// ObjectStore is the slice of the S3 API the syncer uses; *s3.Client
// satisfies it.
type ObjectStore interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewClient builds an S3 client from the ambient AWS configuration
// (credentials file or environment).
func NewClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Syncer mirrors a bucket's raw videos into the local video directory.
type Syncer struct {
	store    ObjectStore
	bucket   string
	videoDir string
}

// New returns a Syncer for one bucket.
func New(store ObjectStore, bucket, videoDir string) *Syncer {
	return &Syncer{store: store, bucket: bucket, videoDir: videoDir}
}

// Pull downloads every raw video object not yet present locally and returns
// the new filenames, ready to hand to the video-data update.
func (s *Syncer) Pull(ctx context.Context) ([]string, error) {
	var newFiles []string
	var token *string
	for {
		out, err := s.store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			ContinuationToken: token,
		})
		if err != nil {
			return newFiles, fmt.Errorf("listing bucket %s: %w", s.bucket, err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			name := path.Base(*obj.Key)
			if !strings.HasSuffix(name, videoname.Ext) {
				continue
			}
			local := filepath.Join(s.videoDir, name)
			if _, err := os.Stat(local); err == nil {
				continue
			}
			if err := s.download(ctx, *obj.Key, local); err != nil {
				return newFiles, err
			}
			newFiles = append(newFiles, name)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	log.Info().Int("new", len(newFiles)).Str("bucket", s.bucket).Msg("Raw videos pulled")
	return newFiles, nil
}

func (s *Syncer) download(ctx context.Context, key, localPath string) error {
	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Downloading from S3")
	result, err := s.store.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer result.Body.Close()

	tmp := localPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, result.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp, localPath)
}
