package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/artifactlink/artifactlink/pkg/util"
)

// Storage serves artifacts from an S3 bucket, keyed as
// <prefix><buildID>/<artifact path>.
type Storage struct {
	AccessKeyId     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`

	client *s3.Client
}

func (s *Storage) Open(buildID int64, path string) (io.ReadCloser, error) {
	key := fmt.Sprintf("%s%d/%s", s.Prefix, buildID, path)

	out, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("Storage.Open: %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("Storage.Open: %s: %w", key, err)
	}

	return out.Body, nil
}

// NewStorage returns a new initialized Storage
func NewStorage(c map[string]any) (*Storage, error) {
	q := util.ConfigToStruct[Storage](c)
	appCreds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(q.AccessKeyId, q.SecretAccessKey, ""))

	cfg, _ := awsconfig.LoadDefaultConfig(context.TODO())

	var endpoint *string
	if q.Endpoint != "" {
		endpoint = aws.String(q.Endpoint)
	}

	q.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = q.Region
		o.Credentials = appCreds
		o.BaseEndpoint = endpoint
	})

	return q, nil
}
