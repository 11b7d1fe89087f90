package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/schemabounce/kolumn/dbwizard/config"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
)

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a configuration file stored as an S3 object.
type S3Source struct {
	client ObjectGetter
	config *S3Config
}

// S3Config contains S3 source configuration
type S3Config struct {
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	KeyPrefix       string `json:"key_prefix"`
	Project         string `json:"project"`
	FileName        string `json:"file_name"`
	MaxRetries      int    `json:"max_retries"`
	SkipCredentials bool   `json:"skip_credentials"`
	Profile         string `json:"profile"`
	AccessKey       string `json:"access_key"`
	SecretKey       string `json:"secret_key"`
	SessionToken    string `json:"session_token"`
	Endpoint        string `json:"endpoint"`
	ForcePathStyle  bool   `json:"force_path_style"`
}

// NewS3Source creates a new S3 source
func NewS3Source() *S3Source {
	return &S3Source{}
}

// NewS3SourceWithClient creates a configured source around an existing client.
func NewS3SourceWithClient(client ObjectGetter, cfg *S3Config) *S3Source {
	return &S3Source{client: client, config: cfg}
}

// Configure builds the S3 client from settings and the AWS default chain
func (s *S3Source) Configure(ctx context.Context, settings map[string]interface{}) error {
	cfg, err := parseS3Config(settings)
	if err != nil {
		return fmt.Errorf("invalid S3 configuration: %w", err)
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOptions = append(loadOptions, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.SkipCredentials {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
				SessionToken:    cfg.SessionToken,
			}, nil
		})
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.MaxRetries > 0 {
			o.RetryMaxAttempts = cfg.MaxRetries
		}
	})
	s.config = cfg

	logging.ConfigLogger.DebugWithFields("s3 configuration source ready", "bucket", cfg.Bucket, "key", cfg.ObjectKey())
	return nil
}

// Load implements config.Loader.
func (s *S3Source) Load(ctx context.Context) (*config.Document, error) {
	if s.client == nil || s.config == nil {
		return nil, fmt.Errorf("source not configured")
	}

	key := s.config.ObjectKey()
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKeyError(err) {
			return nil, fmt.Errorf("%w at s3://%s/%s", config.ErrNotFound, s.config.Bucket, key)
		}
		return nil, fmt.Errorf("failed to load configuration from S3: %w", err)
	}
	defer result.Body.Close()

	doc, err := config.Parse(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	return doc, nil
}

// ObjectKey returns the object holding the configuration: Key when set,
// otherwise KeyPrefix/Project/FileName.
func (c *S3Config) ObjectKey() string {
	if c.Key != "" {
		return c.Key
	}
	parts := make([]string, 0, 3)
	if prefix := strings.Trim(c.KeyPrefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	if c.Project != "" {
		parts = append(parts, c.Project)
	}
	parts = append(parts, c.FileName)
	return strings.Join(parts, "/")
}

func isNoSuchKeyError(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") || strings.Contains(errStr, "NotFound")
}

func parseS3Config(settings map[string]interface{}) (*S3Config, error) {
	cfg := &S3Config{
		Region:     "us-east-1",
		MaxRetries: 3,
		FileName:   "Web.config",
	}

	stringSetting(settings, "region", &cfg.Region)
	stringSetting(settings, "bucket", &cfg.Bucket)
	stringSetting(settings, "key", &cfg.Key)
	stringSetting(settings, "key_prefix", &cfg.KeyPrefix)
	stringSetting(settings, "project", &cfg.Project)
	stringSetting(settings, "file_name", &cfg.FileName)
	intSetting(settings, "max_retries", &cfg.MaxRetries)
	boolSetting(settings, "skip_credentials", &cfg.SkipCredentials)
	stringSetting(settings, "profile", &cfg.Profile)
	stringSetting(settings, "access_key", &cfg.AccessKey)
	stringSetting(settings, "secret_key", &cfg.SecretKey)
	stringSetting(settings, "session_token", &cfg.SessionToken)
	stringSetting(settings, "endpoint", &cfg.Endpoint)
	boolSetting(settings, "force_path_style", &cfg.ForcePathStyle)

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Key == "" && cfg.Project == "" {
		return nil, fmt.Errorf("either key or project is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region cannot be empty")
	}
	return cfg, nil
}
