package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

const defaultImportPrefix = "imports"

// objectPutter is the slice of the S3 client the archive needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive keeps a copy of every uploaded training results file.
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
	newKey func() string
}

// NewS3Archive returns nil when no bucket is configured; callers treat nil as "archiving off".
func NewS3Archive(cfg config.S3Config) *S3Archive {
	if cfg.Bucket == "" {
		logger.Info("S3 bucket not configured, import archiving disabled", nil)
		return nil
	}

	var awsCfg aws.Config
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}
	} else {
		// Default chain: env, shared credentials file, instance role.
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
		if err != nil {
			logger.Warn("Failed to load default AWS config, using region only", map[string]interface{}{
				"error": err.Error(),
			})
			loaded = aws.Config{Region: cfg.Region}
		}
		awsCfg = loaded
	}

	return newS3Archive(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.ImportPrefix)
}

func newS3Archive(client objectPutter, bucket, prefix string) *S3Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultImportPrefix
	}
	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		newKey: func() string { return uuid.New().String() },
	}
}

// Archive uploads data under <prefix>/<uuid>-<name> and returns the object key.
func (a *S3Archive) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	key := path.Join(a.prefix, a.newKey()+"-"+safeName(filename))

	logger.Debug("Archiving import file", map[string]interface{}{
		"bucket": a.bucket,
		"key":    key,
		"size":   len(data),
	})

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive import file: %w", err)
	}

	logger.Info("Import file archived", map[string]interface{}{
		"bucket": a.bucket,
		"key":    key,
	})
	return key, nil
}

// safeName drops directories and anything outside letters, digits, dot, dash and underscore.
func safeName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || base == "." || base == "/" {
		return "upload"
	}
	return b.String()
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
