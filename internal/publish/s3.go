package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// S3Options holds connection settings for an S3-compatible target.
type S3Options struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// S3Publisher uploads assets to an S3-compatible bucket under
// <prefix>/<namespace>/<file>.
type S3Publisher struct {
	client *minio.Client
	bucket string
	prefix string
	log    *logrus.Entry
}

// NewS3 creates an S3 publisher with a TLS-hardened transport.
func NewS3(opts S3Options, log *logrus.Logger) (*S3Publisher, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.Secure,
		Transport:    tr,
		Region:       "auto",
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %v", err)
	}

	return &S3Publisher{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		log:    log.WithField("component", "publish"),
	}, nil
}

func (p *S3Publisher) Publish(ctx context.Context, namespace, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	uploaded := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		key := objectKey(p.prefix, namespace, name)
		_, err := p.client.FPutObject(ctx, p.bucket, key, filepath.Join(dir, name), minio.PutObjectOptions{
			ContentType: contentTypeFor(name),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %v", key, err)
		}
		uploaded++
	}

	p.log.Debugf("uploaded %d assets to s3://%s/%s", uploaded, p.bucket, objectKey(p.prefix, namespace, ""))
	return nil
}

func (p *S3Publisher) Prune(ctx context.Context, namespace string) error {
	prefix := objectKey(p.prefix, namespace, "") + "/"
	objects := p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list %s: %v", prefix, obj.Err)
		}
		if err := p.client.RemoveObject(ctx, p.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %v", obj.Key, err)
		}
	}
	return nil
}

func objectKey(prefix, namespace, name string) string {
	return path.Join(prefix, namespace, name)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return ""
}
