package filestore

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// FileData describes one stored object
type FileData struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
	IsAudio     bool
}

// Options to init Store
type Options struct {
	URL       string
	User      string
	Key       string
	Bucket    string
	HTTPS     bool
	URLExpiry time.Duration
}

// Store provides audio payload operations over minio/s3
type Store struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

// NewStore creates minio client and makes sure the bucket exists
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no file store url")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	mc, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.HTTPS,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Store{client: mc, bucket: opts.Bucket, urlExpiry: opts.URLExpiry}
	if res.urlExpiry <= 0 {
		res.urlExpiry = time.Hour
	}
	if err := res.ensureBucket(ctx); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Msg("connected to file store")
	return res, nil
}

func (fs *Store) ensureBucket(ctx context.Context) error {
	exists, err := goapp.InvokeWithBackoff(ctx, func() (bool, bool, error) {
		ok, err := fs.client.BucketExists(ctx, fs.bucket)
		return ok, true, err
	}, newSimpleBackoff())
	if err != nil {
		return fmt.Errorf("can't check bucket %s: %w", fs.bucket, err)
	}
	if !exists {
		if err := fs.client.MakeBucket(ctx, fs.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("can't create bucket %s: %w", fs.bucket, err)
		}
		goapp.Log.Info().Str("bucket", fs.bucket).Msg("created bucket")
	}
	return nil
}

// SignURL returns a presigned GET URL for the object
func (fs *Store) SignURL(ctx context.Context, name string) (string, error) {
	u, err := fs.client.PresignedGetObject(ctx, fs.bucket, name, fs.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("can't presign %s: %w", name, err)
	}
	return u.String(), nil
}

// Delete removes the object.
// Returns false if the object does not exist
func (fs *Store) Delete(ctx context.Context, name string) (bool, error) {
	_, err := fs.client.StatObject(ctx, fs.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("can't stat %s: %w", name, err)
	}
	if err := fs.client.RemoveObject(ctx, fs.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("can't remove %s: %w", name, err)
	}
	return true, nil
}

// List returns info for all objects in the bucket sorted by name
func (fs *Store) List(ctx context.Context) ([]FileData, error) {
	res := []FileData{}
	for obj := range fs.client.ListObjects(ctx, fs.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("can't list objects: %w", obj.Err)
		}
		st, err := fs.client.StatObject(ctx, fs.bucket, obj.Key, minio.StatObjectOptions{})
		if err != nil {
			if isNotFound(err) { // object dropped while listing
				continue
			}
			return nil, fmt.Errorf("can't stat %s: %w", obj.Key, err)
		}
		res = append(res, FileData{
			Name:        filepath.Base(obj.Key),
			Path:        obj.Key,
			Size:        st.Size,
			ContentType: st.ContentType,
			Updated:     st.LastModified,
			ETag:        strings.Trim(st.ETag, `"`),
			IsAudio:     utils.SupportAudioExt(filepath.Ext(obj.Key)),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return strings.ToLower(res[i].Name) < strings.ToLower(res[j].Name)
	})
	return res, nil
}

// Live returns no error if the store is reachable
func (fs *Store) Live(ctx context.Context) error {
	if _, err := fs.client.BucketExists(ctx, fs.bucket); err != nil {
		return fmt.Errorf("can't access bucket %s: %w", fs.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
