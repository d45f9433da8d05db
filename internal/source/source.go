// Package source loads the pages the CLI and dev server hydrate, from a
// local directory or an S3 bucket.
package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/interactivity/internal/errors"
)

// PageExt is the extension of page files.
const PageExt = ".html"

// Source is a set of pages addressed by slash-separated names relative to
// the source root, e.g. "blog/post.html".
type Source interface {
	// List returns the page names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Read returns the markup of one page.
	Read(ctx context.Context, name string) ([]byte, error)

	// String describes the location.
	String() string
}

// S3API is the part of the S3 client a bucket source uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Option configures Open.
type Option func(*options)

type options struct {
	region string
	client S3API
}

// WithRegion sets the AWS region for s3:// locations.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithS3Client uses client for s3:// locations instead of building one.
func WithS3Client(client S3API) Option {
	return func(o *options) {
		o.client = client
	}
}

// Open returns the source for location: s3://bucket/prefix or a local
// directory.
func Open(location string, opts ...Option) (Source, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if bucket, prefix, ok := parseS3(location); ok {
		client := o.client
		if client == nil {
			client = newS3Client(o.region)
		}
		return &Bucket{client: client, bucket: bucket, prefix: prefix}, nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, sourceError(location, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.CodeSourceFailed).
			WithDetailf("%s is not a directory", location)
	}
	return &Dir{root: location}, nil
}

// ReadPage reads a single page: s3://bucket/key or a local file path.
func ReadPage(ctx context.Context, location string, opts ...Option) ([]byte, error) {
	if bucket, key, ok := parseS3(location); ok {
		var o options
		for _, opt := range opts {
			opt(&o)
		}
		client := o.client
		if client == nil {
			client = newS3Client(o.region)
		}
		b := &Bucket{client: client, bucket: bucket}
		return b.Read(ctx, key)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, sourceError(location, err)
	}
	return data, nil
}

// IsS3 reports whether location names an S3 object or prefix.
func IsS3(location string) bool {
	_, _, ok := parseS3(location)
	return ok
}

func parseS3(location string) (bucket, key string, ok bool) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, bucket != ""
}

// newS3Client builds a client from the standard AWS environment variables.
func newS3Client(region string) *s3.Client {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	})
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if !creds.HasKeys() {
		return aws.Credentials{}, errors.New(errors.CodeSourceFailed).
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")
	}
	return creds, nil
}

func sourceError(location string, err error) *errors.VangoError {
	return errors.New(errors.CodeSourceFailed).
		WithDetailf("cannot read %s", location).
		Wrap(err)
}

// =============================================================================
// Local directory
// =============================================================================

// Dir is a source backed by a local directory.
type Dir struct {
	root string
}

// List implements Source.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(p) != PageExt {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, sourceError(d.root, err)
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Source. Names that leave the root are rejected.
func (d *Dir) Read(_ context.Context, name string) ([]byte, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return nil, errors.New(errors.CodeSourceFailed).
			WithDetailf("page name %q leaves %s", name, d.root)
	}
	data, err := os.ReadFile(filepath.Join(d.root, local))
	if err != nil {
		return nil, sourceError(path.Join(d.root, name), err)
	}
	return data, nil
}

func (d *Dir) String() string {
	return d.root
}

// =============================================================================
// S3 bucket
// =============================================================================

// Bucket is a source backed by the objects under a key prefix.
type Bucket struct {
	client S3API
	bucket string
	prefix string
}

// List implements Source.
func (b *Bucket) List(ctx context.Context) ([]string, error) {
	prefix := b.keyPrefix()
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, sourceError(b.String(), err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, PageExt) {
				continue
			}
			names = append(names, strings.TrimPrefix(*obj.Key, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Source.
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, error) {
	if name == "" || strings.Contains(name, "..") {
		return nil, errors.New(errors.CodeSourceFailed).
			WithDetailf("invalid page name %q", name)
	}
	key := b.keyPrefix() + name
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, sourceError("s3://"+b.bucket+"/"+key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, sourceError("s3://"+b.bucket+"/"+key, err)
	}
	return data, nil
}

func (b *Bucket) String() string {
	return "s3://" + b.bucket + "/" + b.prefix
}

func (b *Bucket) keyPrefix() string {
	if b.prefix == "" || strings.HasSuffix(b.prefix, "/") {
		return b.prefix
	}
	return b.prefix + "/"
}
