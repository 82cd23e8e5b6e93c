package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds UploadMany fan-out.
const DefaultConcurrency = 3

// DefaultUploadTimeout bounds a single host upload.
const DefaultUploadTimeout = 2 * time.Minute

// Item is one reference handed to UploadMany. Tag is attached to the upload
// metadata alongside the uploader's default tags.
type Item struct {
	Reference string
	Tag       string
}

// Uploaded pairs an input reference with its hosted URL.
type Uploaded struct {
	Index     int
	Reference string
	URL       string
}

// Failure pairs an input reference with the reason it was not uploaded.
type Failure struct {
	Index     int
	Reference string
	Err       error
}

// BulkResult lists outcomes in input order.
type BulkResult struct {
	Succeeded []Uploaded
	Failed    []Failure
}

// URLs returns the hosted URLs in input order.
func (r BulkResult) URLs() []string {
	out := make([]string, 0, len(r.Succeeded))
	for _, u := range r.Succeeded {
		out = append(out, u.URL)
	}
	return out
}

// Uploader resolves image references to durable hosted URLs.
type Uploader struct {
	host        Host
	meta        Metadata
	concurrency int
	timeout     time.Duration
	resolver    func(string) (string, error)
	log         *zap.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithUploadTimeout overrides DefaultUploadTimeout. Zero or less keeps the default.
func WithUploadTimeout(d time.Duration) Option {
	return func(u *Uploader) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithMetadata sets the folder/quality/format/tags sent with every upload.
func WithMetadata(meta Metadata) Option {
	return func(u *Uploader) { u.meta = meta }
}

// WithLocalRoot resolves relative references against root.
func WithLocalRoot(root string) Option {
	return func(u *Uploader) { u.resolver = LocalResolver{Root: root}.Resolve }
}

// WithResolver replaces local reference resolution.
func WithResolver(fn func(string) (string, error)) Option {
	return func(u *Uploader) { u.resolver = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *Uploader) { u.log = l }
}

func NewUploader(host Host, opts ...Option) *Uploader {
	u := &Uploader{
		host:        host,
		concurrency: DefaultConcurrency,
		timeout:     DefaultUploadTimeout,
		resolver:    LocalResolver{}.Resolve,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Concurrency returns the UploadMany fan-out bound.
func (u *Uploader) Concurrency() int {
	return u.concurrency
}

// Ready reports whether the underlying host accepts uploads.
func (u *Uploader) Ready(ctx context.Context) error {
	if u.host == nil {
		return ErrHostUnavailable
	}
	return u.host.Ready(ctx)
}

// UploadSingle returns reference unchanged when it is already a durable URL;
// otherwise it uploads the local file and returns the hosted URL.
func (u *Uploader) UploadSingle(ctx context.Context, reference string) (string, error) {
	return u.upload(ctx, reference, "")
}

// UploadMany uploads items with at most Concurrency uploads in flight. Once
// ctx is done no new upload starts and the remaining items fail with
// ErrOperationCancelled; uploads already running are allowed to finish.
func (u *Uploader) UploadMany(ctx context.Context, items []Item) BulkResult {
	urls := make([]string, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i, item := range items {
		if ctx.Err() != nil {
			errs[i] = &UploadError{Reference: item.Reference, Err: ErrOperationCancelled}
			continue
		}
		g.Go(func() error {
			urls[i], errs[i] = u.upload(ctx, item.Reference, item.Tag)
			return nil
		})
	}
	_ = g.Wait()

	var res BulkResult
	for i, item := range items {
		if errs[i] != nil {
			res.Failed = append(res.Failed, Failure{Index: i, Reference: item.Reference, Err: errs[i]})
			continue
		}
		res.Succeeded = append(res.Succeeded, Uploaded{Index: i, Reference: item.Reference, URL: urls[i]})
	}
	return res
}

func (u *Uploader) upload(ctx context.Context, reference, tag string) (string, error) {
	if LooksLikeDurableURL(reference) {
		return reference, nil
	}
	if ctx.Err() != nil {
		return "", &UploadError{Reference: reference, Err: ErrOperationCancelled}
	}
	if u.host == nil {
		return "", &UploadError{Reference: reference, Err: ErrHostUnavailable}
	}

	path, err := u.resolver(reference)
	if err != nil {
		return "", &UploadError{Reference: reference, Err: err}
	}

	meta := u.meta
	if tag != "" {
		meta.Tags = append(append([]string(nil), u.meta.Tags...), tag)
	}

	// Started uploads run to completion even if the caller cancels meanwhile,
	// but never longer than the upload timeout.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()
	hosted, err := u.host.Upload(uploadCtx, path, meta)
	if err != nil {
		u.log.Warn("Media upload failed", zap.String("reference", reference), zap.Error(err))
		return "", &UploadError{Reference: reference, Err: err}
	}
	if !LooksLikeDurableURL(hosted) {
		return "", &UploadError{Reference: reference, Err: fmt.Errorf("host returned non-durable url %q", hosted)}
	}
	return hosted, nil
}

// IsCancelled reports whether err stems from a cancelled upload.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrOperationCancelled)
}
