package fetch

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mogaika/gltf_loader/vfs"
)

// ErrTransport marks failed retrievals: network, filesystem, inline payload
// decoding, timeouts and cancellation.
var ErrTransport = errors.New("transport error")

type transportError struct {
	err error
}

func (e *transportError) Error() string        { return e.err.Error() }
func (e *transportError) Unwrap() error        { return e.err }
func (e *transportError) Is(target error) bool { return target == ErrTransport }

func wrapTransport(err error, format string, a ...interface{}) error {
	return &transportError{err: errors.Wrapf(err, format, a...)}
}

func transportErrorf(format string, a ...interface{}) error {
	return &transportError{err: errors.Errorf(format, a...)}
}

// Fetcher retrieves the raw bytes behind a uri.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Router dispatches on the uri scheme: data: payloads are decoded in place,
// http(s) goes to HTTP, everything else is a path read through Local.
// Every fetch is bounded by Timeout when it is positive.
// A Sandboxed router reads absolute paths through Local too.
type Router struct {
	HTTP      Fetcher
	Local     Fetcher
	Timeout   time.Duration
	Sandboxed bool
}

func NewRouter(timeout time.Duration) *Router {
	return &Router{
		HTTP:    NewHTTPFetcher(nil),
		Local:   &DirFetcher{Root: vfs.NewDirectoryDriver(".")},
		Timeout: timeout,
	}
}

func (r *Router) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		return DecodeDataURI(uri)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var f Fetcher
	target := uri
	switch scheme := uriScheme(uri); scheme {
	case "http", "https":
		f = r.HTTP
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, wrapTransport(err, "Bad file uri %q", uri)
		}
		f, target = r.localFor(u.Path)
	case "":
		f, target = r.localFor(uri)
	default:
		return nil, transportErrorf("Unsupported uri scheme %q in %q", scheme, uri)
	}
	if f == nil {
		return nil, transportErrorf("No fetcher for %q", uri)
	}

	data, err := f.Fetch(ctx, target)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, wrapTransport(err, "Fetch %q", uri)
	}
	return data, nil
}

// localFor picks the fetcher for a filesystem path. Absolute paths and
// paths climbing above the working directory are read from the filesystem
// root. A sandboxed router sends everything to Local, which never leaves
// its own root.
func (r *Router) localFor(p string) (Fetcher, string) {
	if r.Sandboxed {
		return r.Local, p
	}
	p = filepath.Clean(p)
	if !filepath.IsAbs(p) && p != ".." && !strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return r.Local, filepath.ToSlash(p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return r.Local, filepath.ToSlash(p)
	}
	return &DirFetcher{Root: vfs.NewDirectoryDriver("/")}, strings.TrimPrefix(filepath.ToSlash(abs), "/")
}

func uriScheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return ""
	}
	scheme := strings.ToLower(uri[:i])
	for _, c := range scheme {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return ""
		}
	}
	return scheme
}

// ResolveURI joins a manifest-relative reference onto base and removes dot
// segments. Data uris, uris with a scheme and absolute paths are returned
// unchanged.
func ResolveURI(base, ref string) string {
	if IsDataURI(ref) || uriScheme(ref) != "" || strings.HasPrefix(ref, "/") {
		return ref
	}
	if uriScheme(base) != "" {
		b, err := url.Parse(base)
		if err != nil {
			return base + ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return base + ref
		}
		return b.ResolveReference(r).String()
	}
	return path.Clean(base + ref)
}

// BasePath is the directory part of uri including the trailing slash.
func BasePath(uri string) string {
	i := strings.LastIndexByte(uri, '/')
	if i < 0 {
		return ""
	}
	return uri[:i+1]
}

// IsRemote reports whether uri is fetched over the network.
func IsRemote(uri string) bool {
	switch uriScheme(uri) {
	case "http", "https":
		return true
	}
	return false
}

type timeoutFetcher struct {
	f Fetcher
	d time.Duration
}

// WithTimeout bounds every fetch of f by d. Failures are reported as
// transport errors. A non-positive d only adds the error mapping.
func WithTimeout(f Fetcher, d time.Duration) Fetcher {
	return &timeoutFetcher{f: f, d: d}
}

func (t *timeoutFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if t.d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.d)
		defer cancel()
	}
	data, err := t.f.Fetch(ctx, uri)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, wrapTransport(err, "Fetch %q", uri)
	}
	return data, nil
}
