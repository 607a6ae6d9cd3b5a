package loader

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/fetch"
	"github.com/mogaika/gltf_loader/model"
	"github.com/mogaika/gltf_loader/shader"
	"github.com/mogaika/gltf_loader/status"
)

var ErrConstruction = errors.New("Loader must be obtained through loader.GetInstance")

type enforcerToken struct{ _ byte }

var (
	enforcer = new(enforcerToken)
	instance *Loader
	once     sync.Once
)

// Loader is the process wide entry point for asset loads. It keeps no
// per-load state, so concurrent loads share nothing through it.
type Loader struct {
	enforcer *enforcerToken
}

func GetInstance() *Loader {
	once.Do(func() {
		instance = &Loader{enforcer: enforcer}
	})
	return instance
}

func (l *Loader) check() error {
	if l == nil || l.enforcer != enforcer {
		return ErrConstruction
	}
	return nil
}

type Option func(*options)

type options struct {
	fetcher   fetch.Fetcher
	requestID string
}

// WithFetcher replaces the default scheme router for manifest and buffer
// retrieval. Its fetches are still bounded by the configured fetch timeout.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithRequestID tags log lines and status messages of the load.
func WithRequestID(id string) Option {
	return func(o *options) {
		o.requestID = id
	}
}

// LoadAsset fetches the manifest at url, then its buffers, and assembles the
// first mesh. Relative resources resolve against the directory of url.
func (l *Loader) LoadAsset(ctx context.Context, url string, scale float32, defaultShader shader.Program, opts ...Option) (*model.Mesh, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = fetch.NewRouter(config.GetFetchTimeout())
	} else {
		o.fetcher = fetch.WithTimeout(o.fetcher, config.GetFetchTimeout())
	}
	if o.requestID == "" {
		o.requestID = uuid.NewString()
	}

	status.Info(o.requestID, "Loading "+url)
	manifest, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		status.Error(o.requestID, err.Error())
		return nil, errors.Wrapf(err, "Cannot load manifest %q", url)
	}
	status.Progress(o.requestID, 0.25, "Manifest fetched")

	a := &assembler{
		basePath:  fetch.BasePath(url),
		scale:     scale,
		fetcher:   o.fetcher,
		requestID: o.requestID,
	}
	mesh, err := a.assemble(ctx, manifest, defaultShader)
	if err != nil {
		status.Error(o.requestID, err.Error())
		log.Printf("[loader] %s: %q failed: %v", o.requestID, url, err)
		return nil, errors.Wrapf(err, "Cannot assemble %q", url)
	}
	status.Progress(o.requestID, 1, "Loaded "+url)
	return mesh, nil
}

// LoadAssetAsync runs LoadAsset in the background. The returned Pending
// resolves exactly once.
func (l *Loader) LoadAssetAsync(ctx context.Context, url string, scale float32, defaultShader shader.Program, opts ...Option) *Pending {
	p := newPending()
	if err := l.check(); err != nil {
		p.resolve(nil, err)
		return p
	}
	go func() {
		p.resolve(l.LoadAsset(ctx, url, scale, defaultShader, opts...))
	}()
	return p
}
