package fetch

import (
	"context"

	"github.com/mogaika/gltf_loader/vfs"
)

// DirFetcher reads slash separated paths relative to Root.
type DirFetcher struct {
	Root vfs.Directory
}

func (f *DirFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapTransport(err, "Read %q", p)
	}
	data, err := vfs.ReadFile(f.Root, p)
	if err != nil {
		return nil, wrapTransport(err, "Read %q", p)
	}
	return data, nil
}

var _ Fetcher = (*DirFetcher)(nil)
