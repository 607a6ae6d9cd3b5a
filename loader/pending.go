package loader

import (
	"context"

	"github.com/mogaika/gltf_loader/model"
)

type Pending struct {
	done chan struct{}
	mesh *model.Mesh
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// resolve must be called once; a second call panics on the closed channel.
func (p *Pending) resolve(mesh *model.Mesh, err error) {
	p.mesh, p.err = mesh, err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome. It is only meaningful once Done is closed.
func (p *Pending) Result() (*model.Mesh, error) {
	select {
	case <-p.done:
		return p.mesh, p.err
	default:
		return nil, nil
	}
}

// Wait blocks until the load resolves or ctx ends. Giving up on ctx does not
// cancel the load itself.
func (p *Pending) Wait(ctx context.Context) (*model.Mesh, error) {
	select {
	case <-p.done:
		return p.mesh, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
