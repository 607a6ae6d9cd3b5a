package gltf

import (
	"regexp"
)

var inlineBufferURI = regexp.MustCompile(`^data:application/octet-stream;base64,`)

func IsInlineURI(uri string) bool {
	return inlineBufferURI.MatchString(uri)
}

type BufferSource struct {
	ID     ID
	URI    string
	Inline bool
}

// BufferSources lists every buffer of the manifest in document order.
func (d *Document) BufferSources() ([]BufferSource, error) {
	if d.Buffers.Len() == 0 {
		return nil, formatErrorf("Manifest has no buffers")
	}
	sources := make([]BufferSource, 0, d.Buffers.Len())
	for _, id := range d.Buffers.Keys() {
		b, _ := d.Buffers.Get(id)
		if b.URI == "" {
			return nil, formatErrorf("Buffer %q has no uri", id)
		}
		sources = append(sources, BufferSource{ID: id, URI: b.URI, Inline: IsInlineURI(b.URI)})
	}
	return sources, nil
}

// FirstPrimitive returns the first primitive of the first mesh.
func (d *Document) FirstPrimitive() (ID, *Primitive, error) {
	meshID, mesh, ok := d.Meshes.First()
	if !ok {
		return "", nil, resolutionErrorf("Manifest has no meshes")
	}
	if len(mesh.Primitives) == 0 {
		return "", nil, resolutionErrorf("Mesh %q has no primitives", meshID)
	}
	return meshID, &mesh.Primitives[0], nil
}

type ResolvedAccessor struct {
	ID       ID
	Accessor *Accessor
	View     *BufferView
	Buffer   ID
}

func (d *Document) ResolveAccessor(id ID) (*ResolvedAccessor, error) {
	if id == "" {
		return nil, resolutionErrorf("Empty accessor reference")
	}
	acc, ok := d.Accessors.Get(id)
	if !ok {
		return nil, resolutionErrorf("Accessor %q not found", id)
	}
	if acc.BufferView == "" {
		return nil, formatErrorf("Accessor %q has no bufferView", id)
	}
	view, ok := d.BufferViews.Get(acc.BufferView)
	if !ok {
		return nil, resolutionErrorf("BufferView %q of accessor %q not found", acc.BufferView, id)
	}

	bufID := view.Buffer
	if bufID == "" {
		if d.Buffers.Len() != 1 {
			return nil, formatErrorf("BufferView %q has no buffer and manifest has %d buffers", acc.BufferView, d.Buffers.Len())
		}
		bufID, _, _ = d.Buffers.First()
	} else if _, ok := d.Buffers.Get(bufID); !ok {
		return nil, resolutionErrorf("Buffer %q of bufferView %q not found", bufID, acc.BufferView)
	}

	return &ResolvedAccessor{ID: id, Accessor: acc, View: view, Buffer: bufID}, nil
}

func (d *Document) ResolveMaterial(id ID) (*Material, error) {
	if id == "" {
		return nil, resolutionErrorf("Primitive has no material")
	}
	m, ok := d.Materials.Get(id)
	if !ok {
		return nil, resolutionErrorf("Material %q not found", id)
	}
	return m, nil
}

// ResolveTextureImage follows texture -> image and returns the image uri.
func (d *Document) ResolveTextureImage(id ID) (string, error) {
	tex, ok := d.Textures.Get(id)
	if !ok {
		return "", resolutionErrorf("Texture %q not found", id)
	}
	img, ok := d.Images.Get(tex.Source)
	if !ok {
		return "", resolutionErrorf("Image %q of texture %q not found", tex.Source, id)
	}
	if img.URI == "" {
		return "", formatErrorf("Image %q has no uri", tex.Source)
	}
	return img.URI, nil
}

type ResolvedChannel struct {
	Animation ID
	TargetID  ID
	Path      string
	Input     ID
	Output    ID
}

// ResolveChannel resolves the first channel of an animation down to the
// accessor ids of its sampler's input and output parameters.
func (d *Document) ResolveChannel(animID ID) (*ResolvedChannel, error) {
	anim, ok := d.Animations.Get(animID)
	if !ok {
		return nil, resolutionErrorf("Animation %q not found", animID)
	}
	if len(anim.Channels) == 0 {
		return nil, resolutionErrorf("Animation %q has no channels", animID)
	}
	ch := anim.Channels[0]
	sampler, ok := anim.Samplers.Get(ch.Sampler)
	if !ok {
		return nil, resolutionErrorf("Sampler %q of animation %q not found", ch.Sampler, animID)
	}
	input, ok := anim.Parameters[sampler.Input]
	if !ok {
		return nil, resolutionErrorf("Parameter %q of animation %q not found", sampler.Input, animID)
	}
	output, ok := anim.Parameters[sampler.Output]
	if !ok {
		return nil, resolutionErrorf("Parameter %q of animation %q not found", sampler.Output, animID)
	}
	for _, acc := range []ID{input, output} {
		if _, ok := d.Accessors.Get(acc); !ok {
			return nil, resolutionErrorf("Accessor %q of animation %q not found", acc, animID)
		}
	}

	return &ResolvedChannel{
		Animation: animID,
		TargetID:  ch.Target.ID,
		Path:      ch.Target.Path,
		Input:     input,
		Output:    output,
	}, nil
}
