package loader

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/fetch"
	"github.com/mogaika/gltf_loader/gltf"
	"github.com/mogaika/gltf_loader/model"
	"github.com/mogaika/gltf_loader/shader"
	"github.com/mogaika/gltf_loader/status"
	"github.com/mogaika/gltf_loader/utils"
)

const maxParallelBufferFetches = 4

type assembler struct {
	basePath  string
	scale     float32
	fetcher   fetch.Fetcher
	requestID string

	doc     *gltf.Document
	buffers map[gltf.ID][]byte
}

// Assemble builds a mesh from manifest text. External buffers and images
// resolve against basePath; buffers are retrieved through f.
func Assemble(ctx context.Context, manifest []byte, basePath string, scale float32, defaultShader shader.Program, f fetch.Fetcher) (*model.Mesh, error) {
	a := &assembler{
		basePath: basePath,
		scale:    scale,
		fetcher:  f,
	}
	return a.assemble(ctx, manifest, defaultShader)
}

func (a *assembler) logf(format string, args ...interface{}) {
	if a.requestID != "" {
		format = a.requestID + ": " + format
	}
	log.Printf("[loader] "+format, args...)
}

func (a *assembler) assemble(ctx context.Context, manifest []byte, defaultShader shader.Program) (*model.Mesh, error) {
	text, err := config.DecodeText(manifest)
	if err != nil {
		return nil, gltf.WrapFormat(err, "Cannot decode manifest text")
	}
	if a.doc, err = gltf.Parse(text); err != nil {
		return nil, err
	}

	if err := a.fetchBuffers(ctx); err != nil {
		return nil, err
	}
	status.Progress(a.requestID, 0.5, fmt.Sprintf("Fetched %d buffers", len(a.buffers)))

	meshID, prim, err := a.doc.FirstPrimitive()
	if err != nil {
		return nil, err
	}
	mesh := &model.Mesh{Name: string(meshID)}
	if m, ok := a.doc.Meshes.Get(meshID); ok && m.Name != "" {
		mesh.Name = m.Name
	}

	if err := a.assembleGeometry(prim, &mesh.Geometry); err != nil {
		return nil, errors.Wrapf(err, "Mesh %q", meshID)
	}
	if mesh.Material, err = a.assembleMaterial(prim, &mesh.Geometry); err != nil {
		return nil, errors.Wrapf(err, "Mesh %q", meshID)
	}
	status.Progress(a.requestID, 0.75, "Geometry decoded")

	for _, animID := range a.doc.Animations.Keys() {
		track, err := a.assembleTrack(animID)
		if err != nil {
			return nil, errors.Wrapf(err, "Animation %q", animID)
		}
		mesh.Tracks = append(mesh.Tracks, *track)
	}

	if defaultShader != nil {
		mesh.Material.Shader = defaultShader
	} else {
		mesh.Material.Shader = shader.NewPhong(mesh.Geometry.Features())
	}
	mesh.Material.ShaderName = mesh.Material.Shader.Name()

	if config.IsVerbose() {
		a.logf("Mesh %q: %d vertices, %d indices, %d tracks, shader %s",
			mesh.Name, len(mesh.Geometry.Positions), len(mesh.Geometry.Indices),
			len(mesh.Tracks), mesh.Material.ShaderName)
		utils.LogDump(mesh.Material)
	}
	return mesh, nil
}

func (a *assembler) fetchBuffers(ctx context.Context) error {
	sources, err := a.doc.BufferSources()
	if err != nil {
		return err
	}

	var lock sync.Mutex
	a.buffers = make(map[gltf.ID][]byte, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBufferFetches)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			uri := src.URI
			if !src.Inline {
				uri = fetch.ResolveURI(a.basePath, src.URI)
			}
			data, err := a.fetcher.Fetch(gctx, uri)
			if err != nil {
				return errors.Wrapf(err, "Buffer %q", src.ID)
			}
			if b, _ := a.doc.Buffers.Get(src.ID); b.ByteLength > 0 && len(data) < b.ByteLength {
				return gltf.FormatErrorf("Buffer %q has %d bytes, manifest declares %d", src.ID, len(data), b.ByteLength)
			}
			if config.IsVerbose() {
				a.logf("Buffer %q: %d bytes from %s", src.ID, len(data), describeURI(src))
			}

			lock.Lock()
			a.buffers[src.ID] = data
			lock.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func describeURI(src gltf.BufferSource) string {
	if src.Inline {
		return "inline payload"
	}
	return src.URI
}

func (a *assembler) decode(id gltf.ID, scale float32, quaternion bool) (*gltf.Array, error) {
	return a.doc.DecodeAccessor(id, a.buffers, scale, quaternion)
}

func (a *assembler) decodeVec3(id gltf.ID, scale float32, what string) ([]mgl32.Vec3, error) {
	arr, err := a.decode(id, scale, false)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot decode %s", what)
	}
	if arr.Type != gltf.Vec3 {
		return nil, gltf.FormatErrorf("%s must be %s, got %s", what, gltf.Vec3, arr.Type)
	}
	return arr.Vec3s, nil
}

func (a *assembler) assembleGeometry(prim *gltf.Primitive, geom *model.Geometry) error {
	indices, err := a.decode(prim.Indices, 1, false)
	if err != nil {
		return errors.Wrap(err, "Cannot decode indices")
	}
	if geom.Indices, err = indices.Indices(); err != nil {
		return err
	}

	posID, ok := prim.Attributes["POSITION"]
	if !ok {
		return gltf.FormatErrorf("Primitive has no POSITION attribute")
	}
	if geom.Positions, err = a.decodeVec3(posID, a.scale, "POSITION"); err != nil {
		return err
	}

	if normID, ok := prim.Attributes["NORMAL"]; ok {
		if geom.Normals, err = a.decodeVec3(normID, 1, "NORMAL"); err != nil {
			return err
		}
	}

	if uvID, ok := prim.Attributes["TEXCOORD_0"]; ok {
		arr, err := a.decode(uvID, a.scale, false)
		if err != nil {
			return errors.Wrap(err, "Cannot decode TEXCOORD_0")
		}
		if arr.Type != gltf.Vec2 {
			return gltf.FormatErrorf("TEXCOORD_0 must be %s, got %s", gltf.Vec2, arr.Type)
		}
		geom.Texcoords = arr.Vec2s
	}

	for i, idx := range geom.Indices {
		if int(idx) >= len(geom.Positions) {
			return gltf.FormatErrorf("Index %d references vertex %d of %d", i, idx, len(geom.Positions))
		}
	}
	return nil
}

func colorOf(v *gltf.MaterialValue) *mgl32.Vec4 {
	if v == nil || v.Color == nil {
		return nil
	}
	c := mgl32.Vec4(*v.Color)
	return &c
}

func (a *assembler) assembleMaterial(prim *gltf.Primitive, geom *model.Geometry) (*model.Material, error) {
	src, err := a.doc.ResolveMaterial(prim.Material)
	if err != nil {
		return nil, err
	}

	mat := &model.Material{
		Name:    string(prim.Material),
		Opacity: 1,
		VertexN: len(geom.Indices),
	}
	if src.Name != "" {
		mat.Name = src.Name
	}

	values := src.Values
	if values.Transparency != nil {
		mat.Opacity = 1 - *values.Transparency
	}

	if values.Diffuse.IsTexture() {
		uri, err := a.doc.ResolveTextureImage(values.Diffuse.Texture)
		if err != nil {
			return nil, errors.Wrapf(err, "Material %q diffuse", prim.Material)
		}
		mat.DiffuseTexture = &model.Texture{
			Name: string(values.Diffuse.Texture),
			Path: fetch.ResolveURI(a.basePath, uri),
		}
		if geom.Texcoords == nil {
			a.logf("Warning: material %q is textured but primitive has no TEXCOORD_0", prim.Material)
		}
	} else {
		mat.DiffuseColor = colorOf(values.Diffuse)
	}
	mat.AmbientColor = colorOf(values.Ambient)
	mat.SpecularColor = colorOf(values.Specular)

	return mat, nil
}

// assembleTrack decodes the first channel of an animation. Translations are
// scaled like positions, rotations become inverted quaternions, anything
// else keeps its raw values.
func (a *assembler) assembleTrack(animID gltf.ID) (*model.Track, error) {
	ch, err := a.doc.ResolveChannel(animID)
	if err != nil {
		return nil, err
	}

	times, err := a.decode(ch.Input, 1, false)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot decode input")
	}
	if times.Type != gltf.Scalar {
		return nil, gltf.FormatErrorf("Input must be %s, got %s", gltf.Scalar, times.Type)
	}

	var values *gltf.Array
	switch ch.Path {
	case "translation":
		values, err = a.decode(ch.Output, a.scale, false)
		if err == nil && values.Type != gltf.Vec3 {
			err = gltf.FormatErrorf("Translation output must be %s, got %s", gltf.Vec3, values.Type)
		}
	case "rotation":
		values, err = a.decode(ch.Output, 1, true)
		if err == nil && values.Type != gltf.Vec4 {
			err = gltf.FormatErrorf("Rotation output must be %s, got %s", gltf.Vec4, values.Type)
		}
	default:
		values, err = a.decode(ch.Output, 1, false)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot decode %s output", ch.Path)
	}
	if values.Len() != len(times.Scalars) {
		return nil, gltf.FormatErrorf("Animation has %d keys but %d values", len(times.Scalars), values.Len())
	}

	return &model.Track{
		Name:      model.TrackName(ch.Path),
		Animation: string(animID),
		Target:    string(ch.TargetID),
		Times:     times.Scalars,
		Values:    values,
	}, nil
}
