package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gltf_loader/gltf"
	"github.com/mogaika/gltf_loader/shader"
)

const (
	TrackTranslate  = "translate"
	TrackQuaternion = "quaternion"
)

// Texture is an external image resource, resolved against the manifest directory.
type Texture struct {
	Name string
	Path string
}

type Material struct {
	Name           string
	DiffuseTexture *Texture    `json:",omitempty"`
	DiffuseColor   *mgl32.Vec4 `json:",omitempty"`
	AmbientColor   *mgl32.Vec4 `json:",omitempty"`
	SpecularColor  *mgl32.Vec4 `json:",omitempty"`
	Opacity        float32
	VertexN        int
	ShaderName     string
	Shader         shader.Program `json:"-"`
}

type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Texcoords []mgl32.Vec2 `json:",omitempty"`
	Indices   []uint32
}

func (g *Geometry) Features() shader.Features {
	fs := shader.Features(shader.Position)
	if g.Normals != nil {
		fs = fs.With(shader.Normal)
	}
	if g.Texcoords != nil {
		fs = fs.With(shader.Texcoord)
	}
	return fs
}

// Track is one animated property: keyframe times and their values.
type Track struct {
	Name      string
	Animation string
	Target    string
	Times     []float32
	Values    *gltf.Array
}

// Mesh is the assembled result of a load; the caller owns it.
type Mesh struct {
	Name     string
	Geometry Geometry
	Material *Material
	Tracks   []Track `json:",omitempty"`
}

// Track returns the first track with the given name.
func (m *Mesh) Track(name string) *Track {
	for i := range m.Tracks {
		if m.Tracks[i].Name == name {
			return &m.Tracks[i]
		}
	}
	return nil
}

func TrackName(path string) string {
	switch path {
	case "translation":
		return TrackTranslate
	case "rotation":
		return TrackQuaternion
	default:
		return path
	}
}
