package gltf

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type ComponentType uint32

const (
	ComponentByte          ComponentType = 5120
	ComponentUnsignedByte  ComponentType = 5121
	ComponentShort         ComponentType = 5122
	ComponentUnsignedShort ComponentType = 5123
	ComponentUnsignedInt   ComponentType = 5125
	ComponentFloat         ComponentType = 5126
)

// Size returns the width in bytes of one component. Only the two
// component types the decoder understands report ok.
func (t ComponentType) Size() (size int, ok bool) {
	switch t {
	case ComponentUnsignedShort:
		return 2, true
	case ComponentFloat:
		return 4, true
	default:
		return 0, false
	}
}

func (t ComponentType) String() string {
	switch t {
	case ComponentByte:
		return "BYTE"
	case ComponentUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentShort:
		return "SHORT"
	case ComponentUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", uint32(t))
	}
}

type ElementType string

const (
	Scalar ElementType = "SCALAR"
	Vec2   ElementType = "VEC2"
	Vec3   ElementType = "VEC3"
	Vec4   ElementType = "VEC4"
)

func (t ElementType) Components() (count int, ok bool) {
	switch t {
	case Scalar:
		return 1, true
	case Vec2:
		return 2, true
	case Vec3:
		return 3, true
	case Vec4:
		return 4, true
	default:
		return 0, false
	}
}

type Buffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
}

type BufferView struct {
	Buffer     ID  `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
}

type Accessor struct {
	BufferView    ID            `json:"bufferView"`
	ByteOffset    int           `json:"byteOffset"`
	ComponentType ComponentType `json:"componentType"`
	Count         *int          `json:"count"`
	Type          ElementType   `json:"type"`
}

type Primitive struct {
	Indices    ID            `json:"indices"`
	Attributes map[string]ID `json:"attributes"`
	Material   ID            `json:"material"`
}

type Mesh struct {
	Name       string      `json:"name"`
	Primitives []Primitive `json:"primitives"`
}

// MaterialValue is either a texture reference or a literal color.
type MaterialValue struct {
	Texture ID
	Color   *[4]float32
}

func (v *MaterialValue) IsTexture() bool {
	return v != nil && v.Texture != ""
}

func (v *MaterialValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v.Texture = ID(s)
		return nil
	}

	var c []float32
	if err := json.Unmarshal(b, &c); err != nil {
		return errors.Errorf("material value must be a texture id or a color, got %s", b)
	}
	switch len(c) {
	case 3:
		v.Color = &[4]float32{c[0], c[1], c[2], 1}
	case 4:
		v.Color = &[4]float32{c[0], c[1], c[2], c[3]}
	default:
		return errors.Errorf("color must have 3 or 4 components, got %d", len(c))
	}
	return nil
}

type MaterialValues struct {
	Diffuse      *MaterialValue `json:"diffuse"`
	Ambient      *MaterialValue `json:"ambient"`
	Specular     *MaterialValue `json:"specular"`
	Transparency *float32       `json:"transparency"`
}

type Material struct {
	Name   string         `json:"name"`
	Values MaterialValues `json:"values"`
}

type Texture struct {
	Source ID `json:"source"`
}

type Image struct {
	URI string `json:"uri"`
}

type ChannelTarget struct {
	ID   ID     `json:"id"`
	Path string `json:"path"`
}

type Channel struct {
	Sampler ID            `json:"sampler"`
	Target  ChannelTarget `json:"target"`
}

// AnimationSampler names animation parameters, not accessors directly.
type AnimationSampler struct {
	Input         ID     `json:"input"`
	Output        ID     `json:"output"`
	Interpolation string `json:"interpolation"`
}

type Animation struct {
	Channels   []Channel                    `json:"channels"`
	Samplers   Collection[AnimationSampler] `json:"samplers"`
	Parameters map[ID]ID                    `json:"parameters"`
}

type Document struct {
	Buffers     Collection[Buffer]     `json:"buffers"`
	BufferViews Collection[BufferView] `json:"bufferViews"`
	Accessors   Collection[Accessor]   `json:"accessors"`
	Meshes      Collection[Mesh]       `json:"meshes"`
	Materials   Collection[Material]   `json:"materials"`
	Textures    Collection[Texture]    `json:"textures"`
	Images      Collection[Image]      `json:"images"`
	Animations  Collection[Animation]  `json:"animations"`
}

func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wrapFormat(err, "Failed to parse manifest")
	}
	return &doc, nil
}
