package gltf

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Array is a decoded accessor. Exactly one of the slices is filled,
// selected by Type (Quats instead of Vec4s for rotation keys).
type Array struct {
	Type    ElementType  `json:"type"`
	Scalars []float32    `json:"scalars,omitempty"`
	Vec2s   []mgl32.Vec2 `json:"vec2,omitempty"`
	Vec3s   []mgl32.Vec3 `json:"vec3,omitempty"`
	Vec4s   []mgl32.Vec4 `json:"vec4,omitempty"`
	Quats   []mgl32.Quat `json:"quat,omitempty"`
}

func (a *Array) Len() int {
	switch {
	case a.Scalars != nil:
		return len(a.Scalars)
	case a.Vec2s != nil:
		return len(a.Vec2s)
	case a.Vec3s != nil:
		return len(a.Vec3s)
	case a.Vec4s != nil:
		return len(a.Vec4s)
	default:
		return len(a.Quats)
	}
}

func (a *Array) IsQuaternion() bool {
	return a.Quats != nil
}

// Indices converts a scalar array to vertex indices.
func (a *Array) Indices() ([]uint32, error) {
	if a.Type != Scalar {
		return nil, formatErrorf("Indices must be %s, got %s", Scalar, a.Type)
	}
	out := make([]uint32, len(a.Scalars))
	for i, v := range a.Scalars {
		if v < 0 || v != float32(math.Trunc(float64(v))) {
			return nil, formatErrorf("Index %d is not a non-negative integer: %v", i, v)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// Decode reads acc.Count elements starting at view.ByteOffset+acc.ByteOffset.
// Vector components are multiplied by scale; scalars never are. With
// quaternion set, VEC4 elements are read as (x, y, z, w) and stored inverted.
func Decode(acc *Accessor, view *BufferView, buf []byte, scale float32, quaternion bool) (*Array, error) {
	compSize, ok := acc.ComponentType.Size()
	if !ok {
		return nil, formatErrorf("Unsupported component type %v", acc.ComponentType)
	}
	compCount, ok := acc.Type.Components()
	if !ok {
		return nil, formatErrorf("Unsupported element type %q", acc.Type)
	}
	if acc.Count == nil {
		return nil, formatErrorf("Accessor has no count")
	}
	count := *acc.Count
	if count < 0 {
		return nil, formatErrorf("Invalid accessor count %d", count)
	}
	if view.ByteOffset < 0 || acc.ByteOffset < 0 {
		return nil, formatErrorf("Negative byte offset (view %d, accessor %d)", view.ByteOffset, acc.ByteOffset)
	}

	stride := compSize * compCount
	start := view.ByteOffset + acc.ByteOffset
	limit := len(buf)
	if view.ByteLength > 0 && view.ByteOffset+view.ByteLength < limit {
		limit = view.ByteOffset + view.ByteLength
	}
	if start > limit || count > (limit-start)/stride {
		return nil, formatErrorf("Accessor range [%d, %d+%d*%d) exceeds available %d bytes",
			start, start, count, stride, limit)
	}

	read := func(pos int) float32 {
		if compSize == 2 {
			return float32(binary.LittleEndian.Uint16(buf[pos:]))
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[pos:]))
	}

	arr := &Array{Type: acc.Type}
	switch acc.Type {
	case Scalar:
		arr.Scalars = make([]float32, count)
		for i := range arr.Scalars {
			arr.Scalars[i] = read(start + i*stride)
		}
	case Vec2:
		arr.Vec2s = make([]mgl32.Vec2, count)
		for i := range arr.Vec2s {
			pos := start + i*stride
			arr.Vec2s[i] = mgl32.Vec2{read(pos), read(pos + compSize)}.Mul(scale)
		}
	case Vec3:
		arr.Vec3s = make([]mgl32.Vec3, count)
		for i := range arr.Vec3s {
			pos := start + i*stride
			arr.Vec3s[i] = mgl32.Vec3{read(pos), read(pos + compSize), read(pos + compSize*2)}.Mul(scale)
		}
	case Vec4:
		if quaternion {
			arr.Quats = make([]mgl32.Quat, count)
		} else {
			arr.Vec4s = make([]mgl32.Vec4, count)
		}
		for i := 0; i < count; i++ {
			pos := start + i*stride
			v := mgl32.Vec4{read(pos), read(pos + compSize), read(pos + compSize*2), read(pos + compSize*3)}
			if quaternion {
				arr.Quats[i] = mgl32.Quat{W: v[3], V: v.Vec3()}.Inverse()
			} else {
				arr.Vec4s[i] = v.Mul(scale)
			}
		}
	}
	return arr, nil
}

// DecodeAccessor resolves id and decodes it from the buffer it lives in.
func (d *Document) DecodeAccessor(id ID, buffers map[ID][]byte, scale float32, quaternion bool) (*Array, error) {
	ra, err := d.ResolveAccessor(id)
	if err != nil {
		return nil, err
	}
	buf, ok := buffers[ra.Buffer]
	if !ok {
		return nil, resolutionErrorf("Buffer %q of accessor %q was not loaded", ra.Buffer, id)
	}
	arr, err := Decode(ra.Accessor, ra.View, buf, scale, quaternion)
	if err != nil {
		return nil, wrapFormat(err, "Accessor %q", id)
	}
	return arr, nil
}
