package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// box layout inside the single test buffer
const (
	offIndices     = 0
	offPositions   = 8
	offNormals     = 44
	offTexcoords   = 80
	offTimes       = 104
	offTranslation = 112
	offRotation    = 136
	boxBufferSize  = 168
)

var (
	boxPositions   = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	boxNormals     = [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	boxTexcoords   = [][2]float32{{0, 0}, {1, 0}, {0, 1}}
	boxTimes       = []float32{0, 0.5}
	boxTranslation = [][3]float32{{1, 2, 3}, {4, 5, 6}}
	boxRotation    = [][4]float32{{0, 0, 0, 1}, {0, 0.6, 0, 0.8}}
)

func boxBuffer(t *testing.T) []byte {
	var b bytes.Buffer
	write := func(v interface{}) {
		require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
	}
	write([]uint16{0, 1, 2, 0})
	write(boxPositions)
	write(boxNormals)
	write(boxTexcoords)
	write(boxTimes)
	write(boxTranslation)
	write(boxRotation)
	require.Equal(t, boxBufferSize, b.Len())
	return b.Bytes()
}

func inlineURI(data []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

func accessor(offset, count int, componentType int, elementType string) map[string]interface{} {
	return map[string]interface{}{
		"bufferView":    "view",
		"byteOffset":    offset,
		"componentType": componentType,
		"count":         count,
		"type":          elementType,
	}
}

type boxOptions struct {
	bufferURI  string
	diffuse    interface{}
	animations bool
	noMaterial bool
}

func boxManifest(t *testing.T, o boxOptions) map[string]interface{} {
	if o.bufferURI == "" {
		o.bufferURI = "box.bin"
	}
	if o.diffuse == nil {
		o.diffuse = "tex"
	}

	prim := map[string]interface{}{
		"indices": "acc_indices",
		"attributes": map[string]interface{}{
			"POSITION":   "acc_position",
			"NORMAL":     "acc_normal",
			"TEXCOORD_0": "acc_texcoord",
		},
		"material": "mat",
	}
	if o.noMaterial {
		delete(prim, "material")
	}

	m := map[string]interface{}{
		"buffers": map[string]interface{}{
			"box": map[string]interface{}{"uri": o.bufferURI, "byteLength": boxBufferSize},
		},
		"bufferViews": map[string]interface{}{
			"view": map[string]interface{}{"buffer": "box", "byteOffset": 0, "byteLength": boxBufferSize},
		},
		"accessors": map[string]interface{}{
			"acc_indices":     accessor(offIndices, 3, 5123, "SCALAR"),
			"acc_position":    accessor(offPositions, 3, 5126, "VEC3"),
			"acc_normal":      accessor(offNormals, 3, 5126, "VEC3"),
			"acc_texcoord":    accessor(offTexcoords, 3, 5126, "VEC2"),
			"acc_times":       accessor(offTimes, 2, 5126, "SCALAR"),
			"acc_translation": accessor(offTranslation, 2, 5126, "VEC3"),
			"acc_rotation":    accessor(offRotation, 2, 5126, "VEC4"),
		},
		"meshes": map[string]interface{}{
			"box_mesh": map[string]interface{}{
				"name":       "Box",
				"primitives": []interface{}{prim},
			},
		},
		"materials": map[string]interface{}{
			"mat": map[string]interface{}{
				"name": "BoxMaterial",
				"values": map[string]interface{}{
					"diffuse":      o.diffuse,
					"specular":     []float32{0.2, 0.2, 0.2, 1},
					"transparency": 0.25,
				},
			},
		},
		"textures": map[string]interface{}{
			"tex": map[string]interface{}{"source": "img"},
		},
		"images": map[string]interface{}{
			"img": map[string]interface{}{"uri": "box.png"},
		},
	}
	if o.animations {
		m["animations"] = map[string]interface{}{
			"anim_a_move": animation("translation", "acc_translation"),
			"anim_b_turn": animation("rotation", "acc_rotation"),
		}
	}
	return m
}

func animation(path, output string) map[string]interface{} {
	return map[string]interface{}{
		"channels": []interface{}{
			map[string]interface{}{
				"sampler": "sampler",
				"target":  map[string]interface{}{"id": "node", "path": path},
			},
		},
		"samplers": map[string]interface{}{
			"sampler": map[string]interface{}{"input": "TIME", "output": "value", "interpolation": "LINEAR"},
		},
		"parameters": map[string]interface{}{
			"TIME":  "acc_times",
			"value": output,
		},
	}
}

func marshal(t *testing.T, m map[string]interface{}) []byte {
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

// writeBox stores the manifest and its buffer in a fresh directory and
// returns the manifest path.
func writeBox(t *testing.T, o boxOptions) string {
	return writeManifest(t, boxManifest(t, o))
}

func writeManifest(t *testing.T, m map[string]interface{}) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "box.bin"), boxBuffer(t), 0644))
	p := filepath.Join(dir, "box.gltf")
	require.NoError(t, os.WriteFile(p, marshal(t, m), 0644))
	return filepath.ToSlash(p)
}
