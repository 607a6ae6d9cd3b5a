package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/fetch"
	"github.com/mogaika/gltf_loader/gltf"
	"github.com/mogaika/gltf_loader/model"
	"github.com/mogaika/gltf_loader/shader"
)

func TestGetInstance(t *testing.T) {
	var wg sync.WaitGroup
	instances := make([]*Loader, 8)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instances[i] = GetInstance()
		}(i)
	}
	wg.Wait()

	for _, l := range instances {
		assert.Same(t, GetInstance(), l)
	}
}

func TestDirectConstructionRejected(t *testing.T) {
	p := writeBox(t, boxOptions{})

	for _, l := range []*Loader{{}, new(Loader), nil} {
		_, err := l.LoadAsset(context.Background(), p, 1, nil)
		assert.True(t, errors.Is(err, ErrConstruction), "got %v", err)

		_, err = l.LoadAssetAsync(context.Background(), p, 1, nil).Wait(context.Background())
		assert.True(t, errors.Is(err, ErrConstruction), "async got %v", err)
	}
}

func TestLoadAssetLocal(t *testing.T) {
	p := writeBox(t, boxOptions{animations: true})

	mesh, err := GetInstance().LoadAsset(context.Background(), p, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, "Box", mesh.Name)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Geometry.Indices)
	require.Len(t, mesh.Geometry.Positions, 3)
	for i, v := range boxPositions {
		assert.Equal(t, mgl32.Vec3(v).Mul(2), mesh.Geometry.Positions[i])
		assert.Equal(t, mgl32.Vec3(boxNormals[i]), mesh.Geometry.Normals[i], "normals are never scaled")
		assert.Equal(t, mgl32.Vec2(boxTexcoords[i]).Mul(2), mesh.Geometry.Texcoords[i])
	}

	mat := mesh.Material
	require.NotNil(t, mat)
	assert.Equal(t, "BoxMaterial", mat.Name)
	require.NotNil(t, mat.DiffuseTexture)
	assert.Equal(t, path.Dir(p)+"/box.png", mat.DiffuseTexture.Path)
	assert.Nil(t, mat.DiffuseColor)
	assert.Nil(t, mat.AmbientColor)
	assert.Equal(t, &mgl32.Vec4{0.2, 0.2, 0.2, 1}, mat.SpecularColor)
	assert.InDelta(t, 0.75, mat.Opacity, 1e-6)
	assert.Equal(t, 3, mat.VertexN)

	require.NotNil(t, mat.Shader)
	assert.Equal(t, "phong", mat.ShaderName)
	assert.Equal(t, "position|normal|texcoord", mat.Shader.Features().String())

	require.Len(t, mesh.Tracks, 2)
	assert.Equal(t, model.TrackTranslate, mesh.Tracks[0].Name)
	assert.Equal(t, model.TrackQuaternion, mesh.Tracks[1].Name)

	tr := mesh.Track(model.TrackTranslate)
	require.NotNil(t, tr)
	assert.Equal(t, "anim_a_move", tr.Animation)
	assert.Equal(t, "node", tr.Target)
	assert.Equal(t, boxTimes, tr.Times)
	require.Equal(t, gltf.Vec3, tr.Values.Type)
	for i, v := range boxTranslation {
		assert.Equal(t, mgl32.Vec3(v).Mul(2), tr.Values.Vec3s[i])
	}

	rot := mesh.Track(model.TrackQuaternion)
	require.NotNil(t, rot)
	assert.Equal(t, boxTimes, rot.Times, "times are never scaled")
	require.True(t, rot.Values.IsQuaternion())
	for i, v := range boxRotation {
		want := mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Inverse()
		assert.Equal(t, want, rot.Values.Quats[i])
	}
}

func TestDiffuseColorOrTexture(t *testing.T) {
	for _, tc := range []struct {
		name    string
		diffuse interface{}
		color   *mgl32.Vec4
		texture bool
	}{
		{"texture", "tex", nil, true},
		{"rgba", []float32{0.5, 0.25, 1, 0.5}, &mgl32.Vec4{0.5, 0.25, 1, 0.5}, false},
		{"rgb", []float32{1, 0, 0}, &mgl32.Vec4{1, 0, 0, 1}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := writeBox(t, boxOptions{diffuse: tc.diffuse})
			mesh, err := GetInstance().LoadAsset(context.Background(), p, 1, nil)
			require.NoError(t, err)

			assert.Equal(t, tc.color, mesh.Material.DiffuseColor)
			assert.Equal(t, tc.texture, mesh.Material.DiffuseTexture != nil)
		})
	}
}

func TestDefaultShaderAttached(t *testing.T) {
	p := writeBox(t, boxOptions{})
	custom := shader.NewPhong(shader.Features(shader.Color))

	mesh, err := GetInstance().LoadAsset(context.Background(), p, 1, custom)
	require.NoError(t, err)
	assert.Same(t, custom, mesh.Material.Shader)
}

func TestAssembleInlineBuffer(t *testing.T) {
	manifest := marshal(t, boxManifest(t, boxOptions{bufferURI: inlineURI(boxBuffer(t))}))

	mesh, err := Assemble(context.Background(), manifest, "http://unused.invalid/", 1, nil, fetch.NewRouter(time.Second))
	require.NoError(t, err)
	assert.Len(t, mesh.Geometry.Positions, 3)
	assert.Equal(t, "http://unused.invalid/box.png", mesh.Material.DiffuseTexture.Path)
	assert.Empty(t, mesh.Tracks)
}

func TestAssembleMultipleBuffers(t *testing.T) {
	m := boxManifest(t, boxOptions{bufferURI: inlineURI(boxBuffer(t))})

	extra := make([]byte, 12)
	copy(extra, boxBuffer(t)[offTranslation+12:offTranslation+24])
	m["buffers"].(map[string]interface{})["extra"] = map[string]interface{}{"uri": inlineURI(extra)}
	m["bufferViews"].(map[string]interface{})["extra_view"] = map[string]interface{}{"buffer": "extra"}
	positions := accessor(0, 1, 5126, "VEC3")
	positions["bufferView"] = "extra_view"
	m["accessors"].(map[string]interface{})["acc_extra"] = positions
	m["meshes"].(map[string]interface{})["box_mesh"].(map[string]interface{})["primitives"].([]interface{})[0].(map[string]interface{})["indices"] = "acc_extra_indices"
	indices := accessor(offIndices, 1, 5123, "SCALAR")
	m["accessors"].(map[string]interface{})["acc_extra_indices"] = indices
	m["meshes"].(map[string]interface{})["box_mesh"].(map[string]interface{})["primitives"].([]interface{})[0].(map[string]interface{})["attributes"] = map[string]interface{}{
		"POSITION": "acc_extra",
	}

	mesh, err := Assemble(context.Background(), marshal(t, m), "", 1, nil, fetch.NewRouter(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, mesh.Geometry.Indices)
	assert.Equal(t, []mgl32.Vec3{{4, 5, 6}}, mesh.Geometry.Positions)
	assert.Nil(t, mesh.Geometry.Normals)
	assert.Equal(t, "position", mesh.Material.Shader.Features().String())
}

func TestLoadAssetHTTP(t *testing.T) {
	buf := boxBuffer(t)
	manifest := marshal(t, boxManifest(t, boxOptions{animations: true}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/box.gltf":
			w.Write(manifest)
		case "/models/box.bin":
			w.Write(buf)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	router := fetch.NewRouter(time.Second)
	mesh, err := GetInstance().LoadAsset(context.Background(), srv.URL+"/models/box.gltf", 1, nil,
		WithFetcher(router), WithRequestID("test-http"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/models/box.png", mesh.Material.DiffuseTexture.Path)
	assert.Len(t, mesh.Tracks, 2)

	_, err = GetInstance().LoadAsset(context.Background(), srv.URL+"/missing/box.gltf", 1, nil, WithFetcher(router))
	assert.True(t, errors.Is(err, fetch.ErrTransport), "missing manifest: %v", err)
}

func TestLoadAssetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := GetInstance().LoadAsset(context.Background(), srv.URL+"/box.gltf", 1, nil,
		WithFetcher(fetch.NewRouter(100*time.Millisecond)))
	assert.True(t, errors.Is(err, fetch.ErrTransport), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoadAssetErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(m map[string]interface{})
		kind   error
	}{
		{"missing buffer file", func(m map[string]interface{}) {
			m["buffers"] = map[string]interface{}{"box": map[string]interface{}{"uri": "nope.bin"}}
		}, fetch.ErrTransport},
		{"short buffer", func(m map[string]interface{}) {
			m["buffers"] = map[string]interface{}{"box": map[string]interface{}{"uri": "box.bin", "byteLength": 1000}}
		}, gltf.ErrFormat},
		{"out of range accessor", func(m map[string]interface{}) {
			m["accessors"].(map[string]interface{})["acc_position"] = accessor(offPositions, 100, 5126, "VEC3")
		}, gltf.ErrFormat},
		{"unsupported component type", func(m map[string]interface{}) {
			m["accessors"].(map[string]interface{})["acc_position"] = accessor(offPositions, 3, 5125, "VEC3")
		}, gltf.ErrFormat},
		{"positions not vec3", func(m map[string]interface{}) {
			m["accessors"].(map[string]interface{})["acc_position"] = accessor(offPositions, 3, 5126, "VEC2")
		}, gltf.ErrFormat},
		{"index past vertices", func(m map[string]interface{}) {
			m["accessors"].(map[string]interface{})["acc_position"] = accessor(offPositions, 2, 5126, "VEC3")
		}, gltf.ErrFormat},
		{"no buffers", func(m map[string]interface{}) {
			delete(m, "buffers")
		}, gltf.ErrFormat},
		{"no meshes", func(m map[string]interface{}) {
			delete(m, "meshes")
		}, gltf.ErrResolution},
		{"missing accessor", func(m map[string]interface{}) {
			delete(m["accessors"].(map[string]interface{}), "acc_normal")
		}, gltf.ErrResolution},
		{"missing texture", func(m map[string]interface{}) {
			delete(m, "textures")
		}, gltf.ErrResolution},
		{"missing sampler accessor", func(m map[string]interface{}) {
			m["animations"] = map[string]interface{}{"a": animation("translation", "acc_undefined")}
		}, gltf.ErrResolution},
		{"keys and values mismatch", func(m map[string]interface{}) {
			m["accessors"].(map[string]interface{})["acc_short"] = accessor(offTranslation, 1, 5126, "VEC3")
			m["animations"] = map[string]interface{}{"a": animation("translation", "acc_short")}
		}, gltf.ErrFormat},
		{"rotation not vec4", func(m map[string]interface{}) {
			m["animations"] = map[string]interface{}{"a": animation("rotation", "acc_translation")}
		}, gltf.ErrFormat},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := writeBox(t, boxOptions{})
			m := boxManifest(t, boxOptions{})
			tc.mutate(m)
			manifest := marshal(t, m)

			_, err := Assemble(context.Background(), manifest, path.Dir(p)+"/", 1, nil, fetch.NewRouter(time.Second))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestLoadAssetNoMaterial(t *testing.T) {
	p := writeBox(t, boxOptions{noMaterial: true})
	_, err := GetInstance().LoadAsset(context.Background(), p, 1, nil)
	assert.True(t, errors.Is(err, gltf.ErrResolution), "got %v", err)
	assert.True(t, strings.Contains(err.Error(), "no material"), err.Error())
}

func TestMalformedManifest(t *testing.T) {
	_, err := Assemble(context.Background(), []byte(`{"meshes": [`), "", 1, nil, fetch.NewRouter(time.Second))
	assert.True(t, errors.Is(err, gltf.ErrFormat), "got %v", err)
}

func TestLoadAssetAsync(t *testing.T) {
	p := writeBox(t, boxOptions{animations: true})

	pending := GetInstance().LoadAssetAsync(context.Background(), p, 1, nil)
	select {
	case <-pending.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("load did not resolve")
	}

	mesh, err := pending.Result()
	require.NoError(t, err)
	again, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, mesh, again)

	failed := GetInstance().LoadAssetAsync(context.Background(), p+".missing", 1, nil)
	_, err = failed.Wait(context.Background())
	assert.True(t, errors.Is(err, fetch.ErrTransport), "got %v", err)
}

func TestPendingWaitContext(t *testing.T) {
	p := newPending()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	mesh, err := p.Result()
	assert.Nil(t, mesh)
	assert.NoError(t, err)

	p.resolve(&model.Mesh{Name: "late"}, nil)
	mesh, err = p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", mesh.Name)
}

func TestLoadAssetParentReferences(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "box.bin"), boxBuffer(t), 0644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0777))

	m := boxManifest(t, boxOptions{bufferURI: "../box.bin"})
	m["images"] = map[string]interface{}{"img": map[string]interface{}{"uri": "../box.png"}}
	manifest := filepath.Join(sub, "box.gltf")
	require.NoError(t, os.WriteFile(manifest, marshal(t, m), 0644))

	mesh, err := GetInstance().LoadAsset(context.Background(), filepath.ToSlash(manifest), 1, nil)
	require.NoError(t, err)
	assert.Len(t, mesh.Geometry.Positions, 3)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "box.png")), mesh.Material.DiffuseTexture.Path)

	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, manifest)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, ".."), rel)

	mesh, err = GetInstance().LoadAsset(context.Background(), filepath.ToSlash(rel), 1, nil)
	require.NoError(t, err, "manifest %q above the working directory", rel)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Geometry.Indices)
}

func TestRawPathTracksAreUnscaled(t *testing.T) {
	m := boxManifest(t, boxOptions{})
	m["animations"] = map[string]interface{}{
		"grow": animation("scale", "acc_translation"),
		"tint": animation("color", "acc_rotation"),
	}
	p := writeManifest(t, m)

	mesh, err := GetInstance().LoadAsset(context.Background(), p, 2, nil)
	require.NoError(t, err)
	require.Len(t, mesh.Tracks, 2)

	grow := mesh.Track("scale")
	require.NotNil(t, grow)
	assert.Equal(t, "scale", grow.Name)
	assert.Equal(t, "grow", grow.Animation)
	assert.Equal(t, boxTimes, grow.Times)
	require.Equal(t, gltf.Vec3, grow.Values.Type)
	for i, v := range boxTranslation {
		assert.Equal(t, mgl32.Vec3(v), grow.Values.Vec3s[i])
	}

	tint := mesh.Track("color")
	require.NotNil(t, tint)
	assert.False(t, tint.Values.IsQuaternion())
	for i, v := range boxRotation {
		assert.Equal(t, mgl32.Vec4(v), tint.Values.Vec4s[i])
	}
}

func TestConcurrentLoadsShareNothing(t *testing.T) {
	const n = 8
	paths := make([]string, n)
	for i := range paths {
		paths[i] = writeBox(t, boxOptions{diffuse: []float32{float32(i), 0, 0, 1}, animations: true})
	}

	meshes := make([]*model.Mesh, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meshes[i], errs[i] = GetInstance().LoadAsset(context.Background(), paths[i], float32(i+1), nil)
		}(i)
	}
	wg.Wait()

	for i, mesh := range meshes {
		require.NoError(t, errs[i], "load %d", i)
		scale := float32(i + 1)
		assert.Equal(t, &mgl32.Vec4{float32(i), 0, 0, 1}, mesh.Material.DiffuseColor, "load %d", i)
		for j, v := range boxPositions {
			assert.Equal(t, mgl32.Vec3(v).Mul(scale), mesh.Geometry.Positions[j], "load %d", i)
		}
		tr := mesh.Track(model.TrackTranslate)
		require.NotNil(t, tr)
		assert.Equal(t, mgl32.Vec3(boxTranslation[1]).Mul(scale), tr.Values.Vec3s[1], "load %d", i)
	}
}

type stalledFetcher struct{}

func (stalledFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCustomFetcherIsBounded(t *testing.T) {
	defer config.SetFetchTimeout(config.GetFetchTimeout())
	config.SetFetchTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := GetInstance().LoadAsset(context.Background(), "box.gltf", 1, nil, WithFetcher(stalledFetcher{}))
	assert.True(t, errors.Is(err, fetch.ErrTransport), "got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
