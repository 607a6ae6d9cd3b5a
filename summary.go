package main

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gltf_loader/model"
	"github.com/mogaika/gltf_loader/utils"
)

func writeSummary(w io.Writer, m *model.Mesh) {
	g := &m.Geometry
	fmt.Fprintf(w, "mesh %q: %d vertices, %d indices, features %s\n",
		m.Name, len(g.Positions), len(g.Indices), g.Features())

	if mat := m.Material; mat != nil {
		fmt.Fprintf(w, "material %q: shader %s, opacity %.3f\n", mat.Name, mat.ShaderName, mat.Opacity)
		if mat.DiffuseTexture != nil {
			fmt.Fprintf(w, "  diffuse texture %s\n", mat.DiffuseTexture.Path)
		}
		for _, c := range []struct {
			name  string
			color *mgl32.Vec4
		}{
			{"diffuse", mat.DiffuseColor},
			{"ambient", mat.AmbientColor},
			{"specular", mat.SpecularColor},
		} {
			if c.color != nil {
				fmt.Fprintf(w, "  %s color %v\n", c.name, *c.color)
			}
		}
	}

	for _, t := range m.Tracks {
		fmt.Fprintf(w, "track %s (animation %q, target %q): %d keys", t.Name, t.Animation, t.Target, len(t.Times))
		if len(t.Times) > 0 {
			fmt.Fprintf(w, ", %.3f..%.3f", t.Times[0], t.Times[len(t.Times)-1])
		}
		if t.Values != nil && t.Values.IsQuaternion() && len(t.Values.Quats) > 0 {
			fmt.Fprintf(w, ", first rotation %v deg", utils.RadiansToDegreesV3(utils.QuatToEuler(t.Values.Quats[0])))
		}
		fmt.Fprintln(w)
	}
}
