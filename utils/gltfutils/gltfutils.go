package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/gltf_loader/model"
)

// NewDocument converts an assembled mesh into a glTF 2.0 document with one
// node, one mesh and one material. Animation tracks are not exported.
func NewDocument(m *model.Mesh) *gltf.Document {
	doc := gltf.NewDocument()
	geom := &m.Geometry

	positions := make([][3]float32, len(geom.Positions))
	for i, v := range geom.Positions {
		positions[i] = v
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}

	if geom.Normals != nil {
		normals := make([][3]float32, len(geom.Normals))
		for i, v := range geom.Normals {
			normals[i] = v
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}

	if geom.Texcoords != nil {
		uvs := make([][2]float32, len(geom.Texcoords))
		for i, v := range geom.Texcoords {
			uvs[i] = v
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}

	indicesAccessor := modeler.WriteIndices(doc, geom.Indices)

	primitive := &gltf.Primitive{
		Indices:    &indicesAccessor,
		Attributes: attributes,
	}
	if m.Material != nil {
		primitive.Material = gltf.Index(uint32(len(doc.Materials)))
		doc.Materials = append(doc.Materials, newMaterial(doc, m.Material))
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       m.Name,
		Primitives: []*gltf.Primitive{primitive},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: m.Name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
	return doc
}

func newMaterial(doc *gltf.Document, mat *model.Material) *gltf.Material {
	color := &[4]float32{1, 1, 1, 1}
	if mat.DiffuseColor != nil {
		*color = [4]float32(*mat.DiffuseColor)
	}
	color[3] *= mat.Opacity

	gm := &gltf.Material{
		Name:        mat.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	}

	if tex := mat.DiffuseTexture; tex != nil {
		imageIndex := uint32(len(doc.Images))
		doc.Images = append(doc.Images, &gltf.Image{
			Name: tex.Name + "_image",
			URI:  tex.Path,
		})
		textureIndex := uint32(len(doc.Textures))
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Name:   tex.Name,
			Source: gltf.Index(imageIndex),
		})
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: textureIndex,
		}
	}
	return gm
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	for iNode := range doc.Nodes {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// ExportMesh writes m as a GLB container.
func ExportMesh(w io.Writer, m *model.Mesh) error {
	return ExportBinary(w, NewDocument(m))
}
