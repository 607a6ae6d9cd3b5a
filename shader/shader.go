package shader

import (
	"strings"
)

// Feature is a vertex attribute capability a program is built for.
type Feature uint32

const (
	Position Feature = 1 << iota
	Normal
	Texcoord
	Color
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{Position, "position"},
	{Normal, "normal"},
	{Texcoord, "texcoord"},
	{Color, "color"},
}

type Features Feature

func (fs Features) Has(f Feature) bool {
	return Feature(fs)&f == f
}

func (fs Features) With(f Feature) Features {
	return Features(Feature(fs) | f)
}

func (fs Features) String() string {
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if fs.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Program is an opaque compiled shader the material is drawn with.
type Program interface {
	Name() string
	Features() Features
}

// Phong is the standard lit program used when the caller supplies none.
type Phong struct {
	features Features
}

func NewPhong(features Features) *Phong {
	return &Phong{features: features.With(Position)}
}

func (p *Phong) Name() string {
	return "phong"
}

func (p *Phong) Features() Features {
	return p.features
}
