package vfs

import (
	"io"
)

// Element must stay metadata-only (a name) until List/Open/GetElement is called.
type Element interface {
	Name() string
	IsDirectory() bool
}

type File interface {
	Element
	Size() int64
	Open() error
	Close() error
	Reader() (*io.SectionReader, error)
}

type Directory interface {
	Element
	List() ([]string, error)
	GetElement(name string) (Element, error)
}
