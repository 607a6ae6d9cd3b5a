package vfs

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

func OpenFileAndGetReader(f File) (*io.SectionReader, error) {
	if err := f.Open(); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", name)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File '%s' is directory, not a file!", name)
	}
	return e.(File), nil
}

// Walk follows a slash separated path from d. Parent references are refused
// so a lookup cannot leave d.
func Walk(d Directory, p string) (Element, error) {
	var cur Element = d
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return nil, errors.Errorf("Path '%s' leaves the directory", p)
		}
		dir, ok := cur.(Directory)
		if !ok {
			return nil, errors.Errorf("'%s' in path '%s' is not a directory", cur.Name(), p)
		}
		next, err := dir.GetElement(part)
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot find '%s'", p)
		}
		cur = next
	}
	return cur, nil
}

func ReadFile(d Directory, p string) ([]byte, error) {
	p = strings.Trim(p, "/")
	dirPath, name := "", p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		dirPath, name = p[:i], p[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return nil, errors.Errorf("'%s' is not a file path", p)
	}

	e, err := Walk(d, dirPath)
	if err != nil {
		return nil, err
	}
	dir, ok := e.(Directory)
	if !ok {
		return nil, errors.Errorf("'%s' in path '%s' is not a directory", dirPath, p)
	}
	f, err := DirectoryGetFile(dir, name)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read '%s'", p)
	}
	return data, nil
}
