package gltf

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// ID names an entry of a manifest collection. Numeric references
// (array-form collections) are kept in their decimal form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n uint32
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Errorf("id must be a string or a non-negative integer, got %s", b)
	}
	*id = ID(strconv.FormatUint(uint64(n), 10))
	return nil
}

// Collection is an id-keyed manifest collection that remembers document order.
type Collection[T any] struct {
	keys  []ID
	items map[ID]*T
}

func (c *Collection[T]) Len() int {
	return len(c.keys)
}

func (c *Collection[T]) Keys() []ID {
	return c.keys
}

func (c *Collection[T]) Get(id ID) (*T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *Collection[T]) First() (ID, *T, bool) {
	if len(c.keys) == 0 {
		return "", nil, false
	}
	return c.keys[0], c.items[c.keys[0]], true
}

// Add appends an entry; re-adding an id replaces the value but keeps its position.
func (c *Collection[T]) Add(id ID, v *T) {
	if c.items == nil {
		c.items = make(map[ID]*T)
	}
	if _, ok := c.items[id]; !ok {
		c.keys = append(c.keys, id)
	}
	c.items[id] = v
}

func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	c.keys = nil
	c.items = make(map[ID]*T)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case nil:
		return nil
	case json.Delim('{'):
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			key := kt.(string)
			v := new(T)
			if err := dec.Decode(v); err != nil {
				return errors.Wrapf(err, "entry %q", key)
			}
			c.Add(ID(key), v)
		}
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			v := new(T)
			if err := dec.Decode(v); err != nil {
				return errors.Wrapf(err, "entry %d", i)
			}
			c.Add(ID(strconv.Itoa(i)), v)
		}
	default:
		return errors.Errorf("collection must be an object or an array")
	}
	return nil
}
