package config

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// nil means UTF-8
var currentCharMap *charmap.Charmap

func SetEncoding(name string) error {
	if name == "" || name == "UTF-8" {
		currentCharMap = nil
		return nil
	}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				currentCharMap = cm
				return nil
			}
		}
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := []string{"UTF-8"}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap
}

// DecodeText converts manifest text to UTF-8. Without a configured charmap
// the input is UTF-8 and a leading byte order mark is dropped.
func DecodeText(b []byte) ([]byte, error) {
	var t transform.Transformer
	if cm := GetEncoding(); cm != nil {
		t = cm.NewDecoder()
	} else {
		t = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
	out, _, err := transform.Bytes(t, b)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode text")
	}
	return out, nil
}
