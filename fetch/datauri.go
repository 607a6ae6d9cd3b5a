package fetch

import (
	"encoding/base64"
	"strings"
)

func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// DecodeDataURI decodes data:[<mediatype>];base64,<payload>.
func DecodeDataURI(uri string) ([]byte, error) {
	if !IsDataURI(uri) {
		return nil, transportErrorf("Not a data uri")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, transportErrorf("Data uri has no payload separator")
	}
	header := uri[len("data:"):comma]
	if !strings.HasSuffix(header, ";base64") {
		return nil, transportErrorf("Unsupported data uri encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, wrapTransport(err, "Failed to decode base64 payload")
	}
	return data, nil
}
