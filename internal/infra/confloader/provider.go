package confloader

import "errors"

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form")

// mapProvider is a koanf provider over an in-memory map with dotted or nested keys.
type mapProvider map[string]any

// ReadBytes implements koanf.Provider.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read implements koanf.Provider. Dotted keys are expanded so that
// {"server.port": 1} and {"server": {"port": 1}} load the same way.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		insert(out, k, v)
	}
	return out, nil
}

func insert(dst map[string]any, key string, v any) {
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		sub, ok := dst[key[:i]].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			dst[key[:i]] = sub
		}
		insert(sub, key[i+1:], v)
		return
	}
	dst[key] = v
}
