package query

import "strings"

// Key identifies a cache entry: an endpoint family plus its parameter tuple.
type Key struct {
	Family string
	Params []string
}

func NewKey(family string, params ...string) Key {
	return Key{Family: family, Params: append([]string(nil), params...)}
}

// String is the map key. Params are joined with a unit separator so values
// containing "/" or spaces cannot collide.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Family
	}
	return k.Family + "\x1f" + strings.Join(k.Params, "\x1f")
}

// Display is a human-readable form for logs and the CLI.
func (k Key) Display() string {
	if len(k.Params) == 0 {
		return k.Family
	}
	return k.Family + "/" + strings.Join(k.Params, "/")
}

// HasPrefix reports whether k belongs to prefix: same family and the prefix
// params are the leading params of k. A family-only prefix matches the whole family.
func (k Key) HasPrefix(prefix Key) bool {
	if k.Family != prefix.Family {
		return false
	}
	if len(prefix.Params) > len(k.Params) {
		return false
	}
	for i, p := range prefix.Params {
		if k.Params[i] != p {
			return false
		}
	}
	return true
}

func (k Key) Equal(o Key) bool {
	return k.String() == o.String()
}
