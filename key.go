package warden

import (
	"strings"

	"github.com/danpasecinic/warden/internal/reflect"
)

// Key identifies a binding: a type key plus an optional qualifier, rendered
// as "pkg.Type" or "pkg.Type#qualifier".
type Key string

func KeyOf[T any]() Key {
	return Key(reflect.TypeKey[T]())
}

func KeyNamed[T any](name string) Key {
	return Key(reflect.TypeKeyNamed[T](name))
}

func (k Key) Type() string {
	if i := strings.LastIndexByte(string(k), '#'); i >= 0 {
		return string(k[:i])
	}
	return string(k)
}

func (k Key) Qualifier() string {
	if i := strings.LastIndexByte(string(k), '#'); i >= 0 {
		return string(k[i+1:])
	}
	return ""
}

func (k Key) String() string {
	return string(k)
}

func toKeys(keys []string) []Key {
	if keys == nil {
		return nil
	}
	out := make([]Key, len(keys))
	for i, k := range keys {
		out[i] = Key(k)
	}
	return out
}
