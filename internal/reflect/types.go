package reflect

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

var typeKeyCache sync.Map

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func TypeKey[T any]() string {
	return TypeKeyOf(TypeOf[T]())
}

func TypeKeyNamed[T any](name string) string {
	return Qualify(TypeKey[T](), name)
}

func Qualify(key, name string) string {
	if name == "" {
		return key
	}
	return key + "#" + name
}

func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TypeKeyOf(t reflect.Type) string {
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildTypeKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildTypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeKey(t.Elem())
		default:
			return "chan " + buildTypeKey(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}
}

func TypeName[T any]() string {
	return TypeOf[T]().String()
}

// Signature describes a constructor function: its parameter types in order,
// the produced type and whether a trailing error is returned.
type Signature struct {
	Params   []reflect.Type
	Returns  reflect.Type
	HasError bool
}

func FuncSignature(fn any) (*Signature, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor is nil")
	}

	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t.Kind())
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("variadic constructors are not supported: %s", t)
	}

	sig := &Signature{Params: make([]reflect.Type, t.NumIn())}
	for i := range t.NumIn() {
		sig.Params[i] = t.In(i)
	}

	switch t.NumOut() {
	case 1:
		sig.Returns = t.Out(0)
	case 2:
		if !t.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("second return value of %s must be error", t)
		}
		sig.Returns = t.Out(0)
		sig.HasError = true
	default:
		return nil, fmt.Errorf("constructor %s must return (T) or (T, error)", t)
	}

	return sig, nil
}

// Call invokes fn with args, converting a trailing non-nil error result.
func Call(fn any, sig *Signature, args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(sig.Params[i])
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	out := reflect.ValueOf(fn).Call(in)
	if sig.HasError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
