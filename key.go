package piper

import (
	"reflect"
)

// Key identifies a (request, response) pair. Each key is bound to at most
// one handler and one compiled pipeline.
type Key struct {
	Request  reflect.Type
	Response reflect.Type
}

// KeyOf returns the key for request type R and response type T.
func KeyOf[R, T any]() Key {
	return Key{Request: reflect.TypeFor[R](), Response: reflect.TypeFor[T]()}
}

// keyFor returns the key for the concrete runtime type of req.
func keyFor[T any](req Request[T]) Key {
	return Key{Request: reflect.TypeOf(req), Response: reflect.TypeFor[T]()}
}

func (k Key) String() string {
	return typeString(k.Request) + " -> " + typeString(k.Response)
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
