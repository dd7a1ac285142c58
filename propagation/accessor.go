// Package propagation reads and writes trace contexts through carriers of any
// type. The codec only depends on a Getter or Setter for the carrier, never on
// a concrete header or message representation.
package propagation

import (
	"net/http"
	"strings"
)

// Getter reads a named field from a carrier of type C. A missing field is
// returned as the empty string.
type Getter[C any] interface {
	Get(carrier C, key string) string
}

// Setter writes a named field into a carrier of type C.
type Setter[C any] interface {
	Set(carrier C, key, value string)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc[C any] func(carrier C, key string) string

func (f GetterFunc[C]) Get(carrier C, key string) string {
	return f(carrier, key)
}

// SetterFunc adapts a function to the Setter interface.
type SetterFunc[C any] func(carrier C, key, value string)

func (f SetterFunc[C]) Set(carrier C, key, value string) {
	f(carrier, key, value)
}

var (
	// HTTPHeaders accesses http.Header carriers.
	HTTPHeaders httpHeaders

	// TextMap accesses plain string maps, matching keys case-insensitively on
	// read. opentracing.TextMapCarrier converts to it directly.
	TextMap textMap
)

type httpHeaders struct{}

func (httpHeaders) Get(h http.Header, key string) string {
	return h.Get(key)
}

func (httpHeaders) Set(h http.Header, key, value string) {
	h.Set(key, value)
}

type textMap struct{}

func (textMap) Get(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (textMap) Set(m map[string]string, key, value string) {
	m[key] = value
}
