package enum

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	mutex       sync.RWMutex
	enumManager = map[reflect.Type]any{}
)

type enum[T comparable] struct {
	toEnum   map[string]T
	toString map[T]string
}

// New registers value as a member of its enum type. The optional name is the
// external representation of value, by default it is the value itself.
func New[T comparable](value T, name ...string) T {
	mutex.Lock()
	defer mutex.Unlock()

	t := reflect.TypeOf(value)
	if _, ok := enumManager[t]; !ok {
		enumManager[t] = enum[T]{toEnum: make(map[string]T), toString: make(map[T]string)}
	}

	s := fmt.Sprint(value)
	if len(name) > 0 {
		s = name[0]
	}

	e := enumManager[t].(enum[T])
	e.toEnum[s] = value
	e.toString[value] = s
	return value
}

// ToEnum converts the external representation to a registered enum value.
func ToEnum[T comparable](s string) (T, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	var defaultT T
	e, ok := enumManager[reflect.TypeOf(defaultT)]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	t, ok := e.(enum[T]).toEnum[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return t, nil
}

// ToString returns the external representation of a registered value, or an
// empty string if value was never registered.
func ToString[T comparable](value T) string {
	mutex.RLock()
	defer mutex.RUnlock()

	e, ok := enumManager[reflect.TypeOf(value)]
	if !ok {
		return ""
	}

	return e.(enum[T]).toString[value]
}
