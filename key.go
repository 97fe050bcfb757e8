package lfu

import "reflect"

// nilable reports whether the zero value of Key is a nil reference.
// Of the comparable kinds, only these can be nil.
func nilable[Key comparable]() bool {
	switch reflect.TypeFor[Key]().Kind() {
	case reflect.Pointer, reflect.Chan,
		reflect.Interface, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

func (c *Cache[Key, _]) validKey(key Key) bool {
	var zero Key
	return !c.nilableKeys || key != zero
}

// mustKey panics for keys which would be rejected by [Cache.Put].
func (c *Cache[Key, _]) mustKey(key Key) {
	if !c.validKey(key) {
		panic(nilKeyError(key))
	}
}
