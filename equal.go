package dispatch

import "reflect"

// equal reports whether a == b.
// Maps, slices and funcs, which == cannot compare, are equal when they are
// the same value: the same map, the same slice header, or the same code.
// Other uncomparable values are unequal, even to themselves.
func equal(a, b any) (eq bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}

	switch ta.Kind() {
	case reflect.Map, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	defer func() {
		if recover() != nil {
			eq = false
		}
	}()

	return a == b
}

// matchable reports whether v is equal to itself.
func matchable(v any) bool {
	return equal(v, v)
}
