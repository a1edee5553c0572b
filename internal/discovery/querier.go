package discovery

import (
	"context"
	"math"
	"reflect"

	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Reply delivers the outcome of a query. Only the first call is honoured.
//
// result must be a map keyed by address (any string key type). A key whose
// value is truthy marks that address used: true, a non-zero number, a
// non-empty string, any non-nil pointer, collection or struct value. Missing
// keys mean unused and keys for addresses outside the batch are ignored.
type Reply func(result any, err error)

// Querier answers whether batches of addresses have been used.
//
// Query must eventually call reply exactly once, from any goroutine, or the
// scan only ends when ctx is done. Query should not block for the duration
// of a network round trip; long work belongs in a goroutine.
type Querier interface {
	Query(ctx context.Context, batch []string, reply Reply)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, batch []string, reply Reply)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, batch []string, reply Reply) {
	f(ctx, batch, reply)
}

// UsedSet turns a query result into a membership test. Results that are not
// string-keyed maps fail with ErrQueryResultType.
func UsedSet(result any) (func(addr string) bool, error) {
	switch set := result.(type) {
	case map[string]bool:
		return func(addr string) bool { return set[addr] }, nil
	case map[string]struct{}:
		return func(addr string) bool {
			_, ok := set[addr]
			return ok
		}, nil
	case map[string]any:
		return func(addr string) bool {
			v, ok := set[addr]
			return ok && truthy(reflect.ValueOf(v))
		}, nil
	}

	v := reflect.ValueOf(result)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		kind := "nil"
		if v.IsValid() {
			kind = v.Type().String()
		}
		return nil, scanerr.WithDetails(scanerr.ErrQueryResultType, map[string]string{"type": kind})
	}

	keyType := v.Type().Key()
	return func(addr string) bool {
		return truthy(v.MapIndex(reflect.ValueOf(addr).Convert(keyType)))
	}, nil
}

// truthy reports whether v marks an address used.
func truthy(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Complex64, reflect.Complex128:
		return v.Complex() != 0
	case reflect.String:
		return v.Len() > 0
	case reflect.Interface:
		if v.IsNil() {
			return false
		}
		return truthy(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return !v.IsNil()
	default:
		// struct and array values
		return true
	}
}
