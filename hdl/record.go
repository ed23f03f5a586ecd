// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MakeRecord creates the signals of a bundle described by a tagged struct.
// rec must be a pointer to a struct whose exported fields of type *Signal
// carry a `hw` tag:
//
//	type Bus struct {
//		Addr  *hdl.Signal `hw:"16"`
//		Data  *hdl.Signal `hw:"8,signed"`
//		Valid *hdl.Signal `hw:"1,vld"`
//	}
//
// The tag is the field's width, optionally followed by "signed" and by a
// name overriding the lowercased field name. Signal names are prefixed with
// the record prefix and an underscore. Untagged fields are left alone.
//
func MakeRecord(rec interface{}, prefix string) error {
	v := reflect.ValueOf(rec)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("record must be a pointer to a struct, not %T", rec)
	}
	v = v.Elem()
	typ := v.Type()

	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("hw")
		if !ok {
			continue
		}
		if f.Type != reflect.TypeOf((*Signal)(nil)) {
			return errors.Errorf("tagged field %q in %q is not a *hdl.Signal", f.Name, typ.Name())
		}
		name := strings.ToLower(f.Name)
		signed := false
		tv := strings.Split(tag, ",")
		width, err := strconv.Atoi(strings.TrimSpace(tv[0]))
		if err != nil {
			return errors.Errorf("invalid width %q for field %q in %q", tv[0], f.Name, typ.Name())
		}
		for _, t := range tv[1:] {
			t = strings.TrimSpace(t)
			switch {
			case t == "signed":
				signed = true
			case t != "":
				name = t
			}
		}
		shape := Shape{Width: width, Signed: signed}
		if width < 0 || width > MaxWidth {
			return errors.Errorf("invalid width %d for field %q in %q", width, f.Name, typ.Name())
		}
		if prefix != "" {
			name = prefix + "_" + name
		}
		v.Field(i).Set(reflect.ValueOf(NewSignal(name, shape)))
	}
	return nil
}

// MustRecord is like MakeRecord but panics on error.
//
func MustRecord(rec interface{}, prefix string) {
	if err := MakeRecord(rec, prefix); err != nil {
		panic(err)
	}
}
