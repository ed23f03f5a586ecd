// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl_test

import (
	"testing"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
)

func TestMakeRecord(t *testing.T) {
	type bus struct {
		Addr  *hdl.Signal `hw:"16"`
		Data  *hdl.Signal `hw:"8,signed"`
		Valid *hdl.Signal `hw:"1,vld"`
		Note  string      // untagged, left alone
	}
	var b bus
	if err := hdl.MakeRecord(&b, "mem"); err != nil {
		t.Fatal(err)
	}
	if b.Addr.Name() != "mem_addr" || b.Addr.Shape() != hdl.Unsigned(16) {
		t.Errorf("Addr = %v %v", b.Addr.Name(), b.Addr.Shape())
	}
	if b.Data.Name() != "mem_data" || b.Data.Shape() != hdl.Signed(8) {
		t.Errorf("Data = %v %v", b.Data.Name(), b.Data.Shape())
	}
	if b.Valid.Name() != "mem_vld" || b.Valid.Shape() != hdl.Unsigned(1) {
		t.Errorf("Valid = %v %v", b.Valid.Name(), b.Valid.Shape())
	}
	if b.Note != "" {
		t.Error("untagged field modified")
	}
}

func TestMakeRecord_noPrefix(t *testing.T) {
	type p struct {
		En *hdl.Signal `hw:"1"`
	}
	var v p
	if err := hdl.MakeRecord(&v, ""); err != nil {
		t.Fatal(err)
	}
	if v.En.Name() != "en" {
		t.Errorf("name = %q", v.En.Name())
	}
}

func TestMakeRecord_errors(t *testing.T) {
	type notSig struct {
		X int `hw:"4"`
	}
	type badWidth struct {
		X *hdl.Signal `hw:"lots"`
	}
	type tooWide struct {
		X *hdl.Signal `hw:"65"`
	}
	if err := hdl.MakeRecord(notSig{}, ""); err == nil {
		t.Error("expected an error for a non-pointer")
	}
	if err := hdl.MakeRecord(&notSig{}, ""); err == nil {
		t.Error("expected an error for a tagged non-signal field")
	}
	if err := hdl.MakeRecord(&badWidth{}, ""); err == nil {
		t.Error("expected an error for a malformed width")
	}
	if err := hdl.MakeRecord(&tooWide{}, ""); err == nil {
		t.Error("expected an error for an oversized width")
	}
}
