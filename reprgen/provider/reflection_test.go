package provider

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/repr/reprgen/ir"
)

type reflItem struct {
	SKU string
}

func (i reflItem) Represent() string { return i.SKU }

type reflPtrItem struct{}

func (*reflPtrItem) Represent() string { return "p" }

type reflOrder struct {
	ID     string
	Tags   []string
	Counts []int32
	Items  []reflItem
	Ptrs   []*reflPtrItem
	Plain  []time.Time
	Total  float64 `repr:"total"`
	cache  []byte  `repr:"-"`
	When   time.Duration
	Fn     func()
}

type reflEmbedded struct {
	reflItem
}

type reflList[T any] []T

type reflPage[T any] struct {
	Items reflList[T]
}

func TestReflectionProvider_Describe(t *testing.T) {
	p := &ReflectionProvider{}
	d, err := p.Describe(reflect.TypeOf(&reflOrder{}))
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if d.Name.Name != "reflOrder" || !strings.HasSuffix(d.Name.Package, "reprgen/provider") {
		t.Errorf("Name = %v", d.Name)
	}

	want := []string{
		"ID/ID/string",
		"Tags/Tags/[]string",
		"Counts/Counts/[]int32",
		"Items/Items/[]provider.reflItem",
		"Ptrs/Ptrs/[]*provider.reflPtrItem",
		"Plain/Plain/[]time.Time",
		"Total/total/float64",
		"When/When/time.Duration",
		"Fn/Fn/func()",
	}
	if diff := cmp.Diff(want, fieldSummary(d.Fields)); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	elemCap := func(field string) ir.Capability {
		el := findField(d, field).Type.(*ir.ArrayDescriptor).Element
		if ptr, ok := el.(*ir.PtrDescriptor); ok {
			el = ptr.Element
		}
		return el.(*ir.ReferenceDescriptor).Representable
	}
	if c := elemCap("Items"); c != ir.CapabilityPresent {
		t.Errorf("Items capability = %v", c)
	}
	if c := elemCap("Ptrs"); c != ir.CapabilityPresent {
		t.Errorf("Ptrs capability = %v", c)
	}
	if c := elemCap("Plain"); c != ir.CapabilityAbsent {
		t.Errorf("Plain capability = %v", c)
	}
}

func TestReflectionProvider_DescribeErrors(t *testing.T) {
	p := &ReflectionProvider{}

	_, err := p.Describe(reflect.TypeOf(42))
	if !errors.Is(err, ir.ErrUnsupportedShape) || !strings.Contains(err.Error(), ir.MsgOnlyStructs) {
		t.Errorf("int: got %v", err)
	}

	_, err = p.Describe(reflect.TypeOf(reflEmbedded{}))
	if !errors.Is(err, ir.ErrUnsupportedShape) || !strings.Contains(err.Error(), ir.MsgOnlyNamedFields) {
		t.Errorf("embedded: got %v", err)
	}
}

func TestReflectionProvider_GenericSequence(t *testing.T) {
	p := &ReflectionProvider{}
	d, err := p.Describe(reflect.TypeOf(reflPage[string]{}))
	if err != nil {
		t.Fatal(err)
	}
	if d.Name.Name != "reflPage" {
		t.Errorf("Name = %q, want base name without type arguments", d.Name.Name)
	}
	ref := d.Fields[0].Type.(*ir.ReferenceDescriptor)
	if ref.Target.Name != "reflList" || len(ref.TypeArgs) != 1 || ref.TypeArgs[0].GoString() != "string" {
		t.Errorf("Items = %s", ref.GoString())
	}
}

func TestReflectionProvider_BuildSchema(t *testing.T) {
	p := &ReflectionProvider{}
	schema, err := p.BuildSchema(context.Background(), ReflectionInputOptions{
		RootTypes: []reflect.Type{
			reflect.TypeOf(reflItem{}),
			reflect.TypeOf(reflEmbedded{}),
			reflect.TypeOf(reflPage[int]{}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if schema.Package.Name != "provider" {
		t.Errorf("Package.Name = %q", schema.Package.Name)
	}
	if diff := cmp.Diff([]string{"reflItem"}, structNames(schema)); diff != "" {
		t.Errorf("structs mismatch (-want +got):\n%s", diff)
	}
	if len(schema.Diagnostics) != 2 {
		t.Errorf("diagnostics = %v, want 2", schema.Diagnostics)
	}

	_, err = p.BuildSchema(context.Background(), ReflectionInputOptions{
		RootTypes: []reflect.Type{reflect.TypeOf(reflItem{}), reflect.TypeOf(time.Time{})},
	})
	if err == nil || !strings.Contains(err.Error(), "is in package time") {
		t.Errorf("mixed packages: got %v", err)
	}

	_, err = p.BuildSchema(context.Background(), ReflectionInputOptions{})
	if err == nil {
		t.Error("expected error for no root types")
	}
}
