package shop

import "time"

// Tag is a named string; it renders as a scalar.
type Tag string

//reprgen:derive
type Item struct {
	SKU   string
	Price float64
}

// Label has a hand-written Represent method.
type Label struct {
	Text string
}

func (l Label) Represent() string { return "#" + l.Text }

// Ref has Represent on its pointer receiver.
type Ref struct {
	ID int
}

func (r *Ref) Represent() string { return "ref" }

// Order is a customer order.
//
//reprgen:derive
type Order struct {
	ID      string
	Tags    []string
	Counts  []int32
	Letters []rune
	Items   []Item
	Ptrs    []*Item
	Labels  []Label
	Refs    []Ref
	Total   float64 `repr:"total"`
	secret  string  `repr:"-"`
	_       int
	Fixed   [2]string
	Named   Tag
	When    time.Time
	Extra   map[string]int
}

//reprgen:derive strategy=debug receiver=p pointer
type Page[T any] struct {
	Items []T
	Next  string
}

//reprgen:derive
type Color int

//reprgen:derive
type Wrapper struct {
	Label
}

//reprgen:derive
type Dup struct {
	X int
}

func (Dup) Represent() string { return "dup" }

// Plain is not marked.
type Plain struct {
	A int
}
