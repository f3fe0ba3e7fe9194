// Package product holds the catalog's product record, its hash encoding and the
// error kinds shared by the storage and cache layers.
package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Product struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	PassengerCapacity int    `json:"passenger_capacity"`
	MaximumSpeed      int    `json:"maximum_speed"`
	InStock           int    `json:"in_stock"`

	// Available is the soft-delete flag. It never leaves the service.
	Available bool `json:"-"`
}

// Input is the loosely typed create payload. Integers may arrive as JSON numbers
// or as numeric strings.
type Input struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	PassengerCapacity *FlexInt `json:"passenger_capacity"`
	MaximumSpeed      *FlexInt `json:"maximum_speed"`
	InStock           *FlexInt `json:"in_stock"`
}

// FromProduct builds the Input a remote caller would send for p.
func FromProduct(p Product) Input {
	pc, ms, st := FlexInt(p.PassengerCapacity), FlexInt(p.MaximumSpeed), FlexInt(p.InStock)
	return Input{
		ID:                p.ID,
		Title:             p.Title,
		PassengerCapacity: &pc,
		MaximumSpeed:      &ms,
		InStock:           &st,
	}
}

// Validate coerces the input into a Product. The returned product is not yet
// marked available; that is the storage engine's decision.
func (in Input) Validate() (Product, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Product{}, invalid("id", "required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return Product{}, invalid("title", "required")
	}

	p := Product{ID: id, Title: in.Title}

	var err error
	if p.PassengerCapacity, err = nonNegative("passenger_capacity", in.PassengerCapacity); err != nil {
		return Product{}, err
	}
	if p.MaximumSpeed, err = nonNegative("maximum_speed", in.MaximumSpeed); err != nil {
		return Product{}, err
	}
	if in.InStock == nil {
		return Product{}, invalid("in_stock", "required")
	}
	p.InStock = int(*in.InStock)

	return p, nil
}

func nonNegative(field string, v *FlexInt) (int, error) {
	if v == nil {
		return 0, invalid(field, "required")
	}
	if *v < 0 {
		return 0, invalid(field, "must be >= 0")
	}
	return int(*v), nil
}

type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("null is not an integer")
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = FlexInt(n)
	return nil
}
