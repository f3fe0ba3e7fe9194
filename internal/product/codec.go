package product

import (
	"fmt"
	"strconv"
)

const (
	keyPrefix = "products:"

	// KeyPattern matches every product hash and nothing else in the same database.
	KeyPattern = keyPrefix + "*"
)

const (
	FieldID                = "id"
	FieldTitle             = "title"
	FieldPassengerCapacity = "passenger_capacity"
	FieldMaximumSpeed      = "maximum_speed"
	FieldInStock           = "in_stock"
	FieldAvailable         = "available"
)

// Stored boolean literals. Decode compares against boolTrue verbatim, so the
// casing has to match what is already in Redis.
const (
	boolTrue  = "True"
	boolFalse = "False"
)

func Key(id string) string {
	return keyPrefix + id
}

func Encode(p Product) map[string]string {
	available := boolFalse
	if p.Available {
		available = boolTrue
	}
	return map[string]string{
		FieldID:                p.ID,
		FieldTitle:             p.Title,
		FieldPassengerCapacity: strconv.Itoa(p.PassengerCapacity),
		FieldMaximumSpeed:      strconv.Itoa(p.MaximumSpeed),
		FieldInStock:           strconv.Itoa(p.InStock),
		FieldAvailable:         available,
	}
}

// Decode rebuilds a product from its hash. A missing available field, as in
// cache hashes, decodes as available.
func Decode(fields map[string]string) (Product, error) {
	var p Product
	var ok bool

	if p.ID, ok = fields[FieldID]; !ok {
		return Product{}, corrupt(fields, FieldID, "missing")
	}
	if p.Title, ok = fields[FieldTitle]; !ok {
		return Product{}, corrupt(fields, FieldTitle, "missing")
	}

	var err error
	if p.PassengerCapacity, err = decodeInt(fields, FieldPassengerCapacity); err != nil {
		return Product{}, err
	}
	if p.MaximumSpeed, err = decodeInt(fields, FieldMaximumSpeed); err != nil {
		return Product{}, err
	}
	if p.InStock, err = decodeInt(fields, FieldInStock); err != nil {
		return Product{}, err
	}

	v, ok := fields[FieldAvailable]
	p.Available = !ok || v == boolTrue

	return p, nil
}

func decodeInt(fields map[string]string, field string) (int, error) {
	raw, ok := fields[field]
	if !ok {
		return 0, corrupt(fields, field, "missing")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, corrupt(fields, field, fmt.Sprintf("not an integer: %q", raw))
	}
	return n, nil
}

func corrupt(fields map[string]string, field, reason string) error {
	return fmt.Errorf("%w: id=%q field %s %s", ErrCorruptRecord, fields[FieldID], field, reason)
}
