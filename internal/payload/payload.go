// Package payload generates request bodies for the product API.
package payload

import (
	"encoding/json"
	"math/rand"
	"strconv"
)

const (
	skuAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	skuLength   = 10

	maxManufacturer = 100
	maxCategoryID   = 50
	maxWeight       = 10000
	maxSecondaryID  = 1000
)

// Product is a full create payload for the product API.
type Product struct {
	ProductID    int64  `json:"product_id"`
	SKU          string `json:"sku"`
	Manufacturer string `json:"manufacturer"`
	CategoryID   int64  `json:"category_id"`
	Weight       int64  `json:"weight"`
	SomeOtherID  int64  `json:"some_other_id"`
}

// NewProduct builds a valid product for the given identifier. It is a
// pure function of the identifier and the random source.
func NewProduct(rng *rand.Rand, id int64) Product {
	return Product{
		ProductID:    id,
		SKU:          RandomSKU(rng),
		Manufacturer: manufacturers[rng.Intn(maxManufacturer)],
		CategoryID:   1 + rng.Int63n(maxCategoryID),
		Weight:       rng.Int63n(maxWeight + 1),
		SomeOtherID:  1 + rng.Int63n(maxSecondaryID),
	}
}

// Valid returns the JSON body of a complete create payload.
func Valid(rng *rand.Rand, id int64) ([]byte, error) {
	return json.Marshal(NewProduct(rng, id))
}

// Invalid returns a create payload carrying only the product identifier,
// with every other required field deliberately omitted. The API is
// expected to reject it with a validation error.
func Invalid(id int64) ([]byte, error) {
	return json.Marshal(struct {
		ProductID int64 `json:"product_id"`
	}{ProductID: id})
}

// RandomSKU returns a fixed-length uppercase alphanumeric token.
func RandomSKU(rng *rand.Rand) string {
	b := make([]byte, skuLength)
	for i := range b {
		b[i] = skuAlphabet[rng.Intn(len(skuAlphabet))]
	}
	return string(b)
}

// manufacturers is the bounded name space the manufacturer label is
// drawn from.
var manufacturers = buildManufacturers()

func buildManufacturers() []string {
	names := make([]string, maxManufacturer)
	for i := range names {
		names[i] = "Manufacturer-" + strconv.Itoa(i+1)
	}
	return names
}
