// Package catalog is the client for the product REST API and the AI search
// webhook that consume recognized queries.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ID is a product identifier. The API returns either strings or numbers.
type ID string

// UnmarshalJSON accepts both quoted and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Product is one catalog entry.
type Product struct {
	ID          ID      `json:"id,omitempty"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Promotion   string  `json:"promotion"`
	ImageURL    string  `json:"imageUrl"`
}

// FieldError is one invalid product field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ErrInvalidProduct wraps every product validation failure.
var ErrInvalidProduct = errors.New("invalid product")

// Validate checks the fields the catalog requires before a write.
func (p Product) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, &FieldError{Field: "name", Message: "product name is required"})
	}
	if strings.TrimSpace(p.Category) == "" {
		errs = append(errs, &FieldError{Field: "category", Message: "category is required"})
	}
	if p.Price <= 0 {
		errs = append(errs, &FieldError{Field: "price", Message: "price must be greater than zero"})
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidProduct, errors.Join(errs...))
}

// ParsePrice reads a user-entered price, accepting a decimal comma.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &FieldError{Field: "price", Message: "price is required"}
	}
	value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || value <= 0 {
		return 0, &FieldError{Field: "price", Message: fmt.Sprintf("invalid price %q", raw)}
	}
	return value, nil
}

// SearchResult is the AI search summary for one product name.
type SearchResult struct {
	Benefits          []string `json:"benefits"`
	Contraindications []string `json:"contraindications"`
	Origin            string   `json:"origin"`
	Purpose           string   `json:"purpose"`
}
