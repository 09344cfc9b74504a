package catalog

import "fmt"

// Category mirrors the category tree returned by the catalog API.
// Subcategories nest recursively.
type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Subcategories []Category `json:"subcategories"`
}

// ItemCreate is the payload for creating a catalog item. A variant-bearing
// product produces one of these per color with the shared fields repeated.
// Optional fields are pointers so absent values encode as JSON null.
type ItemCreate struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	CategoryID  int64    `json:"category_id"`
	Memory      *string  `json:"memory"`
	Color       *string  `json:"color"`
	ImageURLs   []string `json:"image_urls"`
	IsActive    bool     `json:"is_active"`
}

// Item is a stored catalog item as returned by the API.
type Item struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	CategoryID  int64    `json:"category_id"`
	Memory      *string  `json:"memory"`
	Color       *string  `json:"color"`
	ImageURLs   []string `json:"image_urls"`
	IsActive    bool     `json:"is_active"`
}

// ItemUpdate carries fields for a full item update. The API expects the
// complete record, so callers prefetch the item and modify what changed.
type ItemUpdate struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	CategoryID  int64    `json:"category_id"`
	Memory      *string  `json:"memory"`
	Color       *string  `json:"color"`
	ImageURLs   []string `json:"image_urls"`
	IsActive    bool     `json:"is_active"`
}

// APIError carries a non-2xx response so callers can surface the status
// code and body text to the operator unchanged.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog api: status %d: %s", e.Status, e.Body)
}

// Code implements the error-code convention used by handler summaries.
func (e *APIError) Code() string {
	return fmt.Sprintf("API_%d", e.Status)
}
