package models

import "time"

type Book struct {
	ID                int64     `yaml:"id" json:"id"`
	Title             string    `yaml:"title" json:"title"`
	Author            string    `yaml:"author" json:"author"`
	Category          string    `yaml:"category" json:"category"`
	TotalQuantity     int64     `yaml:"total_quantity" json:"total_quantity"`
	AvailableQuantity int64     `yaml:"available_quantity" json:"available_quantity"`
	CreatedAt         time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt         time.Time `yaml:"updated_at" json:"updated_at"`
}

// Availability is a point-in-time copy-count snapshot for a book.
type Availability struct {
	BookID    int64 `json:"book_id"`
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
}
