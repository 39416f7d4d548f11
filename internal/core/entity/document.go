package entity

import (
	"time"
)

// Document is the base type for numbered business documents (PO, GRN).
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document dated now.
func NewDocument(now time.Time) Document {
	return Document{
		BaseDocument: NewBaseDocument(now),
		Date:         now,
	}
}
