package device

import "context"

// Directory looks devices up in the inventory service.
type Directory interface {
	// Search returns devices matching term. No match is an empty slice, not an error.
	Search(ctx context.Context, term string) ([]Device, error)
	// ListAll returns at most limit devices, unfiltered.
	ListAll(ctx context.Context, limit int) ([]Device, error)
}
