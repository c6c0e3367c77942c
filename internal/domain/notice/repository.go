// internal/domain/notice/repository.go
package notice

import "context"

// Repository fetches the current set of notices for a date window.
type Repository interface {
	Fetch(ctx context.Context, window Window) ([]Record, error)
}
