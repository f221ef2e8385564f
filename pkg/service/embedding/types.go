package embedding

import "context"

// Service turns text into a fixed-dimension vector
type Service interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
