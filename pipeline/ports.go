package pipeline

import "context"

// Saver persists an encoded certificate under name.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Previewer displays composed markup to the user.
type Previewer interface {
	Preview(ctx context.Context, name string, markup []byte) error
}
