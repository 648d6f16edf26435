package middleware

import "github.com/danielgtaylor/huma/v2"

// Container accumulates the middleware chain for one handler, so wiring code
// can build per-handler stacks without sharing slices.
type Container struct {
	stack huma.Middlewares
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Add(mw func(huma.Context, func(huma.Context))) {
	c.stack = append(c.stack, mw)
}

// GetAllAndClear hands out the accumulated chain and resets the container for
// the next handler.
func (c *Container) GetAllAndClear() huma.Middlewares {
	stack := c.stack
	c.stack = nil
	return stack
}
