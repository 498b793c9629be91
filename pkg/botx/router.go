package botx

import "context"

// Router is a multiplexer of handlers by command.
type Router struct {
	notFound    Handler
	handlers    map[string]Handler
	middlewares []Middleware
}

// NewRouter returns a multiplexer for handlers.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
		notFound: NotFound,
	}
}

// Add adds a handler for the command, e.g. "/feeds".
func (r *Router) Add(cmd string, h Handler) {
	r.handlers[cmd] = h
}

// Use applies middleware to all handlers.
func (r *Router) Use(mvs ...Middleware) *Router {
	r.middlewares = append(r.middlewares, mvs...)
	return r
}

// Group groups handlers, middlewares of the group are applied
// only to handlers of the group.
func (r *Router) Group(f func(rtr *Router)) {
	nested := NewRouter()
	f(nested)

	for cmd, h := range nested.handlers {
		r.Add(cmd, wrap(h, nested.middlewares))
	}
}

// NotFound sets a handler for requests that match no command.
func (r *Router) NotFound(h Handler) {
	r.notFound = h
}

// Handle handles request.
func (r *Router) Handle(ctx context.Context, req Request) ([]Response, error) {
	if req.Text == "" {
		return nil, nil
	}

	h, ok := r.handlers[req.Command()]
	if !ok {
		h = r.notFound
	}

	return wrap(h, r.middlewares)(ctx, req)
}

func wrap(h Handler, mvs []Middleware) Handler {
	for i := len(mvs) - 1; i >= 0; i-- {
		h = mvs[i](h)
	}
	return h
}
