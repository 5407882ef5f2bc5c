package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler receives every error returned while routing a message.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

type route func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error

type WSRouter struct {
	mu          sync.RWMutex
	routes      map[string]route
	middlewares []Middleware
	validate    func(any) error
	onError     ErrorHandler
}

type Option func(*WSRouter)

// WithValidator runs validate on each decoded payload before the handler.
func WithValidator(validate func(any) error) Option {
	return func(r *WSRouter) {
		r.validate = validate
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(r *WSRouter) {
		r.onError = h
	}
}

func New(opts ...Option) *WSRouter {
	r := &WSRouter{
		routes: make(map[string]route),
		onError: func(_ context.Context, conn *websocket.Conn, err error) {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Use appends middlewares applied to every route, outermost first.
func (r *WSRouter) Use(mws ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers a typed handler for messageType.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	final := func(ctx context.Context, conn *websocket.Conn, payload any) error {
		return handler(ctx, conn, payload.(T))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error {
		var payload T
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		if r.validate != nil {
			if err := r.validate(payload); err != nil {
				return err
			}
		}

		return r.chain(final)(ctx, conn, payload)
	}
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// Dispatch routes a single message and reports the handler error.
func (r *WSRouter) Dispatch(ctx context.Context, conn *websocket.Conn, messageType string, raw json.RawMessage) error {
	r.mu.RLock()
	handler, exists := r.routes[messageType]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}

	return handler(context.WithValue(ctx, messageTypeKey, messageType), conn, raw)
}

// ServeConn reads messages until the connection fails. Handler errors go to
// the error handler and do not stop the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				r.onError(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
				continue
			}
			return err
		}

		if err := r.Dispatch(ctx, conn, msg.Type, msg.Payload); err != nil {
			r.onError(context.WithValue(ctx, messageTypeKey, msg.Type), conn, err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
