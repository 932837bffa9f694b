package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terraed/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before the handler, a non-nil error stops the request.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the handler, even if the request failed.
type CloserFunc func(ctx context.Context)

type Router struct {
	root   context.Context
	engine *gin.Engine
	inner  gin.IRouter

	befores []MiddlewareFunc
	afters  []CloserFunc
}

// New creates a router whose handlers inherit the logger, configs, database
// and http client of the root context.
func New(root context.Context) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{root: root, engine: engine, inner: engine}
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.inner.GET(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.inner.POST(pattern, wrapHandler(r, http.MethodPost, handler))
}

// Before appends a middleware to the router, it only affects handlers
// registered after the call.
func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func (r *Router) After(closer CloserFunc) {
	r.afters = append(r.afters, closer)
}

// Branch returns a router sharing the same engine, middlewares added to the
// branch are not visible to the parent.
func (r *Router) Branch() *Router {
	return &Router{
		root:    r.root,
		engine:  r.engine,
		inner:   r.inner,
		befores: append([]MiddlewareFunc{}, r.befores...),
		afters:  append([]CloserFunc{}, r.afters...),
	}
}

// Handle mounts a plain http.Handler, middlewares are not applied.
func (r *Router) Handle(method, pattern string, handler http.Handler) {
	r.inner.Handle(method, pattern, gin.WrapH(handler))
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) requestContext(req *http.Request) context.Context {
	ctx := req.Context()
	ctx = xcontext.WithLogger(ctx, xcontext.Logger(r.root))
	ctx = xcontext.WithConfigs(ctx, xcontext.Configs(r.root))
	ctx = xcontext.WithHTTPClient(ctx, xcontext.HTTPClient(r.root))
	if db := xcontext.DB(r.root); db != nil {
		ctx = xcontext.WithDB(ctx, db)
	}

	return xcontext.WithHTTPRequest(ctx, req)
}
