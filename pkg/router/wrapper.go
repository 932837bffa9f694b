package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terraed/backend/pkg/errorx"
	"github.com/terraed/backend/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	befores := append([]MiddlewareFunc{}, router.befores...)
	afters := append([]CloserFunc{}, router.afters...)

	return func(c *gin.Context) {
		ctx := router.requestContext(c.Request)

		resp, err := func() (*Response, error) {
			for _, before := range befores {
				next, err := before(ctx)
				if err != nil {
					return nil, err
				}
				ctx = next
			}

			var req Request
			var err error
			switch method {
			case http.MethodGet:
				err = c.ShouldBindQuery(&req)
			case http.MethodPost:
				err = c.ShouldBindJSON(&req)
			default:
				xcontext.Logger(ctx).Errorf("Unsupported method %s", method)
				return nil, errorx.Unknown
			}
			if err != nil {
				return nil, errorx.New(errorx.BadRequest, "Invalid request: %v", err)
			}

			return handler(ctx, &req)
		}()

		if err != nil {
			ctx = xcontext.WithError(ctx, err)
			errResp := newErrorResponse(err)
			c.JSON(httpStatus(errResp.Code), errResp)
		} else {
			c.JSON(http.StatusOK, newResponse(resp))
		}

		for _, after := range afters {
			after(ctx)
		}
	}
}

