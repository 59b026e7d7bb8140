package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"

	"github.com/run-bigpig/agent-guard/pkg/logging"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// HandleError writes err as an ErrorResponse
func HandleError(resp *restful.Response, err error, status int) {
	_ = resp.WriteHeaderAndEntity(status, ErrorResponse{
		Error: err.Error(),
		Code:  status,
	})
}

// requestLogger logs every request once it has been served
func requestLogger(logger logging.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)
		logger.Info(req.Request.Context(), "HTTP request", map[string]interface{}{
			"method":   req.Request.Method,
			"path":     req.Request.URL.Path,
			"status":   resp.StatusCode(),
			"duration": time.Since(start).String(),
		})
	}
}

// recoverPanic turns a panicking handler into a 500
func recoverPanic(logger logging.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(req.Request.Context(), "Handler panicked", map[string]interface{}{
					"panic": fmt.Sprintf("%v", r),
					"path":  req.Request.URL.Path,
				})
				HandleError(resp, fmt.Errorf("internal server error"), http.StatusInternalServerError)
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}
