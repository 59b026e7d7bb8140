package server

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
)

// RegisterRoutes adds the chat API and its OpenAPI document to container
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("chat").
			To(handler.Chat).
			Doc("Run one guarded conversation turn").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(ChatRequest{}).
			Writes(ChatResponse{}).
			Returns(200, "OK", ChatResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.
		Route(ws.POST("chat_stream").
			To(handler.ChatStream).
			Doc("Run one guarded conversation turn, reporting progress as NDJSON").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Produces("application/x-ndjson", restful.MIME_JSON).
			Reads(ChatRequest{}).
			Writes(StreamEvent{}).
			Returns(200, "OK", StreamEvent{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	container.Add(ws)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}))
}
