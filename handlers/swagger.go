package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the gateway.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gateway - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gateway", "version": "v0.1.0" },
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "{status: ok}" } } } },
    "/print": { "get": { "summary": "Emit one log line", "responses": { "200": { "description": "{status: ok}" } } } },
    "/ready": { "get": { "summary": "Readiness check (Redis + Elasticsearch)", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/point": { "get": { "summary": "Increment the points counter", "responses": { "200": { "description": "{status: ok, points} or {status: error, detail}" } } } },
    "/es/index": { "get": { "summary": "List index names, sorted", "responses": { "200": { "description": "indices" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } } } },
    "/es/index/{name}": {
      "post": {
        "summary": "Create an index if absent",
        "parameters": [{ "name": "name", "in": "path", "required": true, "schema": { "type": "string" } }],
        "requestBody": { "required": false, "content": { "application/json": { "schema": { "type": "object", "properties": { "settings": { "type": "object" }, "mappings": { "type": "object" } } } } } },
        "responses": { "200": { "description": "created or already exists" }, "400": { "description": "invalid body" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } }
      }
    },
    "/es/index/{name}/doc": {
      "post": {
        "summary": "Index one document",
        "parameters": [{ "name": "name", "in": "path", "required": true, "schema": { "type": "string" } }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object" } } } },
        "responses": { "200": { "description": "{status, result, id}" }, "400": { "description": "invalid body" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } }
      }
    },
    "/es/index/{name}/search": {
      "get": {
        "summary": "Query-string search, returns hit sources",
        "parameters": [
          { "name": "name", "in": "path", "required": true, "schema": { "type": "string" } },
          { "name": "q", "in": "query", "required": true, "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "hits" }, "400": { "description": "missing q" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } }
      }
    },
    "/es/index/{name}/settings": {
      "put": {
        "summary": "Update index settings",
        "parameters": [{ "name": "name", "in": "path", "required": true, "schema": { "type": "string" } }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object" } } } },
        "responses": { "200": { "description": "updated" }, "400": { "description": "invalid body" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } }
      }
    },
    "/es/index/{name}/mapping": {
      "put": {
        "summary": "Update index field mapping",
        "parameters": [{ "name": "name", "in": "path", "required": true, "schema": { "type": "string" } }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["properties"], "properties": { "properties": { "type": "object" } } } } } },
        "responses": { "200": { "description": "updated" }, "400": { "description": "missing properties" }, "502": { "description": "backend error" }, "504": { "description": "backend timeout" } }
      }
    },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
