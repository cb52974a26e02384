package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gateway/internal/search"
	"github.com/gogotex/gateway/pkg/logger"
)

const (
	detailIndexExists     = "index already exists"
	detailCreateTimedOut  = "index creation timed out but index exists"
	detailBackendTimeout  = "elasticsearch timeout"
	detailMissingQuery    = "query parameter q is required"
	detailMissingProps    = `mapping must contain "properties"`
	detailBodyNotAnObject = "request body must be a JSON object"
	detailTrailingData    = "request body must hold a single JSON value"
)

// SearchHandler forwards the /es routes to a search engine, one backend call
// per request (index creation may add a single existence check).
type SearchHandler struct {
	engine search.Engine
}

func NewSearchHandler(engine search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Register routes under the given group (normally /es)
func (h *SearchHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/index", h.ListIndices)
	rg.POST("/index/:name", h.CreateIndex)
	rg.POST("/index/:name/doc", h.IndexDocument)
	rg.GET("/index/:name/search", h.Search)
	rg.PUT("/index/:name/settings", h.PutSettings)
	rg.PUT("/index/:name/mapping", h.PutMapping)
}

// createIndexRequest is the optional body of POST /es/index/:name
type createIndexRequest struct {
	Settings map[string]any `json:"settings"`
	Mappings map[string]any `json:"mappings"`
}

// CreateIndex creates the index unless it already exists. A timeout is
// followed by one existence check, since the create may have landed anyway.
func (h *SearchHandler) CreateIndex(c *gin.Context) {
	name := c.Param("name")

	var req createIndexRequest
	if !bindBody(c, &req, true) {
		return
	}

	ctx := c.Request.Context()
	exists, err := h.engine.IndexExists(ctx, name)
	if err != nil {
		h.fail(c, "exists", name, err)
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name, "detail": detailIndexExists})
		return
	}

	err = h.engine.CreateIndex(ctx, name, req.Settings, req.Mappings)
	switch {
	case err == nil:
		logger.Infof("created index %s", name)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name})
	case errors.Is(err, search.ErrIndexExists):
		c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name, "detail": detailIndexExists})
	case errors.Is(err, search.ErrTimeout):
		logger.Warnf("create index %s timed out, checking whether it landed: %v", name, err)
		ok, xerr := h.engine.IndexExists(ctx, name)
		if xerr == nil && ok {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name, "detail": detailCreateTimedOut})
			return
		}
		if xerr != nil {
			logger.Warnf("existence check after create timeout for %s failed: %v", name, xerr)
		}
		h.fail(c, "create_index", name, err)
	default:
		h.fail(c, "create_index", name, err)
	}
}

// ListIndices returns every index name, sorted ascending.
func (h *SearchHandler) ListIndices(c *gin.Context) {
	names, err := h.engine.ListIndices(c.Request.Context())
	if err != nil {
		h.fail(c, "list_indices", "", err)
		return
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "indices": names})
}

// IndexDocument stores the request body as one document.
func (h *SearchHandler) IndexDocument(c *gin.Context) {
	name := c.Param("name")
	doc, ok := bindObject(c)
	if !ok {
		return
	}
	res, err := h.engine.IndexDocument(c.Request.Context(), name, doc)
	if err != nil {
		h.fail(c, "index_document", name, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": res.Result, "id": res.ID})
}

// Search runs the q query-string query and returns hit sources only.
func (h *SearchHandler) Search(c *gin.Context) {
	name := c.Param("name")
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		badRequest(c, detailMissingQuery)
		return
	}
	hits, err := h.engine.Search(c.Request.Context(), name, q)
	if err != nil {
		h.fail(c, "search", name, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "hits": hits})
}

func (h *SearchHandler) PutSettings(c *gin.Context) {
	name := c.Param("name")
	settings, ok := bindObject(c)
	if !ok {
		return
	}
	if err := h.engine.PutSettings(c.Request.Context(), name, settings); err != nil {
		h.fail(c, "put_settings", name, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name})
}

// PutMapping rejects a body without "properties" before calling the backend.
func (h *SearchHandler) PutMapping(c *gin.Context) {
	name := c.Param("name")
	mapping, ok := bindObject(c)
	if !ok {
		return
	}
	if _, ok := mapping["properties"]; !ok {
		badRequest(c, detailMissingProps)
		return
	}
	if err := h.engine.PutMapping(c.Request.Context(), name, mapping); err != nil {
		h.fail(c, "put_mapping", name, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "index": name})
}

// fail logs the backend error and maps it: timeout -> 504, anything else -> 502.
func (h *SearchHandler) fail(c *gin.Context, op, index string, err error) {
	log := logger.Component("search")
	log.Error().Err(err).Str("operation", op).Str("index", index).Msg("elasticsearch call failed")
	if errors.Is(err, search.ErrTimeout) {
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"detail": detailBackendTimeout})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"detail": fmt.Sprintf("elasticsearch error: %v", err)})
}

// bindObject decodes a required JSON object body, answering 400 otherwise.
func bindObject(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if !bindBody(c, &body, false) {
		return nil, false
	}
	if body == nil {
		badRequest(c, detailBodyNotAnObject)
		return nil, false
	}
	return body, true
}

// bindBody decodes the request body into v with numbers kept as json.Number,
// so documents and index bodies reach the backend digit for digit. An empty
// body is accepted only when optional is set.
func bindBody(c *gin.Context, v any, optional bool) bool {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, err.Error())
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if optional {
			return true
		}
		badRequest(c, detailBodyNotAnObject)
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			badRequest(c, fmt.Sprintf("field %q must be a JSON %s", typeErr.Field, jsonKind(typeErr.Type.Kind())))
			return false
		}
		badRequest(c, detailBodyNotAnObject)
		return false
	}
	if dec.More() {
		badRequest(c, detailTrailingData)
		return false
	}
	return true
}

func jsonKind(k reflect.Kind) string {
	switch k {
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	}
	return "number"
}

func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": detail})
}
