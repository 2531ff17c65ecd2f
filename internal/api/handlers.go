package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"docquery/internal/globalconst"
	"docquery/internal/store"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 50 * 1024 * 1024

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SetRequest is the body of POST /collections/{name}/items.
type SetRequest struct {
	Key        string              `json:"key"`
	Value      jsoniter.RawMessage `json:"value"`
	TTLSeconds int64               `json:"ttl_seconds,omitempty"`
}

// IndexRequest is the body of POST /collections/{name}/indexes.
type IndexRequest struct {
	Field string `json:"field"`
}

// Handlers groups the HTTP handlers.
type Handlers struct {
	CollectionManager *store.CollectionManager
	// AllowedFilters restricts filterable fields per collection. A
	// collection without an entry accepts any field.
	AllowedFilters map[string][]string
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(cm *store.CollectionManager, allowedFilters map[string][]string) *Handlers {
	return &Handlers{
		CollectionManager: cm,
		AllowedFilters:    allowedFilters,
	}
}

// Routes registers every endpoint and wraps the mux with request logging.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections", h.ListCollectionsHandler)
	mux.HandleFunc("POST /collections/{name}", h.CreateCollectionHandler)
	mux.HandleFunc("DELETE /collections/{name}", h.DeleteCollectionHandler)
	mux.HandleFunc("POST /collections/{name}/items", h.SetCollectionItemHandler)
	mux.HandleFunc("GET /collections/{name}/items", h.ListCollectionItemsHandler)
	mux.HandleFunc("GET /collections/{name}/items/{key}", h.GetCollectionItemHandler)
	mux.HandleFunc("DELETE /collections/{name}/items/{key}", h.DeleteCollectionItemHandler)
	mux.HandleFunc("POST /collections/{name}/indexes", h.CreateIndexHandler)
	mux.HandleFunc("GET /collections/{name}/indexes", h.ListIndexesHandler)
	mux.HandleFunc("DELETE /collections/{name}/indexes/{field}", h.DeleteIndexHandler)
	return LogRequest(mux)
}

// collectionName reads and validates the {name} path segment.
func collectionName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("name")
	if !collectionNamePattern.MatchString(name) {
		SendJSONResponse(w, false, "Collection name must be 1-64 letters, digits, '_' or '-'", nil, http.StatusBadRequest)
		return "", false
	}
	return name, true
}

// existingCollection is collectionName plus a 404 for unknown collections.
func (h *Handlers) existingCollection(w http.ResponseWriter, r *http.Request) (string, store.DataStore, bool) {
	name, ok := collectionName(w, r)
	if !ok {
		return "", nil, false
	}
	if !h.CollectionManager.CollectionExists(name) {
		slog.Info("Collection not found", "collection", name)
		SendJSONResponse(w, false, fmt.Sprintf("Collection '%s' not found", name), nil, http.StatusNotFound)
		return "", nil, false
	}
	return name, h.CollectionManager.GetCollection(name), true
}

// ListCollectionsHandler handles GET /collections.
func (h *Handlers) ListCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	SendJSONResponse(w, true, "Collections retrieved successfully", h.CollectionManager.ListCollections(), http.StatusOK)
}

// CreateCollectionHandler handles POST /collections/{name}.
func (h *Handlers) CreateCollectionHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, ok := collectionName(w, r)
	if !ok {
		return
	}
	if h.CollectionManager.CollectionExists(name) {
		SendJSONResponse(w, true, fmt.Sprintf("Collection '%s' already exists", name), nil, http.StatusOK)
		return
	}
	col := h.CollectionManager.GetCollection(name)
	h.CollectionManager.EnqueueSaveTask(name, col)
	SendJSONResponse(w, true, fmt.Sprintf("Collection '%s' created", name), nil, http.StatusCreated)
}

// DeleteCollectionHandler handles DELETE /collections/{name}.
func (h *Handlers) DeleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, ok := collectionName(w, r)
	if !ok {
		return
	}
	if !h.CollectionManager.DeleteCollection(name) {
		SendJSONResponse(w, false, fmt.Sprintf("Collection '%s' not found", name), nil, http.StatusNotFound)
		return
	}
	h.CollectionManager.EnqueueDeleteTask(name)
	SendJSONResponse(w, true, fmt.Sprintf("Collection '%s' deleted", name), nil, http.StatusOK)
}

// SetCollectionItemHandler handles POST /collections/{name}/items. The
// collection is created on first write. The stored document always carries
// its key under _id.
func (h *Handlers) SetCollectionItemHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, ok := collectionName(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SetRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		slog.Info("Bad request: invalid JSON body", "collection", name, "error", err)
		SendJSONResponse(w, false, "Invalid JSON request body or unknown fields", nil, http.StatusBadRequest)
		return
	}

	doc, err := decodeObject(req.Value)
	if err != nil {
		SendJSONResponse(w, false, "'value' field must be a JSON object", nil, http.StatusBadRequest)
		return
	}
	if req.TTLSeconds < 0 {
		SendJSONResponse(w, false, "'ttl_seconds' cannot be negative", nil, http.StatusBadRequest)
		return
	}

	key := req.Key
	if key == "" {
		key = uuid.NewString()
	}
	doc[globalconst.ID] = key
	value, err := json.Marshal(doc)
	if err != nil {
		slog.Error("Failed to encode document", "collection", name, "key", key, "error", err)
		SendJSONResponse(w, false, "Failed to encode document", nil, http.StatusInternalServerError)
		return
	}

	col := h.CollectionManager.GetCollection(name)
	col.Set(key, value, time.Duration(req.TTLSeconds)*time.Second)
	h.CollectionManager.EnqueueSaveTask(name, col)

	SendJSONResponse(w, true, fmt.Sprintf("Document '%s' saved in collection '%s'", key, name),
		map[string]string{globalconst.ID: key}, http.StatusCreated)
}

// decodeObject parses a JSON object, keeping numbers as written.
func decodeObject(raw []byte) (map[string]any, error) {
	var doc map[string]any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("value is null")
	}
	return doc, nil
}

// GetCollectionItemHandler handles GET /collections/{name}/items/{key}.
func (h *Handlers) GetCollectionItemHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	value, found := col.Get(key)
	if !found {
		SendJSONResponse(w, false, fmt.Sprintf("Key '%s' not found in collection '%s'", key, name), nil, http.StatusNotFound)
		return
	}
	SendJSONResponse(w, true, "Document retrieved", jsoniter.RawMessage(value), http.StatusOK)
}

// DeleteCollectionItemHandler handles DELETE /collections/{name}/items/{key}.
func (h *Handlers) DeleteCollectionItemHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if _, found := col.Get(key); !found {
		SendJSONResponse(w, false, fmt.Sprintf("Key '%s' not found in collection '%s'", key, name), nil, http.StatusNotFound)
		return
	}
	col.Delete(key)
	h.CollectionManager.EnqueueSaveTask(name, col)
	SendJSONResponse(w, true, fmt.Sprintf("Key '%s' deleted from collection '%s'", key, name), nil, http.StatusOK)
}

// CreateIndexHandler handles POST /collections/{name}/indexes.
func (h *Handlers) CreateIndexHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req IndexRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Field == "" {
		SendJSONResponse(w, false, "Body must be {\"field\": \"<name>\"}", nil, http.StatusBadRequest)
		return
	}

	if col.HasIndex(req.Field) {
		SendJSONResponse(w, true, fmt.Sprintf("Index on '%s' already exists", req.Field), nil, http.StatusOK)
		return
	}
	col.CreateIndex(req.Field)
	h.CollectionManager.EnqueueSaveTask(name, col)
	SendJSONResponse(w, true, fmt.Sprintf("Index on '%s' created in collection '%s'", req.Field, name), nil, http.StatusCreated)
}

// ListIndexesHandler handles GET /collections/{name}/indexes.
func (h *Handlers) ListIndexesHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	_, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}
	SendJSONResponse(w, true, "Indexes retrieved", col.ListIndexes(), http.StatusOK)
}

// DeleteIndexHandler handles DELETE /collections/{name}/indexes/{field}.
func (h *Handlers) DeleteIndexHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}
	field := r.PathValue("field")
	if !col.HasIndex(field) {
		SendJSONResponse(w, false, fmt.Sprintf("No index on '%s'", field), nil, http.StatusNotFound)
		return
	}
	col.DeleteIndex(field)
	h.CollectionManager.EnqueueSaveTask(name, col)
	SendJSONResponse(w, true, fmt.Sprintf("Index on '%s' deleted from collection '%s'", field, name), nil, http.StatusOK)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogRequest is a middleware for logging incoming HTTP requests.
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
