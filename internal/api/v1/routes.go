// Package v1 provides the REST API handlers for list management and matching.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/extguard/internal/api/common"
	"github.com/stacklok/extguard/internal/service"
)

// Routes holds the v1 handlers
type Routes struct {
	service service.ListService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.ListService) *Routes {
	return &Routes{service: svc}
}

// Router creates the v1 router
func Router(svc service.ListService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/records", routes.listRecords)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", routes.listSources)
		r.Post("/", routes.addSource)
		r.Delete("/{name}", routes.removeSource)
		r.Put("/{name}/enabled", routes.setEnabled)
		r.Post("/{name}/refresh", routes.refreshSource)
		r.Delete("/{name}/cache", routes.clearCache)
	})
	r.Delete("/cache", routes.clearAllCaches)

	r.Post("/refresh", routes.refreshAll)
	r.Post("/bootstrap", routes.bootstrap)

	r.Post("/classify", routes.classify)
	r.Get("/scan", routes.scan)

	return r
}

// listRecords handles GET /v1/records
func (rr *Routes) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := rr.service.LoadAllMaliciousData(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load records", "error", err)
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, RecordsResponse{Count: len(records), Records: records}, http.StatusOK)
}

// listSources handles GET /v1/sources
func (rr *Routes) listSources(w http.ResponseWriter, r *http.Request) {
	infos, err := rr.service.Sources(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list sources", "error", err)
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, infos, http.StatusOK)
}

// addSource handles POST /v1/sources
func (rr *Routes) addSource(w http.ResponseWriter, r *http.Request) {
	var req AddSourceRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := rr.service.AddSource(r.Context(), req.Descriptor())
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusCreated)
}

// removeSource handles DELETE /v1/sources/{name}
func (rr *Routes) removeSource(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rr.service.RemoveSource(r.Context(), name); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setEnabled handles PUT /v1/sources/{name}/enabled
func (rr *Routes) setEnabled(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req SetEnabledRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Enabled == nil {
		common.WriteErrorResponse(w, "enabled is required", http.StatusBadRequest)
		return
	}

	desc, err := rr.service.SetSourceEnabled(r.Context(), name, *req.Enabled)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, desc, http.StatusOK)
}

// refreshSource handles POST /v1/sources/{name}/refresh
func (rr *Routes) refreshSource(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome, err := rr.service.RefreshSource(r.Context(), name)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, outcome, http.StatusOK)
}

// clearCache handles DELETE /v1/sources/{name}/cache
func (rr *Routes) clearCache(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rr.service.ClearCache(r.Context(), name); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearAllCaches handles DELETE /v1/cache
func (rr *Routes) clearAllCaches(w http.ResponseWriter, r *http.Request) {
	if err := rr.service.ClearCache(r.Context(), ""); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// refreshAll handles POST /v1/refresh?force=bool
func (rr *Routes) refreshAll(w http.ResponseWriter, r *http.Request) {
	force, err := common.BoolQueryParam(r, "force")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := rr.service.UpdateAllLists(r.Context(), force)
	if err != nil {
		slog.ErrorContext(r.Context(), "List refresh failed", "error", err)
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusOK)
}

// bootstrap handles POST /v1/bootstrap?reload=bool
func (rr *Routes) bootstrap(w http.ResponseWriter, r *http.Request) {
	reload, err := common.BoolQueryParam(r, "reload")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := rr.service.LoadInitialData(r.Context(), reload)
	if err != nil {
		slog.ErrorContext(r.Context(), "Loading bundled lists failed", "error", err)
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusOK)
}

// classify handles POST /v1/classify
func (rr *Routes) classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := rr.service.Classify(r.Context(), req.Extensions)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, newClassifyResponse(result), http.StatusOK)
}

// scan handles GET /v1/scan
func (rr *Routes) scan(w http.ResponseWriter, r *http.Request) {
	result, err := rr.service.Scan(r.Context())
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSONResponse(w, newClassifyResponse(result), http.StatusOK)
}
