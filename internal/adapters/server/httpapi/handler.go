// Package httpapi provides the REST HTTP adapter over the catalogue service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oriolvila/sudscat/internal/app"
	"github.com/oriolvila/sudscat/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// roleHeader carries the acting role, supplied by the UI collaborator.
const roleHeader = "X-Catalogue-Role"

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	service     *app.Service
	defaultRole domain.Role
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the catalogue service.
func NewHandler(service *app.Service, defaultRole domain.Role) *Handler {
	if defaultRole == "" {
		defaultRole = domain.RoleViewer
	}
	return &Handler{service: service, defaultRole: defaultRole}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	segments := strings.Split(path, "/")

	switch {
	case path == "types":
		h.routeMethods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  h.handleListTypes,
			http.MethodPost: h.handleCreateType,
		})
	case len(segments) == 2 && segments[0] == "types":
		h.routeTypeItem(w, r, segments[1])
	case len(segments) == 3 && segments[0] == "types" && segments[2] == "move":
		h.requirePost(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleMoveType(w, r, segments[1])
		})
	case len(segments) == 3 && segments[0] == "types" && segments[2] == "activities":
		h.requireGet(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleListActivities(w, r, segments[1])
		})
	case len(segments) == 3 && segments[0] == "types" && segments[2] == "display_order":
		h.requireGet(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleDisplayOrder(w, r, segments[1])
		})
	case path == "catalog":
		h.requireGet(w, r, h.handleCatalog)
	case path == "categories":
		h.routeMethods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  h.handleListCategories,
			http.MethodPost: h.handleCreateCategory,
		})
	case path == "categories/move":
		h.requirePost(w, r, h.handleMoveCategory)
	case path == "categories/rename":
		h.requirePost(w, r, h.handleRenameCategory)
	case path == "categories/delete":
		h.requirePost(w, r, h.handleDeleteCategory)
	case path == "definitions":
		h.routeMethods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  h.handleListDefinitions,
			http.MethodPost: h.handleAddDefinition,
		})
	case path == "definitions/move":
		h.requirePost(w, r, h.handleMoveDefinition)
	case path == "definitions/rename":
		h.requirePost(w, r, h.handleRenameDefinition)
	case path == "definitions/delete":
		h.requirePost(w, r, h.handleDeleteDefinition)
	case path == "activities":
		h.requirePost(w, r, h.handleCreateActivity)
	case len(segments) == 2 && segments[0] == "activities":
		h.routeActivityItem(w, r, segments[1])
	case len(segments) == 3 && segments[0] == "activities" && segments[2] == "dependents":
		h.requirePut(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleSetDependents(w, r, segments[1])
		})
	case len(segments) == 3 && segments[0] == "activities" && segments[2] == "validation":
		h.requirePut(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleSetValidation(w, r, segments[1])
		})
	case path == "contracts":
		h.routeMethods(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  h.handleListContracts,
			http.MethodPost: h.handleCreateContract,
		})
	case len(segments) == 2 && segments[0] == "contracts":
		h.routeContractItem(w, r, segments[1])
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// role resolves the acting role from the request header.
func (h *Handler) role(r *http.Request) (domain.Role, error) {
	raw := strings.TrimSpace(r.Header.Get(roleHeader))
	if raw == "" {
		return h.defaultRole, nil
	}
	return domain.ParseRole(raw)
}

// routeMethods dispatches by method with a structured 405 fallback.
func (h *Handler) routeMethods(w http.ResponseWriter, r *http.Request, routes map[string]http.HandlerFunc) {
	if handler, ok := routes[r.Method]; ok {
		handler(w, r)
		return
	}
	allowed := make([]string, 0, len(routes))
	for method := range routes {
		allowed = append(allowed, method)
	}
	writeMethodNotAllowed(w, allowed...)
}

func (h *Handler) requireGet(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	h.routeMethods(w, r, map[string]http.HandlerFunc{http.MethodGet: next})
}

func (h *Handler) requirePost(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	h.routeMethods(w, r, map[string]http.HandlerFunc{http.MethodPost: next})
}

func (h *Handler) requirePut(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	h.routeMethods(w, r, map[string]http.HandlerFunc{http.MethodPut: next})
}

// routeTypeItem serves PUT/DELETE `/types/{id}`.
func (h *Handler) routeTypeItem(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateType(w, r, id)
	case http.MethodDelete:
		h.handleDeleteType(w, r, id)
	default:
		writeMethodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

// routeActivityItem serves PUT/DELETE `/activities/{id}`.
func (h *Handler) routeActivityItem(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateActivity(w, r, id)
	case http.MethodDelete:
		h.handleDeleteActivity(w, r, id)
	default:
		writeMethodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

// routeContractItem serves PUT/DELETE `/contracts/{id}`.
func (h *Handler) routeContractItem(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateContract(w, r, id)
	case http.MethodDelete:
		h.handleDeleteContract(w, r, id)
	default:
		writeMethodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

type sudsTypePayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	LocationTags []string `json:"location_tags"`
	Order        int      `json:"order"`
}

type sudsTypeRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	LocationTags []string `json:"location_tags"`
}

type moveRequest struct {
	Direction string `json:"direction"`
	Category  string `json:"category,omitempty"`
	Name      string `json:"name,omitempty"`
}

type activityPayload struct {
	ID               string   `json:"id"`
	SudsTypeID       string   `json:"suds_type_id"`
	Category         string   `json:"category"`
	Name             string   `json:"name"`
	Applies          bool     `json:"applies"`
	Status           string   `json:"status"`
	Comment          string   `json:"comment"`
	Frequency        string   `json:"frequency"`
	Contracts        []string `json:"contracts"`
	ValidationStatus string   `json:"validation_status"`
	ValidatorComment string   `json:"validator_comment"`
	DependsOn        []string `json:"depends_on"`
}

type displayEntryPayload struct {
	Activity    activityPayload `json:"activity"`
	IsDependent bool            `json:"is_dependent"`
}

type catalogEntryPayload struct {
	ID         string `json:"id"`
	SudsTypeID string `json:"suds_type_id"`
	Category   string `json:"category"`
	Name       string `json:"name"`
}

type contractPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
}

func toContractPayload(c domain.Contract) contractPayload {
	return contractPayload{
		ID:          c.ID,
		Name:        c.Name,
		Owner:       c.Owner,
		Description: c.Description,
	}
}

func toSudsTypePayload(t domain.SudsType) sudsTypePayload {
	tags := make([]string, 0, len(t.LocationTags))
	for _, tag := range t.LocationTags {
		tags = append(tags, string(tag))
	}
	return sudsTypePayload{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		LocationTags: tags,
		Order:        t.Order,
	}
}

func toActivityPayload(a domain.Activity) activityPayload {
	return activityPayload{
		ID:               a.ID,
		SudsTypeID:       a.SudsTypeID,
		Category:         a.Category,
		Name:             a.Name,
		Applies:          a.Applies,
		Status:           string(a.Status),
		Comment:          a.Comment,
		Frequency:        a.Frequency,
		Contracts:        a.Contracts,
		ValidationStatus: string(a.ValidationStatus),
		ValidatorComment: a.ValidatorComment,
		DependsOn:        a.DependsOn,
	}
}

func toLocationTags(raw []string) []domain.LocationTag {
	out := make([]domain.LocationTag, 0, len(raw))
	for _, tag := range raw {
		out = append(out, domain.LocationTag(tag))
	}
	return out
}

// handleListTypes serves GET `/types`.
func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListSudsTypes(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]sudsTypePayload, 0, len(types))
	for _, t := range types {
		out = append(out, toSudsTypePayload(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": out})
}

// handleCreateType serves POST `/types`.
func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req sudsTypeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	created, err := h.service.CreateSudsType(r.Context(), role, req.Name, req.Description, toLocationTags(req.LocationTags))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSudsTypePayload(created))
}

// handleUpdateType serves PUT `/types/{id}`.
func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req sudsTypeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	updated, err := h.service.UpdateSudsType(r.Context(), role, id, req.Name, req.Description, toLocationTags(req.LocationTags))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSudsTypePayload(updated))
}

// handleDeleteType serves DELETE `/types/{id}`.
func (h *Handler) handleDeleteType(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.DeleteSudsType(r.Context(), role, id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleMoveType serves POST `/types/{id}/move`.
func (h *Handler) handleMoveType(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req moveRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	current, err := h.service.ListSudsTypes(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.MoveSudsType(r.Context(), role, id, app.Direction(req.Direction), current); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": id})
}

// handleListActivities serves GET `/types/{id}/activities`.
func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request, typeID string) {
	records, err := h.service.ListActivities(r.Context(), typeID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]activityPayload, 0, len(records))
	for _, rec := range records {
		out = append(out, toActivityPayload(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": out})
}

// handleDisplayOrder serves GET `/types/{id}/display_order`.
func (h *Handler) handleDisplayOrder(w http.ResponseWriter, r *http.Request, typeID string) {
	entries, err := h.service.DisplayOrder(r.Context(), typeID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]displayEntryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, displayEntryPayload{
			Activity:    toActivityPayload(entry.Activity),
			IsDependent: entry.IsDependent,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleCatalog serves GET `/catalog`.
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Catalog(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]catalogEntryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, catalogEntryPayload{
			ID:         entry.ID,
			SudsTypeID: entry.SudsTypeID,
			Category:   entry.Category,
			Name:       entry.Name,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleListCategories serves GET `/categories`.
func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// handleCreateCategory serves POST `/categories`.
func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.CreateCategory(r.Context(), role, req.Name); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": req.Name})
}

// handleMoveCategory serves POST `/categories/move`.
func (h *Handler) handleMoveCategory(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req moveRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	current, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.MoveCategory(r.Context(), role, req.Name, app.Direction(req.Direction), current); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": req.Name})
}

// handleRenameCategory serves POST `/categories/rename`.
func (h *Handler) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.RenameCategory(r.Context(), role, req.OldName, req.NewName); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"renamed": req.NewName})
}

// handleDeleteCategory serves POST `/categories/delete`.
func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), role, req.Name); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": req.Name})
}

// handleListDefinitions serves GET `/definitions`.
func (h *Handler) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	definitions, err := h.service.ListDefinitions(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": definitions})
}

// handleAddDefinition serves POST `/definitions`.
func (h *Handler) handleAddDefinition(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	added, err := h.service.AddDefinition(r.Context(), role, req.Category, req.Name)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": added})
}

// handleMoveDefinition serves POST `/definitions/move`.
func (h *Handler) handleMoveDefinition(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req moveRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	definitions, err := h.service.ListDefinitions(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.MoveActivityDefinition(r.Context(), role, req.Category, req.Name, app.Direction(req.Direction), definitions); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": req.Name})
}

// handleRenameDefinition serves POST `/definitions/rename`.
func (h *Handler) handleRenameDefinition(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Category string `json:"category"`
		OldName  string `json:"old_name"`
		NewName  string `json:"new_name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	renamed, err := h.service.RenameDefinition(r.Context(), role, req.Category, req.OldName, req.NewName)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"renamed": renamed})
}

// handleDeleteDefinition serves POST `/definitions/delete`.
func (h *Handler) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.DeleteDefinition(r.Context(), role, req.Category, req.Name); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": req.Name})
}

type activityRequest struct {
	SudsTypeID string   `json:"suds_type_id,omitempty"`
	Category   string   `json:"category,omitempty"`
	Name       string   `json:"name,omitempty"`
	Applies    bool     `json:"applies"`
	Status     string   `json:"status"`
	Comment    string   `json:"comment"`
	Frequency  string   `json:"frequency"`
	Contracts  []string `json:"contracts"`
}

// handleCreateActivity serves POST `/activities`.
func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req activityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	created, err := h.service.CreateActivity(r.Context(), role, app.CreateActivityInput{
		SudsTypeID: req.SudsTypeID,
		Category:   req.Category,
		Name:       req.Name,
		Applies:    req.Applies,
		Status:     domain.ActivityStatus(req.Status),
		Comment:    req.Comment,
		Frequency:  req.Frequency,
		Contracts:  req.Contracts,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityPayload(created))
}

// handleUpdateActivity serves PUT `/activities/{id}`.
func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req activityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	updated, err := h.service.UpdateActivity(r.Context(), role, app.UpdateActivityInput{
		ActivityID: id,
		Applies:    req.Applies,
		Status:     domain.ActivityStatus(req.Status),
		Comment:    req.Comment,
		Frequency:  req.Frequency,
		Contracts:  req.Contracts,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityPayload(updated))
}

// handleDeleteActivity serves DELETE `/activities/{id}`.
func (h *Handler) handleDeleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.DeleteActivity(r.Context(), role, id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleSetDependents serves PUT `/activities/{id}/dependents`.
func (h *Handler) handleSetDependents(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		DependentIDs []string `json:"dependent_ids"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	updated, err := h.service.SetDependents(r.Context(), role, id, req.DependentIDs)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityPayload(updated))
}

// handleSetValidation serves PUT `/activities/{id}/validation`.
func (h *Handler) handleSetValidation(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	updated, err := h.service.SetValidation(r.Context(), role, id, domain.ValidationStatus(req.Status), req.Comment)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityPayload(updated))
}

type contractRequest struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
}

// handleListContracts serves GET `/contracts`.
func (h *Handler) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.service.ListContracts(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]contractPayload, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, toContractPayload(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": out})
}

// handleCreateContract serves POST `/contracts`.
func (h *Handler) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req contractRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	created, err := h.service.CreateContract(r.Context(), role, req.Name, req.Owner, req.Description)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractPayload(created))
}

// handleUpdateContract serves PUT `/contracts/{id}`.
func (h *Handler) handleUpdateContract(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	var req contractRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	updated, err := h.service.UpdateContract(r.Context(), role, id, req.Name, req.Owner, req.Description)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractPayload(updated))
}

// handleDeleteContract serves DELETE `/contracts/{id}`.
func (h *Handler) handleDeleteContract(w http.ResponseWriter, r *http.Request, id string) {
	role, err := h.role(r)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.service.DeleteContract(r.Context(), role, id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// errInvalidRequest marks malformed request bodies.
var errInvalidRequest = errors.New("invalid request")

// normalizePath trims surrounding slashes from subrouter paths.
func normalizePath(path string) string {
	return strings.Trim(path, "/")
}

// writeErrorFrom maps service errors onto structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, APIError{
			Code:    "forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrUnknownCategory):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrDuplicateName):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "duplicate_name",
			Message: err.Error(),
		})
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, app.ErrCrossTypeDependent),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidValidation),
		errors.Is(err, domain.ErrInvalidTag),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidDirection):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
