package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tess-backend/repository"
	"tess-backend/service"

	"github.com/gin-gonic/gin"
)

// DossierHandler serves the administrative dossier endpoints
type DossierHandler struct {
	store      *service.DossierStore
	cleanupAge time.Duration
}

// NewDossierHandler creates a new dossier handler. cleanupAge is used when a
// cleanup request has no older_than parameter.
func NewDossierHandler(store *service.DossierStore, cleanupAge time.Duration) *DossierHandler {
	return &DossierHandler{
		store:      store,
		cleanupAge: cleanupAge,
	}
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status": StatusError,
		"error":  message,
	})
}

const storageUnavailable = "dossier storage unavailable"

// storageError logs the backend failure and answers with a generic message
func storageError(c *gin.Context, op string, err error) {
	slog.Warn("dossier request failed", "op", op, "dossier_id", c.Param("id"), "error", err)
	errorJSON(c, http.StatusInternalServerError, storageUnavailable)
}

// ListDossiers handles GET /api/dossiers
func (h *DossierHandler) ListDossiers(c *gin.Context) {
	ids, err := h.store.List(c.Request.Context())
	if err != nil {
		storageError(c, "list", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      StatusSuccess,
		"dossier_ids": ids,
	})
}

// GetDossier handles GET /api/dossiers/:id
func (h *DossierHandler) GetDossier(c *gin.Context) {
	id := c.Param("id")
	if !service.ValidDossierID(id) {
		errorJSON(c, http.StatusBadRequest, service.ErrInvalidDossierID.Error())
		return
	}

	dossier, err := h.store.Lookup(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDossierNotFound) {
			errorJSON(c, http.StatusNotFound, "dossier not found")
			return
		}
		storageError(c, "get", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  StatusSuccess,
		"dossier": dossier,
	})
}

// DeleteDossier handles DELETE /api/dossiers/:id
func (h *DossierHandler) DeleteDossier(c *gin.Context) {
	id := c.Param("id")
	if !service.ValidDossierID(id) {
		errorJSON(c, http.StatusBadRequest, service.ErrInvalidDossierID.Error())
		return
	}

	if _, err := h.store.Lookup(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrDossierNotFound) {
			errorJSON(c, http.StatusNotFound, "dossier not found")
			return
		}
		storageError(c, "delete", err)
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		storageError(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     StatusSuccess,
		"dossier_id": id,
	})
}

// Cleanup handles POST /api/dossiers/cleanup?older_than=720h
func (h *DossierHandler) Cleanup(c *gin.Context) {
	age := h.cleanupAge
	if raw := c.Query("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			errorJSON(c, http.StatusBadRequest, "older_than must be a duration such as 720h")
			return
		}
		age = parsed
	}

	removed, err := h.store.CleanupOlderThan(c.Request.Context(), age)
	if err != nil {
		storageError(c, "cleanup", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     StatusSuccess,
		"removed":    removed,
		"older_than": age.String(),
	})
}
