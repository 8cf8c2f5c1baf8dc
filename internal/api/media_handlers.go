package api

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/s3"
)

const maxUploadBytes = 32 << 20

// Upload types the bucket accepts, mapped to the stored file extension.
var allowedMediaTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

const presignExpiry = 15 * time.Minute

// requireMedia rejects media requests when no bucket is configured.
func (api *Api) requireMedia(w http.ResponseWriter) bool {
	if api.media == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return false
	}
	return true
}

func (api *Api) UploadMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireMedia(w) {
		return
	}
	user, _ := auth.GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedMediaTypes[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
		return
	}

	var orgID *string
	if v := r.FormValue("organization_id"); v != "" {
		if _, err := database.GetMember(v, user.ID); err != nil {
			writeError(w, http.StatusForbidden, "not a member of that organization")
			return
		}
		orgID = &v
	}

	key := s3.MediaKey(ext)
	if err := api.media.UploadFile(r.Context(), key, file, contentType); err != nil {
		log.Printf("[API] Failed to upload %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	media := &models.Media{
		UserID:         user.ID,
		OrganizationID: orgID,
		FileName:       header.Filename,
		FileKey:        key,
		MimeType:       contentType,
		SizeBytes:      header.Size,
	}
	if err := database.CreateMedia(media); err != nil {
		log.Printf("[API] Failed to record upload %s: %v", key, err)
		if delErr := api.media.DeleteFile(r.Context(), key); delErr != nil {
			log.Printf("[API] Failed to remove orphaned object %s: %v", key, delErr)
		}
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"media": media})
}

func (api *Api) ListMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireMedia(w) {
		return
	}
	user, _ := auth.GetUserFromContext(r.Context())

	var (
		items []*models.Media
		err   error
	)
	if orgID := r.URL.Query().Get("organization_id"); orgID != "" {
		if _, memberErr := database.GetMember(orgID, user.ID); memberErr != nil {
			writeError(w, http.StatusForbidden, "not a member of that organization")
			return
		}
		items, err = database.ListMediaByOrganization(orgID)
	} else {
		items, err = database.ListMediaByUser(user.ID)
	}
	if err != nil {
		log.Printf("[API] Failed to list media for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list media")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"media": items})
}

func (api *Api) MediaURLHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireMedia(w) {
		return
	}
	user, _ := auth.GetUserFromContext(r.Context())
	mediaID := chi.URLParam(r, "mediaID")

	media, ok := api.loadMediaForRead(w, user, mediaID)
	if !ok {
		return
	}

	url, err := api.media.PresignGet(r.Context(), media.FileKey, presignExpiry)
	if err != nil {
		log.Printf("[API] Failed to presign %s: %v", media.FileKey, err)
		writeError(w, http.StatusInternalServerError, "failed to generate URL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_in": int(presignExpiry.Seconds()),
	})
}

func (api *Api) DeleteMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !api.requireMedia(w) {
		return
	}
	user, _ := auth.GetUserFromContext(r.Context())
	mediaID := chi.URLParam(r, "mediaID")

	media, err := database.GetMediaByID(mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if err != nil {
		log.Printf("[API] Failed to load media %s: %v", mediaID, err)
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}

	if !api.canDeleteMedia(user, media) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	if err := api.media.DeleteFile(r.Context(), media.FileKey); err != nil {
		log.Printf("[API] Failed to delete object %s: %v", media.FileKey, err)
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	if err := database.DeleteMedia(media.ID); err != nil {
		log.Printf("[API] Failed to delete media row %s: %v", media.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// loadMediaForRead fetches a media row and checks read access: the owner, or
// any member of the organization the file belongs to. Missing and forbidden
// collapse into the same 404.
func (api *Api) loadMediaForRead(w http.ResponseWriter, user *models.User, mediaID string) (*models.Media, bool) {
	media, err := database.GetMediaByID(mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "media not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[API] Failed to load media %s: %v", mediaID, err)
		writeError(w, http.StatusInternalServerError, "request failed")
		return nil, false
	}

	if media.UserID == user.ID {
		return media, true
	}
	if media.OrganizationID != nil {
		if _, err := database.GetMember(*media.OrganizationID, user.ID); err == nil {
			return media, true
		}
	}

	writeError(w, http.StatusNotFound, "media not found")
	return nil, false
}

// canDeleteMedia allows the uploader and organization admins.
func (api *Api) canDeleteMedia(user *models.User, media *models.Media) bool {
	if media.UserID == user.ID {
		return true
	}
	if media.OrganizationID != nil {
		if member, err := database.GetMember(*media.OrganizationID, user.ID); err == nil {
			return member.Role.CanManage()
		}
	}
	return false
}
