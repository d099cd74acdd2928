package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/assets"
	apierrors "github.com/pribylovaa/session-service/internal/errors"
	"github.com/pribylovaa/session-service/internal/models"
)

// UpdateAccountDetails — PATCH /update-account-details (авторизованный).
func (h *Handlers) UpdateAccountDetails(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in UpdateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	updated, err := h.svc.UpdateAccountDetails(r.Context(), user.ID, in.FullName, in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "account details updated successfully", userFromModel(*updated))
}

// UpdateAvatar — PATCH /update-user-avatar (авторизованный, multipart avatar).
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.svc.UpdateAvatar, "avatar image updated successfully")
}

// UpdateCoverImage — PATCH /update-user-cover-image (авторизованный, multipart coverImage).
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.svc.UpdateCoverImage, "cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID uuid.UUID, file *assets.File) (*models.PublicUser, error)

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, msg string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidMultipart)
		return
	}

	file, closeFile, err := formFile(r, field)
	defer closeFile()
	if err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidMultipart)
		return
	}

	updated, err := update(r.Context(), user.ID, file)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	respond(w, http.StatusOK, msg, userFromModel(*updated))
}
