package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/api/middleware"
	"github.com/relaydrop/relaydrop-backend/api/responses"
	"github.com/relaydrop/relaydrop-backend/api/validators"
	internalorders "github.com/relaydrop/relaydrop-backend/internal/orders"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

const maxProofUploadBytes = 10 << 20

// ProofUploader stores a proof photo and returns its public URL.
type ProofUploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

type uploadProofRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// ListDriverOrders returns the driver's work queue: unclaimed ready orders
// plus the caller's own in-flight assignments.
func ListDriverOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListDriverOrders(r.Context(), internalorders.ListInput{
			ActorID: middleware.ActorIDFromContext(r.Context()),
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateDriverOrderStatus accepts, picks up or delivers an order.
func UpdateDriverOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		view, err := svc.DriverUpdateStatus(r.Context(), internalorders.DriverStatusInput{
			OrderID:  orderID,
			DriverID: middleware.ActorIDFromContext(r.Context()),
			Target:   target,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UploadProof records one proof-of-delivery photo. JSON bodies reference an
// already-hosted image; multipart bodies are stored through the uploader first.
func UploadProof(svc internalorders.Service, uploader ProofUploader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		imageURL, err := proofImageURL(r, uploader, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proof, err := svc.UploadProof(r.Context(), internalorders.UploadProofInput{
			OrderID:  orderID,
			DriverID: middleware.ActorIDFromContext(r.Context()),
			ImageURL: imageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":        proof.ID,
			"order_id":  proof.OrderID,
			"image_url": proof.ImageURL,
		})
	}
}

func proofImageURL(r *http.Request, uploader ProofUploader, orderID uuid.UUID) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var payload uploadProofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return "", err
		}
		return strings.TrimSpace(payload.ImageURL), nil
	}

	if uploader == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "file storage is not configured")
	}

	if err := r.ParseMultipartForm(maxProofUploadBytes); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required")
	}
	defer file.Close()

	fileType := header.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("proofs/%s/%s%s", orderID, uuid.NewString(), path.Ext(header.Filename))
	url, err := uploader.Upload(r.Context(), objectName, fileType, file)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store proof image")
	}
	return url, nil
}
