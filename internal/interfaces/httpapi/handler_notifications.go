package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

type subscribeRequest struct {
	Subscription *subscription.WebPush      `json:"subscription" validate:"required"`
	Preferences  *subscription.Preferences `json:"preferences"`
}

type preferencesRequest struct {
	Preferences subscription.PreferencesPatch `json:"preferences"`
}

type sendNotificationRequest struct {
	Title string         `json:"title" validate:"max=200"`
	Body  string         `json:"body" validate:"max=1000"`
	Data  map[string]any `json:"data"`
}

type preferencesResponse struct {
	Success     bool                     `json:"success"`
	Preferences subscription.Preferences `json:"preferences"`
}

type vapidKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Subscribe")
	defer span.End()

	userID := pathParam(r, "userID")
	var req subscribeRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: Invalid subscription object", usecase.ErrInvalidInput))
		return
	}

	err := h.notifications.Subscribe(ctx, userID, usecase.SubscribeInput{
		Subscription: *req.Subscription,
		Preferences:  req.Preferences,
	})
	if err != nil {
		h.fail(ctx, w, err, "save push subscription failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Subscription saved successfully"})
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdatePreferences")
	defer span.End()

	userID := pathParam(r, "userID")
	var req preferencesRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	prefs, err := h.notifications.UpdatePreferences(ctx, userID, req.Preferences)
	if err != nil {
		h.fail(ctx, w, err, "update notification preferences failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, preferencesResponse{Success: true, Preferences: prefs})
}

func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SendTestNotification")
	defer span.End()

	userID := pathParam(r, "userID")
	var req sendNotificationRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	err := h.notifications.SendTest(ctx, userID, usecase.TestNotificationInput{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		h.fail(ctx, w, err, "send test notification failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Notification sent successfully"})
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Unsubscribe")
	defer span.End()

	userID := pathParam(r, "userID")
	if err := h.notifications.Unsubscribe(ctx, userID); err != nil {
		h.fail(ctx, w, err, "unsubscribe failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Unsubscribed successfully"})
}

func (h *Handler) GetVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetVAPIDPublicKey")
	defer span.End()

	key, err := h.notifications.VAPIDPublicKey()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, vapidKeyResponse{PublicKey: key})
}
