package api

import (
	"net/http"
	"strings"

	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
)

type OnboardingInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type SupportMessageInput struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type SupportStatusInput struct {
	Status domain.SupportStatus `json:"status" validate:"required,oneof=PENDING SOLVED CLOSED"`
}

// --- Account Handlers ---

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	profile, err := h.accountStore.GetProfile(r.Context(), user.ID, user.Email)
	if err != nil {
		respondWithStoreError(w, "GetProfile", err, "Failed to load profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// CompleteOnboarding marks the caller's onboarding as done, creating the
// profile first if this is the user's first request.
func (h *HTTPHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var input OnboardingInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	user := currentUser(r)

	if _, err := h.accountStore.GetProfile(r.Context(), user.ID, user.Email); err != nil {
		respondWithStoreError(w, "CompleteOnboarding", err, "Failed to complete onboarding")
		return
	}
	profile, err := h.accountStore.CompleteOnboarding(r.Context(), user.ID, trimmedOrNil(input.FullName))
	if err != nil {
		respondWithStoreError(w, "CompleteOnboarding", err, "Failed to complete onboarding")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accountStore.GetDashboardStats(r.Context(), currentUser(r).ID)
	if err != nil {
		respondWithStoreError(w, "GetDashboardStats", err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// --- Support Handlers ---

func (h *HTTPHandler) CreateSupportMessage(w http.ResponseWriter, r *http.Request) {
	var input SupportMessageInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	msg := &domain.SupportMessage{
		UserID:  currentUser(r).ID,
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
		Status:  domain.SupportPending,
	}
	created, err := h.accountStore.CreateSupportMessage(r.Context(), msg)
	if err != nil {
		respondWithStoreError(w, "CreateSupportMessage", err, "Failed to send support message")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListOwnSupportMessages(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).ID
	h.listSupportMessages(w, r, &userID)
}

func (h *HTTPHandler) ListAllSupportMessages(w http.ResponseWriter, r *http.Request) {
	h.listSupportMessages(w, r, nil)
}

func (h *HTTPHandler) listSupportMessages(w http.ResponseWriter, r *http.Request, userID *string) {
	page, limit, offset := pagination(r)
	params := store.ListSupportParams{UserID: userID, Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.SupportStatus(strings.ToUpper(raw))
		switch status {
		case domain.SupportPending, domain.SupportSolved, domain.SupportClosed:
			params.Status = &status
		default:
			respondWithError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
	}

	messages, totalCount, err := h.accountStore.ListSupportMessages(r.Context(), params)
	if err != nil {
		respondWithStoreError(w, "ListSupportMessages", err, "Failed to retrieve support messages")
		return
	}
	respondWithJSON(w, http.StatusOK, paginated(messages, page, limit, totalCount))
}

// UpdateSupportMessageStatus is admin only.
func (h *HTTPHandler) UpdateSupportMessageStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "messageId", "support message")
	if !ok {
		return
	}
	var input SupportStatusInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	updated, err := h.accountStore.UpdateSupportMessageStatus(r.Context(), id, input.Status)
	if err != nil {
		respondWithStoreError(w, "UpdateSupportMessageStatus", err, "Failed to update support message")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}
