package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifesignal/lifesignal/internal/server/auth"
	"github.com/lifesignal/lifesignal/internal/server/lockout"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

// handleSession (POST /v1/session) issues a bearer token for a principal,
// creating the record on first contact.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrincipalID string `json:"principal_id" validate:"required,min=3"`
		DisplayName string `json:"display_name"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.principals.GetOrCreate(r.Context(), req.PrincipalID, req.DisplayName)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	token, err := auth.GenerateToken(p.ID, []byte(h.config.SecretKey), h.config.SessionValidityDuration)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleStatus (GET /v1/status) returns the owner's liveness summary.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.liveness.Status(r.Context(), principalID(r))
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"principal_id":      st.Principal.ID,
		"display_name":      st.Principal.DisplayName,
		"liveness_status":   st.Principal.LivenessStatus,
		"threshold_hours":   st.Principal.ThresholdHours,
		"trustee_count":     st.TrusteeCount,
		"protected":         st.TrusteeCount > 0,
		"credential_set":    st.Principal.HasCredential(),
		"last_heartbeat":    st.Principal.LastHeartbeat,
		"elapsed_seconds":   int64(st.Elapsed / time.Second),
		"remaining_seconds": int64(st.Remaining / time.Second),
	})
}

// handleSetCredential (POST /v1/credential) enrolls or replaces the
// credential. current_credential is required only when replacing.
func (h *Handler) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentCredential string `json:"current_credential"`
		Credential        string `json:"credential" validate:"required,min=4"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.lockout.SetCredential(r.Context(), principalID(r), req.CurrentCredential, req.Credential); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVerifyCredential (POST /v1/credential/verify) runs one credential
// check and reports the outcome, including the lockout transition.
func (h *Handler) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.lockout.VerifyCredential(r.Context(), principalID(r), req.Credential)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	resp := map[string]any{"outcome": result.Outcome}
	if result.Outcome == lockout.OutcomeRejected {
		resp["remaining_attempts"] = result.RemainingAttempts
	}
	if result.Outcome == lockout.OutcomeLockedOut {
		resp["recovery_key"] = result.RecoveryKey
		resp["guidance"] = "ask a trustee to unlock your account with this recovery key"
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// handleHeartbeat (POST /v1/heartbeat) records a check-in.
func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.liveness.Heartbeat(r.Context(), principalID(r)); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetThreshold (PUT /v1/threshold) changes the expiry window.
func (h *Handler) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours int `json:"hours" validate:"required,gt=0"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.liveness.SetThreshold(r.Context(), principalID(r), req.Hours); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAcceptTrustee (POST /v1/trustees) completes the handshake from the
// trustee's side: the caller confirms an owner's invitation, identified by
// the owner's principal id. Owners never register trustees unilaterally.
func (h *Handler) handleAcceptTrustee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrincipalID string `json:"principal_id" validate:"required,min=3"`
		DisplayName string `json:"display_name"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	link, err := h.trustees.Accept(r.Context(), req.PrincipalID, principalID(r), req.DisplayName)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{
		"principal_id": link.PrincipalID,
		"trustee_id":   link.TrusteeID,
		"display_name": link.DisplayName,
		"created_at":   link.CreatedAt,
	})
}

func (h *Handler) handleListTrustees(w http.ResponseWriter, r *http.Request) {
	links, err := h.trustees.List(r.Context(), principalID(r))
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(links))
	for _, link := range links {
		out = append(out, map[string]any{
			"trustee_id":   link.TrusteeID,
			"display_name": link.DisplayName,
			"created_at":   link.CreatedAt,
		})
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"trustees": out})
}

func (h *Handler) handleRevokeTrustee(w http.ResponseWriter, r *http.Request) {
	if err := h.trustees.Revoke(r.Context(), principalID(r), chi.URLParam(r, "id")); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAddEntry (POST /v1/vault) stores a vault entry. Media entries are
// uploaded to object storage first; storage_key references the uploaded
// blob.
func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentKind  string   `json:"content_kind" validate:"required"`
		Content      string   `json:"content" validate:"required"`
		StorageKey   string   `json:"storage_key"`
		RecipientIDs []string `json:"recipient_ids"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.vault.Add(r.Context(), principalID(r),
		vault.ContentKind(req.ContentKind), req.Content, req.StorageKey, req.RecipientIDs)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{"id": entry.ID, "created_at": entry.CreatedAt})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	views, err := h.vault.List(r.Context(), principalID(r))
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(views))
	for _, v := range views {
		out = append(out, map[string]any{
			"id":            v.ID,
			"content_kind":  v.ContentKind,
			"preview":       v.Preview,
			"recipient_ids": v.RecipientIDs,
			"created_at":    v.CreatedAt,
		})
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleUploadURL (POST /v1/vault/upload-url) hands out a presigned PUT URL
// plus the storage key to register afterwards.
func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.vault.GetPresignedPutUrl(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"storage_key": key, "url": url})
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid entry id")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleRevealEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	entry, plaintext, err := h.vault.Reveal(r.Context(), principalID(r), id)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	resp := map[string]any{
		"id":            entry.ID,
		"content_kind":  entry.ContentKind,
		"content":       plaintext,
		"recipient_ids": entry.RecipientIDs,
	}
	if entry.ContentKind != vault.KindText && entry.StorageKey != "" {
		url, err := h.vault.GetPresignedGetUrl(r.Context(), entry.StorageKey)
		if err != nil {
			h.respondWithServiceError(w, err)
			return
		}
		resp["download_url"] = url
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdateRecipients(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	var req struct {
		RecipientIDs []string `json:"recipient_ids" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.vault.UpdateRecipients(r.Context(), principalID(r), id, req.RecipientIDs); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	if err := h.vault.Delete(r.Context(), principalID(r), id); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLockRequests (GET /v1/lock/requests) lists the locked owners the
// calling trustee could unlock.
func (h *Handler) handleLockRequests(w http.ResponseWriter, r *http.Request) {
	locked, err := h.lockout.LockedPrincipals(r.Context(), principalID(r))
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(locked))
	for _, p := range locked {
		out = append(out, map[string]any{
			"principal_id": p.ID,
			"display_name": p.DisplayName,
		})
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"locked": out})
}

// handleUnlock (POST /v1/lock/unlock) lets a trustee present a recovery key
// for an owner they guard.
func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrincipalID string `json:"principal_id" validate:"required"`
		RecoveryKey string `json:"recovery_key" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.lockout.AttemptUnlock(r.Context(), principalID(r), req.PrincipalID, req.RecoveryKey)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"outcome": outcome})
}
