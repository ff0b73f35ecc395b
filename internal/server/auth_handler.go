package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/notify"
	"github.com/jonathan/interview-manager/internal/server/middleware"
	"github.com/jonathan/interview-manager/internal/types"
	"go.uber.org/zap"
)

const magicLinkMessage = "If the address belongs to an account, a sign-in link is on its way."

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	sender      notify.Sender
	baseURL     string
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService, sender notify.Sender, baseURL string) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		sender:      sender,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Register handles candidate self-registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.issueSession(w, r, http.StatusCreated, user)
}

// Login handles password login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.issueSession(w, r, http.StatusOK, user)
}

// MagicLink emails a short-lived sign-in link. The response is the same whether or
// not the address is known.
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req types.MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	resp := types.MagicLinkResponse{Message: magicLinkMessage}
	log := logging.FromContext(r.Context())

	user, err := h.userService.LookupByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	token, err := h.jwtService.GenerateMagicLinkToken(user.ID, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	link := h.baseURL + "/auth/callback?token=" + url.QueryEscape(token)

	if err := h.sender.SendSignIn(r.Context(), user.Email, link); err != nil {
		log.Error("failed to send sign-in link", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if _, simulated := h.sender.(*notify.SimulatedSender); simulated {
		resp.Link = link
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// VerifyMagicLink exchanges a sign-in link token for a session token.
func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req types.MagicLinkVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := h.jwtService.ValidateMagicLinkToken(req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired sign-in link"))
		return
	}

	user, err := h.userService.Get(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.issueSession(w, r, http.StatusOK, user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdatePassword handles password changes for the authenticated user.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
		return
	}

	var req types.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, status int, user *types.User) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to generate token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to generate token"))
		return
	}
	writeJSON(w, status, types.LoginResponse{User: user, Token: token})
}
