package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/harun/wagate/pkg/media"
	"github.com/harun/wagate/pkg/session"
)

// handleQR returns the pending QR challenge for a user, initializing the
// session first if none exists.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "userId is required"})
		return
	}

	snap, ok := s.sessions.Status(userID)
	if !ok {
		s.logger.Info().Str("user_id", userID).Msg("Auto-initializing session for QR request")
		if _, err := s.sessions.Init(r.Context(), userID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("QR init failed")
			writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: err.Error()})
			return
		}
		// Allow the challenge to be generated before answering
		snap, _ = s.sessions.WaitForReady(r.Context(), userID, s.options.QRWaitTimeout, s.options.PollInterval)
	}

	if snap.Ready() {
		writeJSON(w, http.StatusOK, QRResponse{
			QR:           nil,
			IsReady:      true,
			Message:      "Already authenticated",
			LoggedInUser: snap.Account,
		})
		return
	}

	if snap.LastQR != "" {
		dataURL, err := qrDataURL(snap.LastQR)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("QR render failed")
			writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: err.Error()})
			return
		}
		lastQRTime := snap.LastQRTime
		writeJSON(w, http.StatusOK, QRResponse{
			QR:         &dataURL,
			IsReady:    false,
			LastQRTime: &lastQRTime,
			Message:    "Scan the QR code",
		})
		return
	}

	writeJSON(w, http.StatusOK, QRResponse{
		QR:      nil,
		IsReady: false,
		Message: "Waiting for QR...",
	})
}

// handleStatus reports session state, waiting a bounded time for
// readiness so freshly scanned sessions answer authenticated.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	if _, ok := s.sessions.Status(userID); !ok {
		if _, err := s.sessions.Init(r.Context(), userID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Status init failed")
			writeJSON(w, http.StatusInternalServerError, StatusResponse{
				IsReady: false,
				Message: err.Error(),
			})
			return
		}
	}

	snap, _ := s.sessions.WaitForReady(r.Context(), userID, s.options.StatusWaitTimeout, s.options.PollInterval)

	resp := StatusResponse{
		IsReady:      snap.Ready(),
		LoggedInUser: snap.Account,
		Message:      "Not ready yet",
	}
	if snap.Ready() {
		resp.Message = "Authenticated"
	}
	if snap.LastQR != "" {
		lastQR := snap.LastQR
		lastQRTime := snap.LastQRTime
		resp.LastQR = &lastQR
		resp.LastQRTime = &lastQRTime
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMe returns the authenticated account for a ready session
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	snap, ok := s.sessions.Status(userID)
	if !ok || !snap.Ready() || snap.Account == nil {
		writeJSON(w, http.StatusBadRequest, MeResponse{
			Success: false,
			Message: "User not authenticated",
		})
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		Success: true,
		User:    snap.Account,
	})
}

// handleLogout tears the session down and deletes its auth store
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	if err := s.sessions.Logout(r.Context(), userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Logout failed")
		writeJSON(w, http.StatusInternalServerError, SimpleResponse{
			Success: false,
			Message: "Logout failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, SimpleResponse{
		Success: true,
		Message: "Logged out and session deleted",
	})
}

// handleSend downloads and sends a video through a ready session
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	if req.Number == "" || req.VideoURL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "number and videoUrl are required"})
		return
	}

	snap, ok := s.sessions.Status(userID)
	if !ok {
		s.logger.Info().Str("user_id", userID).Msg("Auto-initializing session for send request")
		if _, err := s.sessions.Init(r.Context(), userID); err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to send video", Details: err.Error()})
			return
		}
		snap, _ = s.sessions.Status(userID)
	}

	if !snap.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "WhatsApp not connected. Scan QR first."})
		return
	}

	err := s.pipeline.SendVideo(r.Context(), media.Request{
		UserID:   userID,
		Number:   req.Number,
		VideoURL: req.VideoURL,
		Caption:  req.Caption,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("number", req.Number).Msg("Send failed")
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoClient) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, ErrorResponse{Error: "Failed to send video", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{
		Success: true,
		Message: fmt.Sprintf("Video sent to %s", req.Number),
	})
}

// qrDataURL renders a QR challenge as a PNG data URL
func qrDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
