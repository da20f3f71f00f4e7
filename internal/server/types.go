package server

import (
	"time"

	"github.com/harun/wagate/pkg/whatsapp"
)

// QRResponse is the body of GET /qr/{userId}
type QRResponse struct {
	QR           *string           `json:"qr"`
	IsReady      bool              `json:"isReady"`
	Message      string            `json:"message"`
	LastQRTime   *time.Time        `json:"lastQrTime,omitempty"`
	LoggedInUser *whatsapp.Account `json:"loggedInUser,omitempty"`
}

// StatusResponse is the body of GET /status/{userId}
type StatusResponse struct {
	IsReady      bool              `json:"isReady"`
	LastQR       *string           `json:"lastQr"`
	LastQRTime   *time.Time        `json:"lastQrTime"`
	LoggedInUser *whatsapp.Account `json:"loggedInUser"`
	Message      string            `json:"message"`
}

// MeResponse is the body of GET /me/{userId}
type MeResponse struct {
	Success bool              `json:"success"`
	User    *whatsapp.Account `json:"user,omitempty"`
	Message string            `json:"message,omitempty"`
}

// SimpleResponse is the body of POST /logout/{userId}
type SimpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendRequest is the body of POST /send/{userId}
type SendRequest struct {
	Number   string `json:"number"`
	VideoURL string `json:"videoUrl"`
	Caption  string `json:"caption,omitempty"`
}

// SendResponse is the success body of POST /send/{userId}
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse carries a structured error message
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse carries a bare message, used by the auth endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Sessions      int     `json:"sessions"`
}
