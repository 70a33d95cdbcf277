package agent

import (
	"time"

	"github.com/calehh/impact-app/state"
)

// request and response bodies of the HTTP API

type SubmitResponse struct {
	Ok bool   `json:"ok"`
	Id string `json:"id"`
}

type UploadResponse struct {
	Url string `json:"url"`
}

type GetSubmissionsReq struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

type GetSubmissionsResponse struct {
	Submissions []state.Submission `json:"submissions"`
	Total       uint64             `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"pageSize"`
}

type AuthReq struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	Ok        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ApproveReq struct {
	SubmissionId string `json:"submissionId"`
	Points       int64  `json:"points"`
}

type ApproveResponse struct {
	Ok         bool              `json:"ok"`
	TaskId     string            `json:"taskId,omitempty"`
	Status     string            `json:"status,omitempty"`
	TxHash     string            `json:"txHash,omitempty"`
	ProofHash  string            `json:"proofHash,omitempty"`
	Submission *state.Submission `json:"submission,omitempty"`
}

type ErrorResponse struct {
	Ok     bool   `json:"ok"`
	Error  string `json:"error"`
	Code   string `json:"code"`
	TxHash string `json:"txHash,omitempty"`
}
