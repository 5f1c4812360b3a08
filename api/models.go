package api

import (
	"github.com/yuna-ai/yuna-server/pkg/workspace"
)

// Account form actions accepted by POST /main
const (
	actionRegister       = "register"
	actionLogin          = "login"
	actionChangePassword = "change_password"
	actionChangeUsername = "change_username"
	actionDeleteAccount  = "delete_account"
)

// AccountForm is the login-page form payload
type AccountForm struct {
	Action      string `form:"action" binding:"required"`
	Username    string `form:"username" binding:"required"`
	Password    string `form:"password" binding:"required"`
	NewPassword string `form:"new_password"`
	NewUsername string `form:"new_username"`
}

// MessageRequest is a chat message sent to the assistant
type MessageRequest struct {
	Chat string `json:"chat"`
	Text string `json:"text" binding:"required"`
}

// MessageResponse carries the assistant's reply
type MessageResponse struct {
	Response string `json:"response"`
}

// HistoryRequest manipulates a user's chat histories
type HistoryRequest struct {
	Task     string              `json:"task" binding:"required"`
	Chat     string              `json:"chat"`
	Messages []workspace.Message `json:"messages,omitempty"`
}

// AnalyzeResponse carries the result of a document analysis
type AnalyzeResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is the JSON error envelope for API endpoints
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
