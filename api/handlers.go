package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/yuna-ai/yuna-server/pkg/errors"
	"github.com/yuna-ai/yuna-server/pkg/services"
	"github.com/yuna-ai/yuna-server/pkg/workspace"
)

// maxForwardBytes caps payloads forwarded to upstream collaborators
const maxForwardBytes = 64 << 20

// Page handlers

// indexPage serves the landing page
func (s *Server) indexPage(c *gin.Context) {
	c.File(filepath.Join(s.config.Web.RootDir, "index.html"))
}

// loginPage serves the combined login/registration page
func (s *Server) loginPage(c *gin.Context) {
	c.File(filepath.Join(s.config.Web.RootDir, "login.html"))
}

// servicesPage serves the public services overview
func (s *Server) servicesPage(c *gin.Context) {
	c.File(filepath.Join(s.config.Web.RootDir, "services.html"))
}

// pwaIcon serves the home-screen icon
func (s *Server) pwaIcon(c *gin.Context) {
	c.File(filepath.Join(s.config.Web.StaticDir, "img", "yuna-ai.png"))
}

// appPage serves the authenticated application entry point
func (s *Server) appPage(c *gin.Context) {
	s.logger.Debug("app entry", map[string]interface{}{"username": currentUser(c)})
	c.File(filepath.Join(s.config.Web.RootDir, "yuna.html"))
}

// Account lifecycle

// accountForm dispatches the login-page form: register, login,
// change_password, change_username and delete_account. Account errors are
// recovered here and surfaced as a user-facing outcome; only a successful
// login leaves the login page.
func (s *Server) accountForm(c *gin.Context) {
	var form AccountForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "missing form fields")
		return
	}

	switch form.Action {
	case actionRegister:
		if err := s.identity.Register(form.Username, form.Password); err != nil {
			s.logger.Warn("registration failed", map[string]interface{}{
				"username": form.Username,
				"reason":   err.Error(),
			})
		}

	case actionLogin:
		token, session, err := s.identity.Authenticate(form.Username, form.Password)
		if err != nil {
			s.logger.Warn("login failed", map[string]interface{}{"username": form.Username})
			break
		}
		s.setSessionCookie(c, token)
		s.logger.Info("login successful", map[string]interface{}{
			"username":   form.Username,
			"session_id": session.SessionID,
		})
		c.Redirect(http.StatusFound, "/yuna")
		return

	case actionChangePassword:
		if err := s.identity.ChangePassword(form.Username, form.Password, form.NewPassword); err != nil {
			s.logger.Warn("password change failed", map[string]interface{}{"username": form.Username})
		}

	case actionChangeUsername:
		if err := s.identity.ChangeUsername(form.Username, form.Password, form.NewUsername); err != nil {
			s.logger.Warn("username change failed", map[string]interface{}{"username": form.Username})
		}

	case actionDeleteAccount:
		if err := s.identity.DeleteAccount(form.Username, form.Password); err != nil {
			s.logger.Warn("account deletion failed", map[string]interface{}{"username": form.Username})
		} else {
			s.clearSessionCookie(c)
		}

	default:
		c.String(http.StatusBadRequest, "unknown action")
		return
	}

	s.loginPage(c)
}

// handleLogout invalidates the caller's session and clears the cookie
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(s.config.Security.CookieName); err == nil {
		if sessionID, err := s.identity.SessionID(token); err == nil {
			if err := s.identity.Logout(sessionID); err != nil {
				s.logger.Error("logout failed", err, map[string]interface{}{
					"username": currentUser(c),
				})
			}
		}
	}

	s.clearSessionCookie(c)
	s.logger.Info("user logged out", map[string]interface{}{"username": currentUser(c)})
	c.Redirect(http.StatusFound, loginRoute)
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(s.config.Security.SessionExpiry.Seconds())
	c.SetCookie(s.config.Security.CookieName, token, maxAge, "/", "", false, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetCookie(s.config.Security.CookieName, "", -1, "/", "", false, true)
}

// Gated service endpoints

// handleMessage sends a chat message to the assistant and records the
// exchange in the user's history
func (s *Server) handleMessage(c *gin.Context) {
	username := currentUser(c)

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.NewInvalidInputError("invalid message payload"))
		return
	}
	if req.Chat == "" {
		req.Chat = "main"
	}

	reply, err := s.services.Chat.Generate(c.Request.Context(), username, req.Text)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	err = s.services.History.Append(username, req.Chat,
		workspace.Message{Name: username, Message: req.Text},
		workspace.Message{Name: "Yuna", Message: reply},
	)
	if err != nil {
		s.logger.Error("failed to record chat history", err, map[string]interface{}{
			"username": username,
			"chat":     req.Chat,
		})
	}

	c.JSON(http.StatusOK, MessageResponse{Response: reply})
}

// handleHistory serves the user's chat histories
func (s *Server) handleHistory(c *gin.Context) {
	username := currentUser(c)

	var req HistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errors.NewInvalidInputError("invalid history payload"))
		return
	}
	if req.Chat == "" {
		req.Chat = "main"
	}

	switch req.Task {
	case "load":
		messages, err := s.services.History.Load(username, req.Chat)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, messages)

	case "list":
		names, err := s.services.History.List(username)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, names)

	case "save":
		if err := s.services.History.Save(username, req.Chat, req.Messages); err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved"})

	case "delete":
		if err := s.services.History.Delete(username, req.Chat); err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})

	default:
		s.abortWithError(c, errors.NewInvalidInputError("unknown history task"))
	}
}

// handleAnalyze runs document analysis on an uploaded file
func (s *Server) handleAnalyze(c *gin.Context) {
	username := currentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.abortWithError(c, errors.NewInvalidInputError("missing file upload"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.abortWithError(c, errors.NewIOError("failed to open upload", err))
		return
	}
	defer file.Close()

	result, err := s.services.Analyzer.Analyze(
		c.Request.Context(), username, fileHeader.Filename, c.PostForm("question"), file)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{Result: result})
}

// forwardTo builds a passthrough handler for one upstream collaborator
func (s *Server) forwardTo(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		upstream := s.upstreamByName(name)
		if upstream == nil {
			s.abortWithError(c, errors.NewServiceUnavailableError(name, nil))
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxForwardBytes))
		if err != nil {
			s.abortWithError(c, errors.NewIOError("failed to read request body", err))
			return
		}

		resp, err := upstream.Forward(
			c.Request.Context(), currentUser(c), c.Request.Method, c.ContentType(), body)
		if err != nil {
			s.abortWithError(c, err)
			return
		}

		c.Data(resp.StatusCode, resp.ContentType, resp.Body)
	}
}

func (s *Server) upstreamByName(name string) services.UpstreamService {
	switch name {
	case "image":
		return s.services.Image
	case "audio":
		return s.services.Audio
	case "audiobook":
		return s.services.Audiobook
	case "search":
		return s.services.Search
	}
	return nil
}

// abortWithError maps a service error onto an HTTP error envelope
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	if yerr := errors.GetYunaError(err); yerr != nil {
		message = yerr.Message
		switch yerr.Type {
		case errors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case errors.ErrorTypeUnauthenticated:
			status = http.StatusUnauthorized
		case errors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case errors.ErrorTypeConflict:
			status = http.StatusConflict
		case errors.ErrorTypeExternal:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err, map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		})
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    status,
		Message: message,
	})
}
