package api

import (
	"github.com/gin-gonic/gin"
)

// errorBody is the JSON shape of every non-2xx answer:
//
//	{"error": {"code": "invalid_outcome", "message": "...", "session_id": "L1"}}
type errorBody struct {
	Error problem `json:"error"`
}

// problem names a failure by a stable code. SessionID is set when the
// rejected request carried a lesson or assessment id.
type problem struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func fail(c *gin.Context, status int, code string, err error) {
	failSession(c, status, code, "", err)
}

func failSession(c *gin.Context, status int, code, sessionID string, err error) {
	p := problem{Code: code, Message: "unknown error", SessionID: sessionID}
	if err != nil {
		p.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, errorBody{Error: p})
}
