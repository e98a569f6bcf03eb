package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

// defaultPracticeLevels are returned by the words endpoint when no levels are asked for
var defaultPracticeLevels = []models.MasteryLevel{models.Seen, models.Learning}

type ProgressHandler struct {
	orch *progress.Orchestrator
	log  *logger.Logger
}

func NewProgressHandler(orch *progress.Orchestrator, log *logger.Logger) *ProgressHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProgressHandler{orch: orch, log: log.With("component", "api")}
}

// sessionResponse is a Result with its error flattened to text
type sessionResponse struct {
	progress.Result
	Error string `json:"error,omitempty"`
}

// POST /api/users/:userID/lessons
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	var outcome models.LessonOutcome
	if err := c.ShouldBindJSON(&outcome); err != nil {
		fail(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res := h.orch.UpdateAfterLesson(detach(c), c.Param("userID"), outcome)
	h.respondResult(c, res)
}

// POST /api/users/:userID/assessments
func (h *ProgressHandler) CompleteAssessment(c *gin.Context) {
	var outcome models.AssessmentOutcome
	if err := c.ShouldBindJSON(&outcome); err != nil {
		fail(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res := h.orch.UpdateAfterAssessment(detach(c), c.Param("userID"), outcome)
	h.respondResult(c, res)
}

// detach keeps request values but drops cancellation, so a client that
// disconnects mid-update cannot turn a landed session into a queued one.
func detach(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// respondResult answers 202 for anything but malformed input; an abandoned
// update is reported in the body and has been queued for replay.
func (h *ProgressHandler) respondResult(c *gin.Context, res progress.Result) {
	if res.Invalid() {
		failSession(c, http.StatusBadRequest, "invalid_outcome", res.SessionID, res.Err)
		return
	}
	body := sessionResponse{Result: res}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	c.JSON(http.StatusAccepted, body)
}

// GET /api/users/:userID/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	snap, err := h.orch.Snapshot(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.log.Error("Failed to load progress", "user_id", c.Param("userID"), "error", err)
		fail(c, http.StatusInternalServerError, "store_error", err)
		return
	}
	if snap == nil {
		fail(c, http.StatusNotFound, "not_found", errors.New("no progress recorded for user"))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /api/users/:userID/words?levels=Seen,Learning
func (h *ProgressHandler) ListPracticeWords(c *gin.Context) {
	levels := defaultPracticeLevels
	if raw := strings.TrimSpace(c.Query("levels")); raw != "" {
		levels = nil
		for _, name := range strings.Split(raw, ",") {
			level, err := models.ParseMasteryLevel(strings.TrimSpace(name))
			if err != nil {
				fail(c, http.StatusBadRequest, "invalid_level", err)
				return
			}
			levels = append(levels, level)
		}
	}

	words, err := h.orch.PracticeWords(c.Request.Context(), c.Param("userID"), levels)
	if err != nil {
		h.log.Error("Failed to load practice words", "user_id", c.Param("userID"), "error", err)
		fail(c, http.StatusInternalServerError, "store_error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": words})
}
