package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/engprogress/internal/database"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/pkg/models"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	orch := progress.New(database.NewMemoryStore())
	return NewRouter(RouterConfig{ProgressHandler: NewProgressHandler(orch, nil)})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const lessonBody = `{
	"lesson_id": "L1",
	"focus_area": "Travel",
	"steps": [
		{"id": "s1", "kind": "new_word", "word": "Apple", "was_correct": true, "was_attempted": true}
	],
	"text_metrics": {"accuracy": 80, "strengths": ["vocabulary"]}
}`

func TestHealthz(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCompleteLessonThenReadProgress(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/users/u1/lessons", lessonBody)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var res struct {
		Committed     bool   `json:"committed"`
		TopicsUpdated int    `json:"topics_updated"`
		WordsUpdated  int    `json:"words_updated"`
		Error         string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Committed)
	assert.Equal(t, 1, res.TopicsUpdated)
	assert.Equal(t, 1, res.WordsUpdated)
	assert.Empty(t, res.Error)

	w = do(r, http.MethodGet, "/api/users/u1/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.ProgressSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.Progress)
	assert.Equal(t, 56, snap.Progress.Score())
	require.Len(t, snap.Topics, 1)
	assert.Equal(t, "Travel", snap.Topics[0].TopicName)
	require.Len(t, snap.Words, 1)
	assert.Equal(t, models.Seen, snap.Words[0].MasteryLevel)

	w = do(r, http.MethodGet, "/api/users/u1/words?levels=Seen", "")
	require.Equal(t, http.StatusOK, w.Code)
	var words struct {
		Words []models.WordProgress `json:"words"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &words))
	require.Len(t, words.Words, 1)
	assert.Equal(t, "apple", words.Words[0].Word)
}

func TestCompleteAssessment(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/users/u1/assessments", `{
		"assessment_id": "A1",
		"proposed_topics": ["Travel"],
		"audio_metrics": {"overall_performance": 90, "proficiency_level": "C1", "learning_trajectory": "steady"}
	}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/users/u1/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.ProgressSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, models.Advanced, snap.Progress.EstimatedProficiencyLevel)
	assert.Equal(t, models.Steady, snap.Progress.LearningTrajectory)
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		code    string
		session string
	}{
		{"malformed json", http.MethodPost, "/api/users/u1/lessons", `{"lesson_id":`, "invalid_body", ""},
		{"missing lesson id", http.MethodPost, "/api/users/u1/lessons", `{"focus_area": "Travel"}`, "invalid_outcome", ""},
		{"score out of range", http.MethodPost, "/api/users/u1/assessments", `{"assessment_id": "A1", "text_metrics": {"overall_score": 140}}`, "invalid_outcome", "A1"},
		{"blank user", http.MethodPost, "/api/users/%20%20/lessons", lessonBody, "invalid_outcome", "L1"},
		{"unknown level", http.MethodGet, "/api/users/u1/words?levels=Fluent", "", "invalid_level", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.session, body.Error.SessionID)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestGetProgress_NotFound(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/api/users/nobody/progress", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newTestRouter(t), http.MethodGet, "/api/users/nobody/words", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"words": []}`, w.Body.String())
}

func TestCompleteLesson_ClientGoneStillCommits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := database.NewMemoryStore()
	r := NewRouter(RouterConfig{ProgressHandler: NewProgressHandler(progress.New(store), nil)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/lessons", bytes.NewReader([]byte(lessonBody))).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var res struct {
		Committed bool   `json:"committed"`
		Error     string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Committed)
	assert.Empty(t, res.Error)

	agg, err := store.GetAggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.EqualValues(t, 1, agg.Version)
}
