package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lectureNotes/config"
	"lectureNotes/core"
	"lectureNotes/processors"
	"lectureNotes/storage"
)

// Server wires the HTTP surface to the pipeline, the task manager and the
// chapter store.
type Server struct {
	cfg      *config.Config
	pipeline *processors.Pipeline
	tasks    *core.TaskManager
	store    storage.VectorStore
}

func NewServer(cfg *config.Config, pipeline *processors.Pipeline, tasks *core.TaskManager, store storage.VectorStore) *Server {
	return &Server{cfg: cfg, pipeline: pipeline, tasks: tasks, store: store}
}

// RegisterRoutes attaches all endpoints to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.HealthHandler)
	mux.HandleFunc("POST /api/upload", s.UploadHandler)
	mux.HandleFunc("POST /api/transcribe", s.TranscribeHandler)
	mux.HandleFunc("POST /api/summarize", s.SummarizeHandler)
	mux.HandleFunc("GET /api/status/{task_id}", s.TaskStatusHandler)
	mux.HandleFunc("GET /api/tasks", s.TasksHandler)
	mux.HandleFunc("GET /api/lectures", s.ListLecturesHandler)
	mux.HandleFunc("GET /api/lectures/{lecture_id}", s.LectureHandler)
	mux.HandleFunc("GET /api/lectures/{lecture_id}/chapters", s.ChaptersHandler)
	mux.HandleFunc("GET /api/lectures/{lecture_id}/segments", s.SegmentsHandler)
	mux.HandleFunc("GET /api/lectures/{lecture_id}/download/{file_type}", s.DownloadHandler)
	mux.HandleFunc("POST /api/lectures/{lecture_id}/query", s.QueryHandler)
	mux.HandleFunc("POST /api/lectures/{lecture_id}/clip", s.ClipHandler)
	mux.HandleFunc("GET /api/videos/{lecture_id}", s.VideoHandler)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"lectures": len(s.pipeline.ListLectures()),
	})
}

// UploadHandler stores a multipart video upload under a lecture directory
// named after the slugified file stem.
func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(512 << 20); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "missing video file field"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isVideoFilename(header.Filename) {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported video format: " + ext})
		return
	}

	stem := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	lectureID := core.Slugify(stem)
	if lectureID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "cannot derive lecture id from filename"})
		return
	}

	dir := s.pipeline.LectureDir(lectureID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "create lecture dir: " + err.Error()})
		return
	}
	dst, err := os.Create(filepath.Join(dir, lectureID+ext))
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "create video file: " + err.Error()})
		return
	}
	defer dst.Close()
	written, err := io.Copy(dst, file)
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "save video: " + err.Error()})
		return
	}

	log.Printf("uploaded lecture %s (%d bytes)", lectureID, written)
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"lecture_id": lectureID,
		"filename":   lectureID + ext,
		"size_bytes": written,
	})
}

type lectureRequest struct {
	LectureID string `json:"lecture_id"`
}

func (s *Server) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	s.submitTask(w, r, core.TaskTranscription)
}

func (s *Server) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	s.submitTask(w, r, core.TaskSummarization)
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request, taskType core.TaskType) {
	var req lectureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.LectureID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "lecture_id is required"})
		return
	}
	if !core.FileExists(s.pipeline.LectureDir(req.LectureID)) {
		core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "lecture not found: " + req.LectureID})
		return
	}

	lectureID := req.LectureID
	var work func() (any, error)
	switch taskType {
	case core.TaskTranscription:
		work = func() (any, error) { return s.pipeline.RunTranscription(context.Background(), lectureID) }
	case core.TaskSummarization:
		work = func() (any, error) { return s.pipeline.RunSummarization(context.Background(), lectureID) }
	}

	taskID, err := s.tasks.Submit(taskType, lectureID, work)
	if err != nil {
		var busy *core.ErrLectureBusy
		if errors.As(err, &busy) {
			core.WriteJSON(w, http.StatusConflict, map[string]any{
				"error":          err.Error(),
				"in_flight_task": busy.TaskID,
			})
			return
		}
		core.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "task_id": taskID})
		return
	}
	core.WriteJSON(w, http.StatusAccepted, map[string]any{
		"task_id":    taskID,
		"lecture_id": lectureID,
		"status":     core.TaskPending,
	})
}

func (s *Server) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	task, err := s.tasks.Status(taskID)
	if err != nil {
		var notFound *core.TaskNotFoundError
		if errors.As(err, &notFound) {
			core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
			return
		}
		core.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, task)
}

func (s *Server) TasksHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{"tasks": s.tasks.List()})
}

func (s *Server) ListLecturesHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{"lectures": s.pipeline.ListLectures()})
}

func (s *Server) LectureHandler(w http.ResponseWriter, r *http.Request) {
	lectureID := r.PathValue("lecture_id")
	if !core.FileExists(s.pipeline.LectureDir(lectureID)) {
		core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "lecture not found: " + lectureID})
		return
	}
	core.WriteJSON(w, http.StatusOK, s.pipeline.InspectLecture(lectureID))
}

func (s *Server) ChaptersHandler(w http.ResponseWriter, r *http.Request) {
	s.serveArtifactJSON(w, r, processors.ArtifactChapters, "chapters")
}

func (s *Server) SegmentsHandler(w http.ResponseWriter, r *http.Request) {
	s.serveArtifactJSON(w, r, processors.ArtifactSegments, "segments")
}

func (s *Server) serveArtifactJSON(w http.ResponseWriter, r *http.Request, artifact, key string) {
	lectureID := r.PathValue("lecture_id")
	path := s.pipeline.ArtifactPath(lectureID, artifact)
	if !core.FileExists(path) {
		core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": artifact + " not available for lecture " + lectureID})
		return
	}
	var payload any
	if err := core.LoadJSON(path, &payload); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "read " + artifact + ": " + err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"lecture_id": lectureID, key: payload})
}

var downloadableArtifacts = map[string]string{
	"srt":          processors.ArtifactSubtitles,
	"segments":     processors.ArtifactSegments,
	"chapters":     processors.ArtifactChapters,
	"chapters_raw": processors.ArtifactChaptersRaw,
}

func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	lectureID := r.PathValue("lecture_id")
	fileType := r.PathValue("file_type")
	artifact, ok := downloadableArtifacts[fileType]
	if !ok {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown file type: " + fileType})
		return
	}
	path := s.pipeline.ArtifactPath(lectureID, artifact)
	if !core.FileExists(path) {
		core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": artifact + " not available for lecture " + lectureID})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", lectureID+"_"+artifact))
	http.ServeFile(w, r, path)
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryHandler answers a free-text question against one lecture's indexed
// chapters.
func (s *Server) QueryHandler(w http.ResponseWriter, r *http.Request) {
	lectureID := r.PathValue("lecture_id")
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "query is required"})
		return
	}
	if s.store == nil {
		core.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "chapter store not available"})
		return
	}
	hits := s.store.Search(r.Context(), lectureID, req.Query, req.TopK)
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"lecture_id": lectureID,
		"query":      req.Query,
		"hits":       hits,
	})
}

type clipRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ClipHandler cuts a chapter-sized clip out of the lecture video. The cut is
// synchronous; clips are short.
func (s *Server) ClipHandler(w http.ResponseWriter, r *http.Request) {
	lectureID := r.PathValue("lecture_id")
	var req clipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body: " + err.Error()})
		return
	}
	clipPath, err := s.pipeline.ExtractChapterClip(r.Context(), lectureID, req.Start, req.End)
	if err != nil {
		core.WriteJSON(w, statusForError(err), map[string]any{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"lecture_id": lectureID,
		"clip":       filepath.Base(clipPath),
		"start":      req.Start,
		"end":        req.End,
	})
}

func (s *Server) VideoHandler(w http.ResponseWriter, r *http.Request) {
	lectureID := r.PathValue("lecture_id")
	videoPath := s.pipeline.FindVideoFile(lectureID)
	if videoPath == "" {
		core.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "no video for lecture " + lectureID})
		return
	}
	http.ServeFile(w, r, videoPath)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var missing *core.MissingPrerequisiteError
	var confErr *core.ConfigurationError
	var extErr *core.ExternalServiceError
	switch {
	case errors.As(err, &missing):
		return http.StatusConflict
	case errors.As(err, &confErr):
		return http.StatusBadRequest
	case errors.As(err, &extErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isVideoFilename(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".avi", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}
