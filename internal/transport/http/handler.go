package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
)

// Handler exposes the engine's operations as thin JSON endpoints. All
// business rules live in internal/app; this layer only decodes, dispatches
// and maps errors to status codes.
type Handler struct {
	engine *app.Engine
}

func NewHandler(engine *app.Engine) *Handler {
	return &Handler{engine: engine}
}

// Register wires the routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/tests/demo", h.handleDemoTest)
	mux.HandleFunc("/tests/submit", h.handleSubmit)
	mux.HandleFunc("/tests/ai", h.handleAITest)
	mux.HandleFunc("/performance", h.handlePerformance)
}

func (h *Handler) handleDemoTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	examType := domain.ExamType(r.URL.Query().Get("exam"))
	if examType == "" {
		examType = domain.ExamJEE
	}
	test, err := h.engine.ActiveDemo(r.Context(), examType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

type submitRequest struct {
	TestID    string         `json:"testId"`
	UserID    string         `json:"userId"`
	Answers   app.RawAnswers `json:"answers"`
	TimeTaken int            `json:"timeTaken"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TestID == "" {
		http.Error(w, "testId is required", http.StatusBadRequest)
		return
	}
	result, err := h.engine.Submit(r.Context(), req.TestID, req.UserID, req.Answers, req.TimeTaken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type aiTestRequest struct {
	UserID   string          `json:"userId"`
	ExamType domain.ExamType `json:"examType"`
	Subject  string          `json:"subject"`
	Count    int             `json:"count"`
}

type aiTestResponse struct {
	Test      domain.AssembledTest `json:"test"`
	Questions []domain.Question    `json:"questions"`
}

func (h *Handler) handleAITest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req aiTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Subject == "" {
		http.Error(w, "userId and subject are required", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 10
	}
	test, questions, err := h.engine.GenerateAITest(r.Context(), req.UserID, req.ExamType, req.Subject, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aiTestResponse{Test: test, Questions: questions})
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	report, err := h.engine.AnalyzePerformance(r.Context(), userID, r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var shortfall *domain.ShortfallError
	switch {
	case errors.Is(err, domain.ErrNoCandidates):
		http.Error(w, "no questions available for this subject, contact admin", http.StatusNotFound)
	case errors.Is(err, domain.ErrTestNotFound), errors.Is(err, domain.ErrNoActiveTest):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUnknownPattern):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &shortfall):
		http.Error(w, shortfall.Error()+" (short by "+strconv.Itoa(shortfall.Requested-shortfall.Got)+")", http.StatusConflict)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
