package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hirelens/hirelens-backend/internal/model"
)

// HTTPService talks to the external submission service over its REST API.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPService creates the HTTP-backed submission service client.
func NewHTTPService(baseURL string) *HTTPService {
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type startSessionRequest struct {
	QuestionSetID  string `json:"question_set_id"`
	CandidateEmail string `json:"candidate_email,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

type completeRequest struct {
	Answers   []model.AnswerItem `json:"answers"`
	Anonymous bool               `json:"anonymous"`
}

// StartSession registers a remote grading session and returns its id.
func (s *HTTPService) StartSession(ctx context.Context, questionSetID string, candidate model.CandidateInfo) (string, error) {
	req := startSessionRequest{
		QuestionSetID:  questionSetID,
		CandidateEmail: candidate.Email,
		CandidateName:  candidate.Name,
	}
	var resp startSessionResponse
	if err := s.post(ctx, "/test/sessions", req, &resp); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return resp.SessionID, nil
}

// Submit sends the full-coverage answer payload for grading. The endpoint
// is idempotent per session id, so a retry replays the same payload safely.
func (s *HTTPService) Submit(ctx context.Context, sessionID string, answers []model.AnswerItem, anonymous bool) (*Outcome, error) {
	req := completeRequest{Answers: answers, Anonymous: anonymous}
	var outcome Outcome
	path := fmt.Sprintf("/test/sessions/%s/complete", sessionID)
	if err := s.post(ctx, path, req, &outcome); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	return &outcome, nil
}

// SubmitScreening delivers screening answers on the secondary channel,
// addressed by assessment id.
func (s *HTTPService) SubmitScreening(ctx context.Context, assessmentID string, sub ScreeningSubmission) error {
	path := fmt.Sprintf("/assessments/%s/screening-responses", assessmentID)
	if err := s.post(ctx, path, sub, nil); err != nil {
		return fmt.Errorf("screening responses: %w", err)
	}
	return nil
}

func (s *HTTPService) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
