package questionsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirelens/hirelens-backend/internal/loader"
	"github.com/hirelens/hirelens-backend/internal/model"
)

// ErrAssessmentNotFound means no active assessment exists for the id.
var ErrAssessmentNotFound = errors.New("assessment not found")

// PreAuthoredSource implements loader.PreAuthoredSource against the
// assessments/questions tables. Screening questions and the fallback
// questions array live inside the assessment descriptor JSON.
type PreAuthoredSource struct {
	pool *pgxpool.Pool
}

// NewPreAuthoredSource creates a Postgres-backed pre-authored source.
func NewPreAuthoredSource(pool *pgxpool.Pool) *PreAuthoredSource {
	return &PreAuthoredSource{pool: pool}
}

// descriptor is the JSON document stored alongside an assessment.
type descriptor struct {
	ScreeningQuestions []string             `json:"screening_questions"`
	Questions          []loader.RawQuestion `json:"questions"`
}

// Fetch resolves the assessment row and its authored question list.
func (s *PreAuthoredSource) Fetch(ctx context.Context, assessmentID string, _ model.CandidateInfo) (*loader.RawAssessment, error) {
	var (
		title, skill, level string
		descriptorJSON      []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT title, skill, level, descriptor
		 FROM assessments WHERE assessment_id = $1 AND is_active = TRUE`,
		assessmentID,
	).Scan(&title, &skill, &level, &descriptorJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}

	var desc descriptor
	if len(descriptorJSON) > 0 {
		// A malformed descriptor only disables screening/fallback; the
		// authored question list below still loads.
		_ = json.Unmarshal(descriptorJSON, &desc)
	}

	questions, err := s.listQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	return &loader.RawAssessment{
		AssessmentID:        assessmentID,
		Title:               title,
		Skill:               skill,
		Level:               level,
		Questions:           questions,
		DescriptorQuestions: desc.Questions,
		ScreeningQuestions:  desc.ScreeningQuestions,
	}, nil
}

// listQuestions retrieves the authored questions ordered by order_num.
func (s *PreAuthoredSource) listQuestions(ctx context.Context, assessmentID string) ([]loader.RawQuestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_text, question_type, options, language, constraints, focus_areas
		 FROM questions WHERE assessment_id = $1
		 ORDER BY order_num`, assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []loader.RawQuestion
	for rows.Next() {
		var (
			q               loader.RawQuestion
			optionsJSON     []byte
			constraintsJSON []byte
			focusJSON       []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &optionsJSON, &q.Language, &constraintsJSON, &focusJSON); err != nil {
			return nil, err
		}
		if len(optionsJSON) > 0 {
			_ = json.Unmarshal(optionsJSON, &q.Options)
		}
		if len(constraintsJSON) > 0 {
			_ = json.Unmarshal(constraintsJSON, &q.Constraints)
		}
		if len(focusJSON) > 0 {
			_ = json.Unmarshal(focusJSON, &q.FocusAreas)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
