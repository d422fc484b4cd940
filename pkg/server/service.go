package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mikeboe/research-flow/pkg/database"
	"github.com/mikeboe/research-flow/pkg/research"
)

// RunStore keeps the run history shown by the front-end.
type RunStore interface {
	LogSink
	CreateRun(ctx context.Context, id uuid.UUID, question string, config json.RawMessage) (*database.RunRecord, error)
	FinishRun(ctx context.Context, id uuid.UUID, status string, result json.RawMessage) error
	GetRun(ctx context.Context, id uuid.UUID) (*database.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]database.RunRecord, error)
	GetRunLogs(ctx context.Context, runID uuid.UUID) ([]database.LogEntry, error)
}

// ErrEmptyQuestion is returned before any run is created.
var ErrEmptyQuestion = errors.New("question must not be empty")

type Service struct {
	Store  RunStore
	Engine *research.Engine
	Logger *slog.Logger
}

func NewService(store RunStore, engine *research.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: store, Engine: engine, Logger: logger}
}

type ResearchRequest struct {
	Question string `json:"question"`
}

type RunResponse struct {
	ID     uuid.UUID       `json:"id"`
	Status string          `json:"status"`
	Result research.Result `json:"result"`
}

// Research runs the workflow to completion and stores the result.
func (s *Service) Research(ctx context.Context, req ResearchRequest) (*RunResponse, error) {
	return s.execute(ctx, req.Question, nil)
}

// Stream runs the workflow once, handing every intermediate snapshot to
// observe. Returning false from observe stops delivery, not the run.
func (s *Service) Stream(ctx context.Context, req ResearchRequest, observe func(research.Snapshot) bool) (*RunResponse, error) {
	return s.execute(ctx, req.Question, observe)
}

func (s *Service) execute(ctx context.Context, question string, observe func(research.Snapshot) bool) (*RunResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	configJSON, err := json.Marshal(s.Engine.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	runID := uuid.New()
	if _, err := s.Store.CreateRun(ctx, runID, question, configJSON); err != nil {
		return nil, err
	}

	runLogger := slog.New(NewDBLogHandler(s.Store, runID, s.Logger.Handler())).With("run_id", runID.String())
	run := s.Engine.NewRun(question, research.WithRunLogger(runLogger))

	if observe != nil {
		for snap := range run.Progress(ctx) {
			if !observe(snap) {
				break
			}
		}
	}
	result := research.ResultOf(run.Wait(ctx))

	status := database.StatusSucceeded
	if result.Failed() {
		status = database.StatusFailed
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := s.Store.FinishRun(context.WithoutCancel(ctx), runID, status, resultJSON); err != nil {
		runLogger.Error("Failed to save result", "error", err)
	}

	return &RunResponse{ID: runID, Status: status, Result: result}, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*database.RunRecord, error) {
	return s.Store.GetRun(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context) ([]database.RunRecord, error) {
	return s.Store.ListRuns(ctx, 50)
}

func (s *Service) GetRunLogs(ctx context.Context, id uuid.UUID) ([]database.LogEntry, error) {
	return s.Store.GetRunLogs(ctx, id)
}
