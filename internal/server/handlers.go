package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/report"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
)

// Messages returned when grading exceeds its deadline.
const (
	EvaluationTimeoutMessage = "Evaluation took too long to complete. Please try again with a shorter submission."
	MappingTimeoutMessage    = "Mapping questions to answers took too long. Please try again."
	NoMappingMessage         = "Could not map any questions to answers."
)

// userHeader carries the caller's user ID. Authentication happens upstream.
const userHeader = "X-User-ID"

type mapRequest struct {
	QuestionPaper string                `json:"question_paper"`
	AnswerText    string                `json:"answer_text"`
	Hints         domain.AlignmentHints `json:"hints"`
}

type mapResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	Mappings       []domain.AlignedQA `json:"mappings"`
	ProcessingTime float64            `json:"processing_time_seconds"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req domain.EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if uid := c.Get(userHeader); uid != "" {
		req.UserID = uid
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := s.grader.Evaluate(c.UserContext(), req)
	switch {
	case errors.Is(err, domain.ErrEvaluationTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, EvaluationTimeoutMessage)
	case errors.Is(err, domain.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"id":         res.ID,
		"evaluation": res.Markdown,
		"score":      res.Report.ScoreLabel(),
		"percentage": res.Report.Percentage(),
		"result":     res,
	})
}

func (s *Server) mapAnswers(c *fiber.Ctx) error {
	var req mapRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.AnswerText) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "answer_text is required")
	}

	start := time.Now()
	mappings, err := s.grader.MapAnswers(c.UserContext(), req.QuestionPaper, req.AnswerText, req.Hints)
	elapsed := time.Since(start).Seconds()
	switch {
	case errors.Is(err, domain.ErrEvaluationTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(mapResponse{
			Message:        MappingTimeoutMessage,
			Mappings:       []domain.AlignedQA{},
			ProcessingTime: elapsed,
		})
	case err != nil:
		return err
	case len(mappings) == 0:
		return c.JSON(mapResponse{
			Message:        NoMappingMessage,
			Mappings:       []domain.AlignedQA{},
			ProcessingTime: elapsed,
		})
	}

	return c.JSON(mapResponse{
		Success:        true,
		Message:        "Successfully mapped questions to answers",
		Mappings:       mappings,
		ProcessingTime: elapsed,
	})
}

// requestUser names the user a record request is scoped to. An empty result
// leaves the request unscoped.
func requestUser(c *fiber.Ctx) string {
	return c.Get(userHeader, c.Query("user_id"))
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	recs, err := s.store.List(c.UserContext(), requestUser(c))
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []store.EvaluationRecord{}
	}
	return c.JSON(fiber.Map{"evaluations": recs})
}

// ownedRecord loads the record named in the path. Records belonging to a
// user other than the requesting one are reported as not found.
func (s *Server) ownedRecord(c *fiber.Ctx) (store.EvaluationRecord, error) {
	rec, err := s.store.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return rec, fiber.NewError(fiber.StatusNotFound, "evaluation not found")
	}
	if err != nil {
		return rec, err
	}
	if user := requestUser(c); user != "" && rec.UserID != user {
		return rec, fiber.NewError(fiber.StatusNotFound, "evaluation not found")
	}
	return rec, nil
}

func (s *Server) getEvaluation(c *fiber.Ctx) error {
	rec, err := s.ownedRecord(c)
	if err != nil {
		return err
	}

	if c.Query("format") == "html" {
		html, err := report.RenderHTML(rec.Markdown)
		if err != nil {
			return err
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	}
	return c.JSON(rec)
}

func (s *Server) deleteEvaluation(c *fiber.Ctx) error {
	rec, err := s.ownedRecord(c)
	if err != nil {
		return err
	}
	err = s.store.Delete(c.UserContext(), rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "evaluation not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
