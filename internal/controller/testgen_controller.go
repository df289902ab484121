// FILE: internal/controller/testgen_controller.go
package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-testgen-be/internal/dto"
	"ai-testgen-be/internal/pkg/serverutils"
	"ai-testgen-be/internal/service"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// ITestgenController exposes the stage operations. Every mutating route
// answers in two modes: plain JSON, or SSE when the client asks for a
// stream (?stream=true or Accept: text/event-stream).
type ITestgenController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	SubmitL1Answers(ctx *fiber.Ctx) error
	SelectL1Case(ctx *fiber.Ctx) error
	SubmitL2Answers(ctx *fiber.Ctx) error
	SelectL2Case(ctx *fiber.Ctx) error
	SubmitL3Answers(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	GetTree(ctx *fiber.Ctx) error
}

// stageOp adapts one service stage operation for the shared runner.
type stageOp func(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error)

type testgenController struct {
	testgenService service.ITestgenService
}

func NewTestgenController(testgenService service.ITestgenService) ITestgenController {
	return &testgenController{
		testgenService: testgenService,
	}
}

func (c *testgenController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/testgen/v1")
	h.Use(serverutils.JwtMiddleware) // ✅ PROTECTED: Wajib login
	h.Post(":id/start", c.Start)
	h.Post(":id/l1/answers", c.SubmitL1Answers)
	h.Post(":id/l1/select", c.SelectL1Case)
	h.Post(":id/l2/answers", c.SubmitL2Answers)
	h.Post(":id/l2/select", c.SelectL2Case)
	h.Post(":id/l3/answers", c.SubmitL3Answers)
	h.Get(":id/state", c.GetState)
	h.Get(":id/tree", c.GetTree)
}

func (c *testgenController) Start(ctx *fiber.Ctx) error {
	return c.runStage(ctx, "Success start generation", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.StartSession(opCtx, userId, sessionId, sink)
	})
}

func (c *testgenController) SubmitL1Answers(ctx *fiber.Ctx) error {
	req := c.parseAnswers(ctx)
	return c.runStage(ctx, "Success submit L1 answers", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.SubmitL1Answers(opCtx, userId, sessionId, req, sink)
	})
}

func (c *testgenController) SelectL1Case(ctx *fiber.Ctx) error {
	var req dto.SelectCaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return c.runStage(ctx, "Success select L1 case", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.SelectL1Case(opCtx, userId, sessionId, &req, sink)
	})
}

func (c *testgenController) SubmitL2Answers(ctx *fiber.Ctx) error {
	req := c.parseAnswers(ctx)
	return c.runStage(ctx, "Success submit L2 answers", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.SubmitL2Answers(opCtx, userId, sessionId, req, sink)
	})
}

func (c *testgenController) SelectL2Case(ctx *fiber.Ctx) error {
	var req dto.SelectCaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return c.runStage(ctx, "Success select L2 case", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.SelectL2Case(opCtx, userId, sessionId, &req, sink)
	})
}

func (c *testgenController) SubmitL3Answers(ctx *fiber.Ctx) error {
	req := c.parseAnswers(ctx)
	return c.runStage(ctx, "Success submit L3 answers", func(opCtx context.Context, userId, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
		return c.testgenService.SubmitL3Answers(opCtx, userId, sessionId, req, sink)
	})
}

func (c *testgenController) GetState(ctx *fiber.Ctx) error {
	userId := authUserID(ctx)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	res, err := c.testgenService.GetState(ctx.Context(), userId, sessionId)
	if err != nil {
		return c.stageError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get state", res))
}

func (c *testgenController) GetTree(ctx *fiber.Ctx) error {
	userId := authUserID(ctx)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	res, err := c.testgenService.GetTree(ctx.Context(), userId, sessionId)
	if err != nil {
		return c.stageError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get tree", res))
}

// parseAnswers tolerates an empty body: skipping the questions is valid,
// so a missing payload just means no answers.
func (c *testgenController) parseAnswers(ctx *fiber.Ctx) *dto.SubmitAnswersRequest {
	var req dto.SubmitAnswersRequest
	if err := ctx.BodyParser(&req); err != nil {
		req.Answers = map[string]string{}
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}
	return &req
}

// runStage extracts the identities and dispatches the operation either
// blocking or as an SSE stream.
func (c *testgenController) runStage(ctx *fiber.Ctx, message string, op stageOp) error {
	userId := authUserID(ctx)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	if !wantsStream(ctx) {
		res, err := op(ctx.Context(), userId, sessionId, nil)
		if err != nil {
			return c.stageError(ctx, err)
		}
		return ctx.JSON(serverutils.SuccessResponse(message, res))
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The request context is recycled once the handler returns, so
		// the operation runs on its own context inside the writer.
		sink := func(token string, fullText string) error {
			return writeFrame(w, fiber.Map{"type": "token", "token": token})
		}

		res, err := op(context.Background(), userId, sessionId, sink)
		if err != nil {
			writeFrame(w, fiber.Map{"type": "error", "message": err.Error()})
			return
		}
		writeFrame(w, fiber.Map{"type": "state", "data": res})
	}))

	return nil
}

// stageError maps service failures onto their HTTP status
func (c *testgenController) stageError(ctx *fiber.Ctx, err error) error {
	var limitErr *dto.LimitExceededError
	if errors.As(err, &limitErr) {
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success":    false,
			"code":       429,
			"message":    limitErr.Error(),
			"error_type": "LIMIT_EXCEEDED",
			"data": dto.LimitExceededData{
				Limit:      limitErr.Limit,
				Used:       limitErr.Used,
				ResetAfter: limitErr.ResetAfter,
			},
		})
	}
	if errors.Is(err, service.ErrSessionBusy) {
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	}
	if errors.Is(err, engine.ErrInvalidSelection) {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err.Error() == "session not found or access denied" {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	return err
}

func wantsStream(ctx *fiber.Ctx) bool {
	if ctx.QueryBool("stream") {
		return true
	}
	return strings.Contains(ctx.Get("Accept"), "text/event-stream")
}

// writeFrame emits one SSE frame and flushes it out immediately. A write
// error means the client went away, which aborts the generation through
// the sink.
func writeFrame(w *bufio.Writer, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}
