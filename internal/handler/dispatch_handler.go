package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/amyusif/madpc-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

// DispatchService is the coordinator surface the HTTP layer depends on.
type DispatchService interface {
	Dispatch(ctx context.Context, req service.DispatchRequest) (*domain.DispatchReport, error)
	GetMessageAudit(ctx context.Context, id string) (*service.MessageAudit, error)
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{service: service}, nil
}

func RegisterDispatchRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewDispatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications/dispatch", h.Dispatch)
	v1.Get("/notifications/:id", h.GetMessage)

	return nil
}

type dispatchRequest struct {
	PersonnelIDs []string `json:"personnelIds"`
	Subject      string   `json:"subject"`
	Message      string   `json:"message"`
	Channels     []string `json:"channels"`
	ScheduleAt   string   `json:"scheduleAt,omitempty"`
}

type channelCounts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type skippedRecipient struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type dispatchResponse struct {
	OK        bool               `json:"ok"`
	MessageID *string            `json:"messageId"`
	Email     channelCounts      `json:"email"`
	SMS       channelCounts      `json:"sms"`
	Total     channelCounts      `json:"total"`
	Skipped   []skippedRecipient `json:"skipped,omitempty"`
}

type attemptResponse struct {
	RecipientID string  `json:"recipientId"`
	Channel     string  `json:"channel"`
	Address     string  `json:"address"`
	Status      string  `json:"status"`
	Error       *string `json:"error,omitempty"`
}

type messageResponse struct {
	MessageID   string            `json:"messageId"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Channels    []string          `json:"channels"`
	ScheduledAt *time.Time        `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	Email       channelCounts     `json:"email"`
	SMS         channelCounts     `json:"sms"`
	Total       channelCounts     `json:"total"`
	Attempts    []attemptResponse `json:"attempts"`
}

func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	serviceReq, err := requestToDispatchRequest(req)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.service.Dispatch(c.Context(), serviceReq)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDispatchResponse(report))
}

func (h *DispatchHandler) GetMessage(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	audit, err := h.service.GetMessageAudit(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(audit))
}

func requestToDispatchRequest(req dispatchRequest) (service.DispatchRequest, error) {
	channelNames := req.Channels
	if len(channelNames) == 0 {
		channelNames = []string{"email"}
	}

	channels, err := domain.ParseChannels(channelNames)
	if err != nil {
		return service.DispatchRequest{}, err
	}

	serviceReq := service.DispatchRequest{
		PersonnelIDs: req.PersonnelIDs,
		Subject:      req.Subject,
		Body:         req.Message,
		Channels:     channels,
	}

	if trimmed := strings.TrimSpace(req.ScheduleAt); trimmed != "" {
		scheduledAt, parseErr := time.Parse(time.RFC3339, trimmed)
		if parseErr != nil {
			return service.DispatchRequest{}, fmt.Errorf("%w: scheduleAt must be RFC3339", domain.ErrValidation)
		}
		serviceReq.ScheduledAt = &scheduledAt
	}

	return serviceReq, nil
}

func toDispatchResponse(report *domain.DispatchReport) dispatchResponse {
	if report == nil {
		return dispatchResponse{}
	}

	return dispatchResponse{
		OK:        true,
		MessageID: report.MessageID,
		Email:     channelCounts{Sent: report.Email.Sent, Failed: report.Email.Failed},
		SMS:       channelCounts{Sent: report.SMS.Sent, Failed: report.SMS.Failed},
		Total:     channelCounts{Sent: report.Total.Sent, Failed: report.Total.Failed},
		Skipped:   toSkippedResponses(report.Skipped),
	}
}

func toSkippedResponses(skipped []domain.SkippedRecipient) []skippedRecipient {
	if len(skipped) == 0 {
		return nil
	}

	responses := make([]skippedRecipient, 0, len(skipped))
	for _, s := range skipped {
		responses = append(responses, skippedRecipient{ID: s.ID, Reason: s.Reason})
	}
	return responses
}

func toMessageResponse(audit *service.MessageAudit) messageResponse {
	if audit == nil {
		return messageResponse{}
	}

	channels := make([]string, 0, len(audit.Message.Channels))
	for _, ch := range audit.Message.Channels {
		channels = append(channels, strings.ToLower(ch.String()))
	}

	attempts := make([]attemptResponse, 0, len(audit.Attempts))
	for _, attempt := range audit.Attempts {
		attempts = append(attempts, attemptResponse{
			RecipientID: attempt.RecipientID,
			Channel:     strings.ToLower(attempt.Channel.String()),
			Address:     attempt.Address,
			Status:      attempt.Status.String(),
			Error:       attempt.Error,
		})
	}

	return messageResponse{
		MessageID:   audit.Message.ID,
		Subject:     audit.Message.Subject,
		Body:        audit.Message.Body,
		Channels:    channels,
		ScheduledAt: audit.Message.ScheduledAt,
		CreatedAt:   audit.Message.CreatedAt,
		Email:       channelCounts{Sent: audit.Report.Email.Sent, Failed: audit.Report.Email.Failed},
		SMS:         channelCounts{Sent: audit.Report.SMS.Sent, Failed: audit.Report.SMS.Failed},
		Total:       channelCounts{Sent: audit.Report.Total.Sent, Failed: audit.Report.Total.Failed},
		Attempts:    attempts,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoValidRecipients):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
