package main

import (
	"strings"

	reportdelivery "github.com/goliatone/go-rights/adapters/delivery"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-router"
)

type scheduleDeliveryInput struct {
	Dataset    string   `json:"dataset"`
	Format     string   `json:"format"`
	Mode       string   `json:"mode"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	Notify     bool     `json:"notify"`
}

// RunScheduledDeliveries handles POST /api/schedule/deliveries. It runs
// one report and delivers the artifact by email link or attachment.
func (a *App) RunScheduledDeliveries(c router.Context) error {
	if a == nil || a.Delivery == nil {
		return c.JSON(500, errorBody("delivery service not configured", "not_configured"))
	}

	var input scheduleDeliveryInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(400, errorBody("invalid request body", "invalid_body"))
	}

	dataset := strings.TrimSpace(input.Dataset)
	if dataset == "" {
		dataset = report.DatasetContracts
	}
	format := report.Format(strings.ToLower(strings.TrimSpace(input.Format)))
	if format == "" {
		format = report.FormatCSV
	}

	mode := reportdelivery.DeliveryLink
	switch strings.ToLower(strings.TrimSpace(input.Mode)) {
	case "", "link":
	case "attachment":
		mode = reportdelivery.DeliveryAttachment
	default:
		return c.JSON(400, errorBody("mode must be link or attachment", "invalid_mode"))
	}

	recipients := normalizeRecipients(input.Recipients)
	if len(recipients) == 0 {
		recipients = normalizeRecipients(a.Config.Notifications.Recipients)
	}
	if len(recipients) == 0 {
		return c.JSON(400, errorBody("at least one recipient is required", "missing_recipients"))
	}

	req := reportdelivery.Request{
		Actor: a.getActor(c),
		Report: report.ReportRequest{
			Dataset: dataset,
			Format:  format,
		},
		Mode: mode,
		Targets: []reportdelivery.Target{
			{
				Kind:  reportdelivery.TargetEmail,
				Email: reportdelivery.EmailTarget{To: recipients},
			},
		},
	}
	if input.Notify && a.Config.Notifications.Enabled {
		req.Notify = reportdelivery.NotificationRequest{
			Recipients: recipients,
			Channels:   a.Config.Notifications.Channels,
			Message:    input.Message,
		}
	}

	result, err := a.Delivery.Deliver(c.Context(), req)
	if err != nil {
		a.Logger.Errorf("scheduled delivery failed: %v", err)
		return c.JSON(502, errorBody(err.Error(), "delivery_failed"))
	}

	return c.JSON(200, map[string]any{
		"report_id": result.ReportID,
		"dataset":   result.Dataset,
		"format":    result.Format,
		"filename":  result.Filename,
		"link":      result.Link,
		"targets":   result.Targets,
		"sent_at":   result.SentAt,
	})
}

func normalizeRecipients(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
