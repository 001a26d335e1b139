package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/tracing"
)

type vocabularyPage struct {
	Hits struct {
		Hits []struct {
			ID    string            `json:"id"`
			Title map[string]string `json:"title"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) fetchResourceTypes(ctx context.Context, vocabulary string) ([]layout.ResourceTypeOption, error) {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixSubmit+"vocabulary",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrRequestID, requestID),
			attribute.String("vocabulary", vocabulary),
		),
	)
	defer span.End()

	status, raw, err := c.do(ctx, http.MethodGet, "/api/vocabularies/"+vocabulary+"?size=200", requestID, nil)
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, status))
	if err == nil && status != http.StatusOK {
		err = &APIError{Status: status}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch %s: %w", vocabulary, err)
	}

	var page vocabularyPage
	if err := json.Unmarshal(raw, &page); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode %s: %w", vocabulary, err)
	}

	out := make([]layout.ResourceTypeOption, 0, len(page.Hits.Hits))
	for _, h := range page.Hits.Hits {
		label := h.Title["en"]
		if label == "" {
			label = h.ID
		}
		out = append(out, layout.ResourceTypeOption{ID: layout.ResourceType(h.ID), Label: label})
	}
	span.SetStatus(codes.Ok, "")
	log.Debug(log.CatSubmit, "Fetched vocabulary", "vocabulary", vocabulary, "count", len(out))
	return out, nil
}
