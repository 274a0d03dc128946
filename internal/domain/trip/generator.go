package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/mirageholidays/trip-planner-api/internal/lib/currency"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Generator abstracts the trip generation backend. Implementations must be
// safe to retry with identical input; deduplication happens downstream on
// the idempotency key.
type Generator interface {
	GenerateTrip(ctx context.Context, input types.TripInput) (*types.GeneratedPlan, error)
}

// GeminiGenerator produces structured plans from the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// generatedItem mirrors the JSON shape the model is instructed to emit.
// Prices come back in fractional AED and are converted to fils once, here.
type generatedItem struct {
	DayNumber   int     `json:"day_number"`
	ItemType    string  `json:"item_type"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	StartTime   string  `json:"start_time,omitempty"`
	EndTime     string  `json:"end_time,omitempty"`
	PriceAED    float64 `json:"price_aed"`
	Quantity    int     `json:"quantity"`
	IsOptional  bool    `json:"is_optional"`
	SortOrder   int     `json:"sort_order"`
}

type generatedPayload struct {
	Destination   string          `json:"destination"`
	TotalPriceAED float64         `json:"total_price_aed"`
	Items         []generatedItem `json:"items"`
}

// GenerateTrip prompts the model for a strict-JSON plan and parses it.
func (g *GeminiGenerator) GenerateTrip(ctx context.Context, input types.TripInput) (*types.GeneratedPlan, error) {
	ctx, span := otel.Tracer("TripGenerator").Start(ctx, "GenerateTrip", trace.WithAttributes(
		attribute.String("trip.budget_tier", string(input.BudgetTier)),
		attribute.String("trip.travel_style", string(input.TravelStyle)),
		attribute.Int("trip.total_days", input.TotalDays()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildPrompt(input)
	log := g.logger.With(slog.String("method", "GenerateTrip"), slog.String("model", g.model))
	log.DebugContext(ctx, "Requesting trip generation")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.6),
	})
	if err != nil {
		log.ErrorContext(ctx, "Generation request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation request failed")
		return nil, fmt.Errorf("generation request failed: %w", types.ErrGeneration)
	}

	raw := resp.Text()
	plan, err := parseGeneratedPlan(raw)
	if err != nil {
		log.ErrorContext(ctx, "Generated plan did not parse", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generated plan did not parse")
		return nil, err
	}

	log.InfoContext(ctx, "Trip generated",
		slog.String("destination", plan.Destination),
		slog.Int("items", len(plan.Items)))
	span.SetAttributes(attribute.Int("trip.item_count", len(plan.Items)))
	span.SetStatus(codes.Ok, "Trip generated")
	return plan, nil
}

// parseGeneratedPlan validates and converts the model output. Kept separate
// from the API call so malformed-output handling is testable offline.
func parseGeneratedPlan(raw string) (*types.GeneratedPlan, error) {
	raw = strings.TrimSpace(raw)
	// Some models still fence JSON despite the MIME type instruction.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload generatedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed generation payload: %w", types.ErrGeneration)
	}
	if payload.Destination == "" || len(payload.Items) == 0 {
		return nil, fmt.Errorf("incomplete generation payload: %w", types.ErrGeneration)
	}
	if payload.TotalPriceAED < 0 {
		return nil, fmt.Errorf("negative total price in generation payload: %w", types.ErrGeneration)
	}

	plan := &types.GeneratedPlan{
		Destination:    payload.Destination,
		TotalPriceFils: currency.AED(payload.TotalPriceAED).Fils(),
	}
	for _, it := range payload.Items {
		if it.DayNumber < 1 || it.Title == "" || it.PriceAED < 0 {
			continue
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		item := types.TripItem{
			DayNumber:  it.DayNumber,
			ItemType:   types.ParseItemType(it.ItemType),
			Title:      it.Title,
			PriceFils:  currency.AED(it.PriceAED).Fils(),
			Quantity:   qty,
			IsOptional: it.IsOptional,
			IsIncluded: !it.IsOptional,
			SortOrder:  it.SortOrder,
		}
		if it.Description != "" {
			item.Description = &it.Description
		}
		if it.StartTime != "" {
			item.StartTime = &it.StartTime
		}
		if it.EndTime != "" {
			item.EndTime = &it.EndTime
		}
		plan.Items = append(plan.Items, item)
	}
	if len(plan.Items) == 0 {
		return nil, fmt.Errorf("generation payload had no usable items: %w", types.ErrGeneration)
	}
	return plan, nil
}

func buildPrompt(input types.TripInput) string {
	var b strings.Builder
	b.WriteString("You are a travel planner for trips to the United Arab Emirates. ")
	b.WriteString("Plan a complete trip and respond with ONLY a JSON object of the shape: ")
	b.WriteString(`{"destination": string, "total_price_aed": number, "items": [{"day_number": int, "item_type": "hotel"|"car"|"visa"|"transfer"|"activity"|"tour"|"meal"|"upsell", "title": string, "description": string, "start_time": "HH:MM", "end_time": "HH:MM", "price_aed": number, "quantity": int, "is_optional": bool, "sort_order": int}]}. `)
	b.WriteString("Include exactly one hotel item (quantity = nights), at most one car item (quantity = days), ")
	b.WriteString("one visa item if the nationality needs a UAE visa, two or three activities per day, ")
	b.WriteString("and two to four optional upsell items (item_type \"upsell\", is_optional true). ")
	b.WriteString("total_price_aed must cover every non-optional item.\n\n")

	fmt.Fprintf(&b, "Arrival date: %s\n", input.ArrivalDate.Format(types.DateOnly))
	fmt.Fprintf(&b, "Departure date: %s\n", input.DepartureDate.Format(types.DateOnly))
	fmt.Fprintf(&b, "Trip length: %d days\n", input.TotalDays())
	fmt.Fprintf(&b, "Travelers: %d adults, %d children\n", input.Adults, input.Children)
	fmt.Fprintf(&b, "Nationality: %s\n", input.Nationality)
	fmt.Fprintf(&b, "Budget tier: %s\n", input.BudgetTier)
	fmt.Fprintf(&b, "Travel style: %s\n", input.TravelStyle)
	if input.Occasion != types.OccasionNone && input.Occasion != "" {
		fmt.Fprintf(&b, "Special occasion: %s\n", input.Occasion)
	}
	return b.String()
}
