package plans

import (
	"context"

	"venue-checkin/internal/common/crm"
	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/metrics"
)

// Defaults applied when the remote plan schema omits fields; the display
// must degrade gracefully rather than fail.
const (
	UnnamedPlan   = "Unnamed Plan"
	UnknownStatus = "Unknown"
)

// PlanRecord is one membership plan/subscription associated with a member.
type PlanRecord struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	StartsAt string `json:"startsAt,omitempty"`
	EndsAt   string `json:"endsAt,omitempty"`
}

// PlanOrder is one plan purchase/order record for a member.
type PlanOrder struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	OrderedAt string `json:"orderedAt,omitempty"`
}

type searchClient interface {
	SearchByCriteria(ctx context.Context, module, criteria string, page, perPage int) ([]crm.Record, error)
}

// Resolver fetches subscription and order records for a resolved member.
// Results are fetched fresh on every request and never cached.
type Resolver struct {
	client              searchClient
	subscriptionsModule string
	ordersModule        string
	pageSize            int
	logger              logger.Logger
}

func NewResolver(client searchClient, subscriptionsModule, ordersModule string, pageSize int, log logger.Logger) *Resolver {
	return &Resolver{
		client:              client,
		subscriptionsModule: subscriptionsModule,
		ordersModule:        ordersModule,
		pageSize:            pageSize,
		logger:              log.WithFields(map[string]interface{}{"component": "plan-resolver"}),
	}
}

// Plans returns the member's subscription plans. Zero plans is a valid
// outcome and yields an empty slice.
func (r *Resolver) Plans(ctx context.Context, memberID string) ([]PlanRecord, error) {
	records, err := r.query(ctx, r.subscriptionsModule, memberID)
	if err != nil {
		metrics.PlanFetches.WithLabelValues("plans", "error").Inc()
		return nil, err
	}

	plans := make([]PlanRecord, 0, len(records))
	for _, rec := range records {
		plans = append(plans, PlanRecord{
			ID:       rec.String("id"),
			Name:     stringOr(rec, "Plan_Name", UnnamedPlan),
			Status:   stringOr(rec, "Status", UnknownStatus),
			StartsAt: rec.String("Start_Date"),
			EndsAt:   rec.String("End_Date"),
		})
	}

	metrics.PlanFetches.WithLabelValues("plans", "ok").Inc()
	return plans, nil
}

// Orders returns the member's plan orders with the same defaulting rules.
func (r *Resolver) Orders(ctx context.Context, memberID string) ([]PlanOrder, error) {
	records, err := r.query(ctx, r.ordersModule, memberID)
	if err != nil {
		metrics.PlanFetches.WithLabelValues("orders", "error").Inc()
		return nil, err
	}

	orders := make([]PlanOrder, 0, len(records))
	for _, rec := range records {
		orders = append(orders, PlanOrder{
			ID:        rec.String("id"),
			Name:      stringOr(rec, "Plan_Name", UnnamedPlan),
			Status:    stringOr(rec, "Status", UnknownStatus),
			OrderedAt: rec.String("Ordered_On"),
		})
	}

	metrics.PlanFetches.WithLabelValues("orders", "ok").Inc()
	return orders, nil
}

func (r *Resolver) query(ctx context.Context, module, memberID string) ([]crm.Record, error) {
	if memberID == "" {
		return nil, errors.NewInvalidArgumentError("memberId must not be empty")
	}

	criteria := crm.Filter{Field: "Member_Id", Operator: "equals", Value: memberID}.String()
	records, err := r.client.SearchByCriteria(ctx, module, criteria, 1, r.pageSize)
	if err != nil {
		return nil, errors.NewCRMTransportError(module, err)
	}
	return records, nil
}

func stringOr(rec crm.Record, field, fallback string) string {
	if v := rec.String(field); v != "" {
		return v
	}
	return fallback
}
