package main

import (
	"context"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/store"
)

// traceStoreAdapter bridges store.TraceRepository onto
// collab.TraceStore: one row per request id, keyed the way the
// feedback path looks traces back up.
type traceStoreAdapter struct {
	repo *store.TraceRepository
}

func (a traceStoreAdapter) Put(ctx context.Context, requestID string, data []byte) error {
	return a.repo.Create(ctx, store.TraceRecord{
		ID:        requestID,
		RequestID: requestID,
		Steps:     data,
		CreatedAt: time.Now(),
	})
}

func (a traceStoreAdapter) Get(ctx context.Context, requestID string) ([]byte, bool, error) {
	rec, err := a.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec.Steps, true, nil
}

// clientProfileAdapter bridges store.ClientRepository onto
// collab.ClientProfileStore, translating between the store's
// persistence-shaped Client and the orchestrator's narrower
// ClientProfile view.
type clientProfileAdapter struct {
	repo *store.ClientRepository
}

func (a clientProfileAdapter) GetByAdvisorAndEmail(ctx context.Context, advisorID, email string) (*collab.ClientProfile, error) {
	c, err := a.repo.GetByAdvisorAndEmail(ctx, advisorID, email)
	if err != nil || c == nil {
		return nil, err
	}
	policyID := ""
	if c.PolicyID != nil {
		policyID = *c.PolicyID
	}
	return &collab.ClientProfile{
		ID:               c.ID,
		AccessState:      string(c.AccessState),
		DisplayName:      c.DisplayName,
		AdvisingWeekdays: c.AdvisingWeekdays,
		PolicyID:         policyID,
	}, nil
}

func (a clientProfileAdapter) IncrementInteractionCount(ctx context.Context, id string) error {
	return a.repo.IncrementInteractionCount(ctx, id)
}

// advisorProfileAdapter bridges store.AdvisorRepository onto
// collab.AdvisorProfileStore.
type advisorProfileAdapter struct {
	repo *store.AdvisorRepository
}

func (a advisorProfileAdapter) GetByID(ctx context.Context, id string) (*collab.AdvisorProfile, error) {
	adv, err := a.repo.GetByID(ctx, id)
	if err != nil || adv == nil {
		return nil, err
	}
	return &collab.AdvisorProfile{
		ID:               adv.ID,
		DisplayName:      adv.DisplayName,
		Timezone:         adv.Timezone,
		AdvisingWeekdays: adv.AdvisingWeekdays,
	}, nil
}

// policyAdapter bridges store.PolicyRepository onto collab.PolicyStore.
type policyAdapter struct {
	repo *store.PolicyRepository
}

func (a policyAdapter) GetByID(ctx context.Context, id string) (*collab.PolicyProfile, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return &collab.PolicyProfile{
		ID:               p.ID,
		AdvisingWeekdays: p.AdvisingWeekdays,
	}, nil
}
