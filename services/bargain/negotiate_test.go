package bargain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"faredown/models"
	"faredown/services/analytics"

	"go.uber.org/zap"
)

// memSessionStore is an in-memory SessionStore. Values are JSON round-tripped
// so tests exercise the same serialization path as the Redis store.
type memSessionStore struct {
	sessions map[string][]byte
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string][]byte)}
}

func (s *memSessionStore) Save(_ context.Context, session *models.BargainSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.sessions[session.SessionID] = data
	return nil
}

func (s *memSessionStore) Get(_ context.Context, sessionID string) (*models.BargainSession, error) {
	data, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	var session models.BargainSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *memSessionStore) Delete(_ context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}

type memHoldStore struct {
	holds map[string]*models.PriceHold
}

func newMemHoldStore() *memHoldStore {
	return &memHoldStore{holds: make(map[string]*models.PriceHold)}
}

func (s *memHoldStore) Save(_ context.Context, hold *models.PriceHold) error {
	s.holds[hold.HoldToken] = hold
	return nil
}

func (s *memHoldStore) Get(_ context.Context, token string) (*models.PriceHold, error) {
	return s.holds[token], nil
}

// stubPricing returns a fixed pricing snapshot and counters halfway toward
// the current ceiling, mirroring the local engine's policy.
type stubPricing struct {
	result     *models.BargainPricingResult
	initErr    error
	counterErr error
	initCalls  int
}

func (p *stubPricing) CalculateInitialPricing(context.Context, *models.BargainPricingRequest) (*models.BargainPricingResult, error) {
	p.initCalls++
	if p.initErr != nil {
		return nil, p.initErr
	}
	out := *p.result
	return &out, nil
}

func (p *stubPricing) ProcessCounterOffer(_ context.Context, req *models.CounterOfferRequest) (*models.CounterOfferResponse, error) {
	if p.counterErr != nil {
		return nil, p.counterErr
	}
	floor := req.BargainRange.MinimumAcceptable
	ceiling := req.BargainRange.MaximumCounterOffer
	if req.PreviousCounterOffer > 0 && req.PreviousCounterOffer < ceiling {
		ceiling = req.PreviousCounterOffer
	}
	anchor := req.UserOfferPrice
	if anchor < floor {
		anchor = floor
	}
	counter := math.Round((anchor+ceiling)/2*100) / 100
	return &models.CounterOfferResponse{
		Accepted:     false,
		CounterOffer: counter,
		Reasoning:    fmt.Sprintf("How about %.0f?", counter),
	}, nil
}

type stubSettings struct {
	settings models.ModuleSettings
	err      error
}

func (s *stubSettings) GetSettings(context.Context, string, string, string) (*models.ModuleSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.settings
	return &out, nil
}

func (s *stubSettings) GetPromoCode(context.Context, string, string) (*models.PromoCode, error) {
	return nil, nil
}

// snapshot matching the worked example: base 1000, markup 10% -> 1100,
// bounds {min 950, max 1080, recommended 1000}.
func testPricingResult() *models.BargainPricingResult {
	return &models.BargainPricingResult{
		OriginalPrice: 1000,
		MarkedUpPrice: 1100,
		FinalPrice:    1100,
		MarkupDetails: models.MarkupDetails{
			MarkupPercentage: 10,
			MarkupAmount:     100,
			MarkupRange:      models.MarkupRange{Min: 8, Max: 15},
		},
		BargainRange: models.BargainRange{
			MinimumAcceptable:   950,
			MaximumCounterOffer: 1080,
			RecommendedTarget:   1000,
			SavingsOpportunity:  130,
		},
	}
}

func testItem() models.ItemContext {
	return models.ItemContext{
		Type:      "flight",
		ItemID:    "FL-123",
		BasePrice: 1000,
		UserType:  "b2c",
		RouteFrom: "BOM",
		RouteTo:   "DXB",
	}
}

func newTestService(p *stubPricing) *DefaultBargainService {
	return &DefaultBargainService{
		Pricing: p,
		Settings: &stubSettings{settings: models.ModuleSettings{
			Module:         "flight",
			Enabled:        true,
			Attempts:       3,
			Round1TimerSec: 30,
			Round2TimerSec: 30,
		}},
		Sessions:  newMemSessionStore(),
		Holds:     newMemHoldStore(),
		Analytics: analytics.NopRecorder{},
		Logger:    zap.NewNop(),
		HoldTTL:   15 * time.Minute,
	}
}

func TestInitiateSession(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})

	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}
	if session.State != models.SessionInitial {
		t.Errorf("state = %q, want %q", session.State, models.SessionInitial)
	}
	if session.AttemptCount != 0 {
		t.Errorf("attemptCount = %d, want 0", session.AttemptCount)
	}
	if session.MaxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3", session.MaxAttempts)
	}
	if session.SessionID == "" {
		t.Error("sessionID is empty")
	}

	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Pricing.FinalPrice != 1100 {
		t.Errorf("stored finalPrice = %v, want 1100", got.Pricing.FinalPrice)
	}
}

func TestInitiateSessionIdempotentSnapshot(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})

	a, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("first InitiateSession: %v", err)
	}
	b, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("second InitiateSession: %v", err)
	}
	if a.SessionID == b.SessionID {
		t.Error("sessions share an ID")
	}
	aj, _ := json.Marshal(a.Pricing)
	bj, _ := json.Marshal(b.Pricing)
	if string(aj) != string(bj) {
		t.Errorf("pricing snapshots differ:\n%s\n%s", aj, bj)
	}
}

func TestInitiateSessionValidation(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})

	cases := []struct {
		name string
		item models.ItemContext
	}{
		{"zero base price", models.ItemContext{Type: "flight", BasePrice: 0}},
		{"negative base price", models.ItemContext{Type: "flight", BasePrice: -10}},
		{"unsupported type", models.ItemContext{Type: "cruise", BasePrice: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.InitiateSession(context.Background(), tc.item)
			if ErrorCode(err) != CodeInvalidRequest {
				t.Errorf("error code = %q, want %q (err: %v)", ErrorCode(err), CodeInvalidRequest, err)
			}
		})
	}
}

func TestInitiateSessionPricingFailure(t *testing.T) {
	svc := newTestService(&stubPricing{initErr: errors.New("connection refused")})

	_, err := svc.InitiateSession(context.Background(), testItem())
	if ErrorCode(err) != CodePricingFetchFailed {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodePricingFetchFailed)
	}
}

func TestInitiateSessionInconsistentBounds(t *testing.T) {
	broken := testPricingResult()
	broken.BargainRange.MinimumAcceptable = 1200 // above the max counter

	svc := newTestService(&stubPricing{result: broken})
	_, err := svc.InitiateSession(context.Background(), testItem())
	if ErrorCode(err) != CodePricingInconsistency {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodePricingInconsistency)
	}
}

func TestEvaluateOfferAccept(t *testing.T) {
	for _, offer := range []float64{950, 1000, 1100} {
		t.Run(fmt.Sprintf("offer_%.0f", offer), func(t *testing.T) {
			svc := newTestService(&stubPricing{result: testPricingResult()})
			session, err := svc.InitiateSession(context.Background(), testItem())
			if err != nil {
				t.Fatalf("InitiateSession: %v", err)
			}

			updated, resp, err := svc.EvaluateOffer(context.Background(), session.SessionID, offer)
			if err != nil {
				t.Fatalf("EvaluateOffer: %v", err)
			}
			if !resp.Accepted {
				t.Fatalf("offer %.0f not accepted: %s", offer, resp.Reasoning)
			}
			if updated.State != models.SessionSuccess {
				t.Errorf("state = %q, want success", updated.State)
			}
			if updated.AgreedPrice != offer {
				t.Errorf("agreedPrice = %v, want %v", updated.AgreedPrice, offer)
			}
			if updated.AgreedPrice > 1100 {
				t.Errorf("agreed price %v exceeds displayed price", updated.AgreedPrice)
			}
			if updated.AttemptCount != 1 {
				t.Errorf("attemptCount = %d, want 1", updated.AttemptCount)
			}
		})
	}
}

func TestEvaluateOfferInvalid(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	for _, offer := range []float64{0, -50, math.NaN(), math.Inf(1)} {
		_, _, err := svc.EvaluateOffer(context.Background(), session.SessionID, offer)
		if ErrorCode(err) != CodeInvalidOffer {
			t.Errorf("offer %v: error code = %q, want %q", offer, ErrorCode(err), CodeInvalidOffer)
		}
	}

	// No state transition, no attempt consumed.
	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.AttemptCount != 0 || got.State != models.SessionInitial {
		t.Errorf("session mutated by invalid offers: attempts=%d state=%q", got.AttemptCount, got.State)
	}
}

func TestCounterMonotonicityAndRoundCap(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	lowOffers := []float64{100, 200, 300}
	var counters []float64

	for i, offer := range lowOffers {
		updated, resp, err := svc.EvaluateOffer(context.Background(), session.SessionID, offer)
		if err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if resp.Accepted {
			t.Fatalf("round %d: lowball offer %.0f accepted", i+1, offer)
		}
		if updated.AttemptCount != i+1 {
			t.Errorf("round %d: attemptCount = %d", i+1, updated.AttemptCount)
		}

		if i+1 < 3 {
			if updated.State != models.SessionNegotiating {
				t.Fatalf("round %d: state = %q, want negotiating", i+1, updated.State)
			}
			if resp.CounterOffer < 950 || resp.CounterOffer > 1080 {
				t.Errorf("round %d: counter %.2f outside [950, 1080]", i+1, resp.CounterOffer)
			}
			counters = append(counters, resp.CounterOffer)
		} else {
			// Third failed attempt is terminal with no counter.
			if updated.State != models.SessionRejected {
				t.Fatalf("round 3: state = %q, want rejected", updated.State)
			}
			if resp.CounterOffer != 0 {
				t.Errorf("round 3: got counter %.2f after cap", resp.CounterOffer)
			}
		}
	}

	for i := 1; i < len(counters); i++ {
		if counters[i] > counters[i-1] {
			t.Errorf("counter re-raised: round %d %.2f > round %d %.2f",
				i+1, counters[i], i, counters[i-1])
		}
	}

	// A fourth offer against the terminal session is a state violation.
	_, _, err = svc.EvaluateOffer(context.Background(), session.SessionID, 1000)
	if ErrorCode(err) != CodeStateViolation {
		t.Errorf("post-terminal offer: error code = %q, want %q", ErrorCode(err), CodeStateViolation)
	}
}

func TestCounterProcessingFailureKeepsAttempt(t *testing.T) {
	p := &stubPricing{result: testPricingResult(), counterErr: errors.New("gateway timeout")}
	svc := newTestService(p)
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	_, _, err = svc.EvaluateOffer(context.Background(), session.SessionID, 100)
	if ErrorCode(err) != CodeCounterProcessingError {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodeCounterProcessingError)
	}

	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.AttemptCount != 0 || got.State != models.SessionInitial {
		t.Errorf("failed processing consumed attempt: attempts=%d state=%q", got.AttemptCount, got.State)
	}

	// Retrying the same offer succeeds once the collaborator recovers.
	p.counterErr = nil
	updated, resp, err := svc.EvaluateOffer(context.Background(), session.SessionID, 100)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resp.Accepted || updated.AttemptCount != 1 {
		t.Errorf("retry: accepted=%v attempts=%d", resp.Accepted, updated.AttemptCount)
	}
}

func TestAcceptCounterOffer(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	_, resp, err := svc.EvaluateOffer(context.Background(), session.SessionID, 800)
	if err != nil {
		t.Fatalf("EvaluateOffer: %v", err)
	}

	updated, err := svc.AcceptCounterOffer(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("AcceptCounterOffer: %v", err)
	}
	if updated.State != models.SessionSuccess {
		t.Errorf("state = %q, want success", updated.State)
	}
	if updated.AgreedPrice != resp.CounterOffer {
		t.Errorf("agreedPrice = %v, want counter %v", updated.AgreedPrice, resp.CounterOffer)
	}
}

func TestAcceptCounterOfferExpired(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	base := time.Now()
	svc.Now = func() time.Time { return base }

	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}
	if _, _, err := svc.EvaluateOffer(context.Background(), session.SessionID, 800); err != nil {
		t.Fatalf("EvaluateOffer: %v", err)
	}

	// 30-second validity window has passed.
	svc.Now = func() time.Time { return base.Add(31 * time.Second) }
	_, err = svc.AcceptCounterOffer(context.Background(), session.SessionID)
	if ErrorCode(err) != CodeCounterOfferExpired {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodeCounterOfferExpired)
	}
}

func TestAcceptCounterOfferStateViolation(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	// No counter is standing yet.
	_, err = svc.AcceptCounterOffer(context.Background(), session.SessionID)
	if ErrorCode(err) != CodeStateViolation {
		t.Fatalf("error code = %q, want %q", ErrorCode(err), CodeStateViolation)
	}
}

func TestRejectCounterOfferKeepsNegotiating(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}
	if _, _, err := svc.EvaluateOffer(context.Background(), session.SessionID, 800); err != nil {
		t.Fatalf("EvaluateOffer: %v", err)
	}

	updated, err := svc.RejectCounterOffer(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("RejectCounterOffer: %v", err)
	}
	if updated.State != models.SessionNegotiating {
		t.Errorf("state = %q, want negotiating", updated.State)
	}

	// A better offer after the rejection still works.
	final, resp, err := svc.EvaluateOffer(context.Background(), session.SessionID, 1000)
	if err != nil {
		t.Fatalf("EvaluateOffer: %v", err)
	}
	if !resp.Accepted || final.State != models.SessionSuccess {
		t.Errorf("follow-up offer: accepted=%v state=%q", resp.Accepted, final.State)
	}
}

func TestCreateHold(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	// Holds require a successful negotiation first.
	if _, err := svc.CreateHold(context.Background(), session.SessionID); ErrorCode(err) != CodeStateViolation {
		t.Fatalf("pre-success hold: error code = %q, want %q", ErrorCode(err), CodeStateViolation)
	}

	if _, _, err := svc.EvaluateOffer(context.Background(), session.SessionID, 1000); err != nil {
		t.Fatalf("EvaluateOffer: %v", err)
	}
	hold, err := svc.CreateHold(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}
	if hold.Price != 1000 {
		t.Errorf("hold price = %v, want 1000", hold.Price)
	}
	if !hold.ExpiresAt.After(hold.CreatedAt) {
		t.Error("hold expires before it was created")
	}
}

func TestAbandonSession(t *testing.T) {
	svc := newTestService(&stubPricing{result: testPricingResult()})
	session, err := svc.InitiateSession(context.Background(), testItem())
	if err != nil {
		t.Fatalf("InitiateSession: %v", err)
	}

	if err := svc.AbandonSession(context.Background(), session.SessionID, "user_closed"); err != nil {
		t.Fatalf("AbandonSession: %v", err)
	}
	_, err = svc.GetSession(context.Background(), session.SessionID)
	if ErrorCode(err) != CodeSessionNotFound {
		t.Errorf("error code = %q, want %q", ErrorCode(err), CodeSessionNotFound)
	}
}
