package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/changefeed"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/config"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	auditmemory "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit/store/memory"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/secrets"
)

// EngineSuite runs two instances over one shared in-memory database and an
// in-process notifier, the way two console servers share PostgreSQL and Kafka.
type EngineSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	db       *persistence.Memory
	notifier *changefeed.LocalNotifier
	audit    *auditmemory.InMemoryStore
	a, b     *Engine
	bridges  *errgroup.Group
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) open(instance string) *Engine {
	cfg := config.Default()
	cfg.InstanceID = instance
	cfg.Audit.AsyncBuffer = 0
	cfg.Breaker.ConsecutiveFailures = 2

	e, err := Open(s.ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAdapter(s.db),
		WithNotifier(s.notifier),
		WithAuditStore(s.audit),
	)
	s.Require().NoError(err)
	return e
}

func (s *EngineSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.db = persistence.NewMemory()
	s.notifier = changefeed.NewLocalNotifier()
	s.audit = auditmemory.NewInMemoryStore()
	s.a = s.open("console-a")
	s.b = s.open("console-b")

	s.bridges, _ = errgroup.WithContext(s.ctx)
	for _, e := range []*Engine{s.a, s.b} {
		bridge := e.Bridge()
		s.Require().NotNil(bridge)
		s.bridges.Go(func() error { return bridge.Run(s.ctx) })
	}
	s.Require().Eventually(func() bool { return s.notifier.Listeners() == 2 }, time.Second, 5*time.Millisecond)

	regs := []models.Registration{
		pending("A", models.CategoryMember, ""),
		pending("B", models.CategoryNonMember, ""),
		pending("C", models.CategoryVIP, ""),
		pending("D", models.CategoryNonMember, "G"),
		pending("E", models.CategoryNonMember, "G"),
		pending("F", models.CategoryNonMember, "G"),
	}
	added, err := s.a.Seed(s.ctx, regs)
	s.Require().NoError(err)
	s.Require().Equal(6, added)
	s.Require().Eventually(func() bool { return s.b.Store.Len() == 6 }, time.Second, 5*time.Millisecond)
}

func (s *EngineSuite) TearDownTest() {
	s.cancel()
	s.Require().NoError(s.bridges.Wait())
	s.Require().NoError(s.a.Close())
	s.Require().NoError(s.b.Close())
}

func pending(id models.RegistrationID, cat models.Category, groupID string) models.Registration {
	return models.Registration{ID: id, Category: cat, GroupID: groupID, Status: models.StatusPending}
}

func (s *EngineSuite) TestFinalizeOverHTTPPropagatesToPeer() {
	srv := httptest.NewServer(s.a.Router())
	defer srv.Close()

	token, err := s.a.Tokens.GenerateOperatorToken("caisse-1", time.Hour)
	s.Require().NoError(err)

	body := `{"ids":["A","B"],"payment_mode":"cash"}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/finalizations", strings.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var receipt struct {
		NewlyFinalized    []string `json:"newly_finalized"`
		Amount            string   `json:"amount"`
		SettlementChannel string   `json:"settlement_channel"`
		Operator          string   `json:"operator"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&receipt))
	s.Equal([]string{"A", "B"}, receipt.NewlyFinalized)
	s.Equal("750000", receipt.Amount)
	s.Equal("external", receipt.SettlementChannel)
	s.Equal("caisse-1", receipt.Operator)

	s.Eventually(func() bool {
		sum := s.b.View.Summary()
		return sum.Finalized.Count == 2 && sum.Pending.Count == 3
	}, time.Second, 5*time.Millisecond)

	// The peer now treats A and B as settled.
	again, err := s.b.Service.Finalize(s.ctx, models.FinalizeRequest{
		IDs:         []models.RegistrationID{"A", "B"},
		PaymentMode: models.PaymentModeCard,
		Operator:    "caisse-2",
	})
	s.Require().NoError(err)
	s.False(again.Committed())
	s.ElementsMatch([]models.RegistrationID{"A", "B"}, again.AlreadyFinalized)
}

func (s *EngineSuite) TestFinalizeRequiresOperatorToken() {
	srv := httptest.NewServer(s.a.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/finalizations", "application/json",
		bytes.NewBufferString(`{"ids":["A"],"payment_mode":"cash"}`))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	_, ok := s.a.Store.Get("A")
	s.True(ok)
	s.Empty(s.a.Store.ListFinalized(models.Filter{}))
}

func (s *EngineSuite) TestReadEndpointsAndHealth() {
	srv := httptest.NewServer(s.b.Router())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/registrations/pending", "/groups?outstanding=true", "/aggregates"} {
		resp, err := http.Get(srv.URL + path)
		s.Require().NoError(err, path)
		_ = resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/registrations/unknown")
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *EngineSuite) TestHealthReportsOpenBreaker() {
	s.db.FailWrites(errors.New("connection refused"))
	for range 2 {
		_, err := s.a.Service.Finalize(s.ctx, models.FinalizeRequest{
			IDs:         []models.RegistrationID{"A"},
			PaymentMode: models.PaymentModeCash,
			Operator:    "caisse-1",
		})
		s.Require().Error(err)
	}

	rec := httptest.NewRecorder()
	s.a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), `"persistence":"open"`)
}

func (s *EngineSuite) TestImportSettled() {
	res, err := s.a.ImportSettled(s.ctx, []models.FinalizeRequest{
		{IDs: []models.RegistrationID{"D", "E", "F"}, PaymentMode: models.PaymentModeWave, Operator: "gateway-export"},
		{IDs: []models.RegistrationID{"A", "Z"}, PaymentMode: models.PaymentModeBankTransfer, Operator: "treasury"},
	})
	s.Require().Error(err)
	s.Len(res.Receipts, 1)
	s.Equal(3, res.NewlyFinalized)
	s.Equal("1200000", res.Amount.String())

	res, err = s.a.ImportSettled(s.ctx, []models.FinalizeRequest{
		{IDs: []models.RegistrationID{"D", "E", "F"}, PaymentMode: models.PaymentModeWave, Operator: "gateway-export"},
		{IDs: []models.RegistrationID{"A"}, PaymentMode: models.PaymentModeBankTransfer, Operator: "treasury"},
	})
	s.Require().NoError(err)
	s.Equal(1, res.NewlyFinalized)
	s.Equal(3, res.AlreadyFinalized)

	events, err := s.audit.ListByActor(s.ctx, "treasury")
	s.Require().NoError(err)
	var actions []string
	for _, ev := range events {
		actions = append(actions, ev.Action)
	}
	s.Contains(actions, string(audit.EventPaymentFinalized))
	s.Contains(actions, string(audit.EventSettledImported))
}

func (s *EngineSuite) TestMetricsEndpoint() {
	_, err := s.a.Service.Finalize(s.ctx, models.FinalizeRequest{
		IDs:         []models.RegistrationID{"B"},
		PaymentMode: models.PaymentModeOrangeMoney,
		Operator:    "caisse-1",
	})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	s.a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `fanaf_finalize_outcomes_total{outcome="committed"} 1`)
	s.Contains(rec.Body.String(), "fanaf_recovery_rate")
}

func (s *EngineSuite) TestAnnounceFromBridgelessInstance() {
	cli := s.open("cli")
	defer func() { s.NoError(cli.Close()) }()
	s.Equal(6, cli.Store.Len())

	receipt, err := cli.Service.Finalize(s.ctx, models.FinalizeRequest{
		IDs:          []models.RegistrationID{"D"},
		PaymentMode:  models.PaymentModeWave,
		Operator:     "caisse-3",
		ExpandGroups: true,
	})
	s.Require().NoError(err)
	s.Len(receipt.NewlyFinalized, 3)
	s.Require().NoError(cli.Announce(s.ctx, models.EventFinalized, receipt.BatchID, receipt.NewlyFinalized))

	s.Eventually(func() bool {
		return len(s.a.Store.ListFinalized(models.Filter{GroupID: "G"})) == 3 &&
			len(s.b.Store.ListFinalized(models.Filter{GroupID: "G"})) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestOpenRejectsBadTariffs(t *testing.T) {
	cfg := config.Default()
	cfg.Tariffs.Member = "abc"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpenWithoutNotifierHasNoBridge(t *testing.T) {
	cfg := config.Default()
	cfg.InstanceID = "solo"
	e, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, e.Close()) })

	assert.Nil(t, e.Bridge())
	assert.Equal(t, 0, e.Store.Len())
}

func (s *EngineSuite) TestLoginIssuesUsableToken() {
	hash, err := secrets.Hash("correct horse")
	s.Require().NoError(err)
	s.a.Config.Server.Operators = map[string]string{"caisse-2": hash}

	srv := httptest.NewServer(s.a.Router())
	defer srv.Close()

	post := func(path, token, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
		s.Require().NoError(err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		return resp
	}

	s.Run("wrong secret", func() {
		resp := post("/tokens", "", `{"operator":"caisse-2","secret":"wrong"}`)
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("unknown operator", func() {
		resp := post("/tokens", "", `{"operator":"caisse-9","secret":"correct horse"}`)
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("missing secret", func() {
		resp := post("/tokens", "", `{"operator":"caisse-2"}`)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	resp := post("/tokens", "", `{"operator":"caisse-2","secret":"correct horse"}`)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var login struct {
		Token     string    `json:"token"`
		Operator  string    `json:"operator"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&login))
	s.Equal("caisse-2", login.Operator)
	s.NotEmpty(login.Token)
	s.True(login.ExpiresAt.After(time.Now()))

	fin := post("/finalizations", login.Token, `{"ids":["A"],"payment_mode":"cash"}`)
	defer fin.Body.Close()
	s.Require().Equal(http.StatusOK, fin.StatusCode)

	var receipt struct {
		Operator string `json:"operator"`
	}
	s.Require().NoError(json.NewDecoder(fin.Body).Decode(&receipt))
	s.Equal("caisse-2", receipt.Operator)
}
