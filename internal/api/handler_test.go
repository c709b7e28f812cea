package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sheikh-saqib/escrow-ledger/internal/ledger"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/sheikh-saqib/escrow-ledger/internal/rent"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	srv    *httptest.Server
	ledger *ledger.Ledger
}

func newTestServer(t *testing.T, airdrop bool) *testServer {
	t.Helper()
	l := ledger.NewLedger(memory.NewMemoryAccountStore(), ledger.WithRent(rent.Flat(100)))
	srv := httptest.NewServer(NewHandler(l, zap.NewNop(), airdrop).Routes())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, ledger: l}
}

func user(b byte) models.Address {
	var a models.Address
	for i := range a {
		a[i] = b*3 + byte(i)
	}
	return a
}

func (s *testServer) do(t *testing.T, method, path string, signer *models.Address, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	if signer != nil {
		req.Header.Set(SignerHeader, signer.String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	resp, body := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestCampaignLifecycle(t *testing.T) {
	s := newTestServer(t, true)
	owner, backer := user(1), user(2)

	resp, _ := s.do(t, http.MethodPost, "/airdrop", nil, map[string]any{"address": owner.String(), "lamports": 1000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/airdrop", nil, map[string]any{"address": backer.String(), "lamports": 5000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/campaigns", &owner, map[string]any{
		"name": "My FundMe", "description": "roof repairs", "target_fund": 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	campaign := body["address"].(string)
	assert.Equal(t, float64(100), body["balance"])
	assert.Equal(t, "0.000001", body["target_sol"])

	resp, _ = s.do(t, http.MethodPost, "/campaigns", &owner, map[string]any{"name": "again", "target_fund": 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/campaigns/"+campaign+"/withdraw", &owner, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	for _, amount := range []int{600, 500} {
		resp, _ = s.do(t, http.MethodPost, "/campaigns/"+campaign+"/fund", &backer, map[string]any{"amount": amount})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body = s.do(t, http.MethodGet, "/campaigns/"+campaign, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1200), body["balance"])
	assert.Equal(t, float64(1100), body["surplus"])
	assert.Equal(t, true, body["target_reached"])

	resp, _ = s.do(t, http.MethodPost, "/campaigns/"+campaign+"/withdraw", &backer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	other := user(3)
	resp, _ = s.do(t, http.MethodPost, "/airdrop", nil, map[string]any{"address": other.String(), "lamports": 1000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body = s.do(t, http.MethodPost, "/campaigns", &other, map[string]any{"name": "other", "target_fund": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	escrow := models.MustParseAddress(campaign)
	resp, _ = s.do(t, http.MethodPost, "/campaigns/"+body["address"].(string)+"/fund", &escrow, map[string]any{"amount": 1200})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/campaigns/"+campaign+"/withdraw", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1100), body["lamports"])

	resp, body = s.do(t, http.MethodGet, "/accounts/balance?address="+owner.String(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(900+1100), body["lamports"])

	resp, _ = s.do(t, http.MethodPost, "/campaigns/"+campaign+"/withdraw", &owner, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTransactionsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	owner := user(1)
	ctx := context.Background()
	_, err := s.ledger.Airdrop(ctx, owner, 1000)
	require.NoError(t, err)
	c, err := s.ledger.Initialize(ctx, owner, "n", "d", 10)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/campaigns/"+c.Address.String()+"/transactions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var txs []models.Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&txs))
	require.Len(t, txs, 1)
	assert.Equal(t, models.KindCreate, txs[0].Kind)
	assert.Equal(t, owner, txs[0].From)
}

func TestErrors(t *testing.T) {
	s := newTestServer(t, false)
	owner := user(1)
	unknown := user(40)

	tests := []struct {
		name   string
		method string
		path   string
		signer *models.Address
		body   any
		want   int
	}{
		{"missing signer", http.MethodPost, "/campaigns", nil, map[string]any{"target_fund": 1}, http.StatusUnauthorized},
		{"zero target", http.MethodPost, "/campaigns", &owner, map[string]any{"target_fund": 0}, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/campaigns", &owner, "not an object", http.StatusBadRequest},
		{"owner cannot pay", http.MethodPost, "/campaigns", &owner, map[string]any{"target_fund": 1}, http.StatusUnprocessableEntity},
		{"bad address", http.MethodGet, "/campaigns/not-base58!", nil, nil, http.StatusBadRequest},
		{"unknown campaign", http.MethodGet, "/campaigns/" + unknown.String(), nil, nil, http.StatusNotFound},
		{"fund itself", http.MethodPost, "/campaigns/" + unknown.String() + "/fund", &unknown, map[string]any{"amount": 1}, http.StatusBadRequest},
		{"fund unknown", http.MethodPost, "/campaigns/" + unknown.String() + "/fund", &owner, map[string]any{"amount": 1}, http.StatusNotFound},
		{"airdrop disabled", http.MethodPost, "/airdrop", nil, map[string]any{"lamports": 1}, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := s.do(t, tc.method, tc.path, tc.signer, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestBalance_RequiresAddress(t *testing.T) {
	s := newTestServer(t, false)
	resp, _ := s.do(t, http.MethodGet, "/accounts/balance", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
