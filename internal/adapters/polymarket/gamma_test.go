package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polymonitor/internal/adapters/polymarket"
	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gammaServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

func TestOutcomePrice_MatchesTokenIndex(t *testing.T) {
	// el token pedido es el SEGUNDO del mercado; el precio correcto
	// es outcomePrices[1], no outcomePrices[0]
	srv := gammaServer(t, `[{
		"conditionId": "0xc1",
		"question": "Will it rain?",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.72\", \"0.28\"]",
		"clobTokenIds": "[\"tok-yes\", \"tok-no\"]",
		"active": true,
		"closed": false
	}]`)
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL)

	price, err := client.OutcomePrice(context.Background(), "tok-no")
	require.NoError(t, err)
	assert.InDelta(t, 0.28, price, 1e-9)
}

func TestOutcomePrice_NoMarket(t *testing.T) {
	srv := gammaServer(t, `[]`)
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL)

	_, err := client.OutcomePrice(context.Background(), "tok-unknown")
	assert.ErrorIs(t, err, domain.ErrNoPrice)
}

func TestOutcomePrice_TokenNotInMapping(t *testing.T) {
	srv := gammaServer(t, `[{
		"conditionId": "0xc1",
		"question": "Who wins?",
		"outcomes": "[\"A\", \"B\", \"C\"]",
		"outcomePrices": "[\"0.5\", \"0.3\", \"0.2\"]",
		"clobTokenIds": "[\"tok-a\", \"tok-b\", \"tok-c\"]",
		"active": true,
		"closed": false
	}]`)
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL)

	_, err := client.OutcomePrice(context.Background(), "tok-x")
	var ambiguous *domain.AmbiguousMappingError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "tok-x", ambiguous.TokenID)
	assert.Equal(t, []string{"A", "B", "C"}, ambiguous.Outcomes)
}

func TestOutcomePrice_MismatchedArrays(t *testing.T) {
	srv := gammaServer(t, `[{
		"conditionId": "0xc1",
		"question": "Broken market",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.5\"]",
		"clobTokenIds": "[\"tok-yes\", \"tok-no\"]"
	}]`)
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL)

	_, err := client.OutcomePrice(context.Background(), "tok-yes")
	var ambiguous *domain.AmbiguousMappingError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestOutcomePrice_BadPrice(t *testing.T) {
	srv := gammaServer(t, `[{
		"conditionId": "0xc1",
		"question": "Stale market",
		"outcomes": ["Yes", "No"],
		"outcomePrices": ["0", "1.0"],
		"clobTokenIds": ["tok-yes", "tok-no"]
	}]`)
	defer srv.Close()

	client := polymarket.NewClient("", srv.URL)

	_, err := client.OutcomePrice(context.Background(), "tok-yes")
	assert.ErrorIs(t, err, domain.ErrNoPrice)
}
