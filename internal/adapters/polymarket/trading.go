package polymarket

// trading.go — Real order submission via Polymarket CLOB API.
//
// Implements ports.OrderVenue using AuthClient for L1/L2 auth.
// Exit orders are GTC (good-till-cancelled) limit sells.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

// TradingClient implements ports.OrderVenue.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient over an authenticated client.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// SubmitLimitSell signs and submits a SELL limit order to the CLOB.
// The price must already be clamped to the venue's legal range — this
// layer only translates and classifies, it never adjusts.
func (tc *TradingClient) SubmitLimitSell(ctx context.Context, tokenID string, price, size float64) (domain.SellSubmission, error) {
	if price < domain.MinOrderPrice || price > domain.MaxOrderPrice {
		return domain.SellSubmission{}, fmt.Errorf("submit sell: price %.4f outside [%.3f, %.3f]", price, domain.MinOrderPrice, domain.MaxOrderPrice)
	}

	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.SellSubmission{}, fmt.Errorf("submit sell: creds: %w", err)
	}

	negRisk, err := tc.auth.IsNegRisk(ctx, tokenID)
	if err != nil {
		// neg-risk es metadata del contrato de firma; sin ella no se puede
		// construir una orden válida
		return domain.SellSubmission{}, fmt.Errorf("submit sell: %w", classifyVenueError(err))
	}

	signed, err := tc.auth.buildSignedSell(tokenID, price, size, negRisk)
	if err != nil {
		return domain.SellSubmission{}, fmt.Errorf("submit sell: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          "SELL",
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.creds.APIKey,
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.SellSubmission{}, fmt.Errorf("submit sell: post: %w", classifyVenueError(err))
	}

	if !resp.Success || resp.ErrorMsg != "" {
		err := fmt.Errorf("clob rejected order: %s", resp.ErrorMsg)
		return domain.SellSubmission{}, fmt.Errorf("submit sell: %w", classifyVenueError(err))
	}

	return domain.SellSubmission{
		OrderID:     resp.OrderID,
		Status:      resp.Status,
		TakenAmount: parseUSDC(resp.TakingAmount),
		MadeAmount:  parseUSDC(resp.MakingAmount),
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// classifyVenueError separa el error terminal "orderbook no existe"
// (mercado cerrado o resuelto — requiere resolución manual) del resto
// de rechazos genéricos, que quedan reintentable en el siguiente tick.
func classifyVenueError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "orderbook") && (strings.Contains(msg, "does not exist") || strings.Contains(msg, "404")) {
		return fmt.Errorf("%w: %s", domain.ErrMarketSettled, err.Error())
	}
	return err
}
