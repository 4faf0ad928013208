package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// bookResponse es la respuesta de GET /book?token_id=.
type bookResponse struct {
	AssetID string         `json:"asset_id"`
	Market  string         `json:"market"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobNegRiskResponse es la respuesta de GET /neg-risk.
type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de un mercado en Gamma.
// Los arrays de outcomes llegan a veces como array JSON y a veces como
// string con un array JSON dentro — stringOrArray absorbe ambos.
type gammaMarket struct {
	ConditionID   string        `json:"conditionId"`
	Question      string        `json:"question"`
	Slug          string        `json:"slug"`
	Outcomes      stringOrArray `json:"outcomes"`
	OutcomePrices stringOrArray `json:"outcomePrices"`
	ClobTokenIDs  stringOrArray `json:"clobTokenIds"`
	Active        bool          `json:"active"`
	Closed        bool          `json:"closed"`
}

// stringOrArray es un array de strings que Gamma puede devolver ya
// deserializado o doblemente codificado ("[\"a\",\"b\"]").
type stringOrArray []string

func (s *stringOrArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	if inner == "" {
		*s = nil
		return nil
	}
	if err := json.Unmarshal([]byte(inner), &arr); err != nil {
		return err
	}
	*s = arr
	return nil
}
