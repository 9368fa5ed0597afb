package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/risk"
)

type wireBalance struct {
	Details []struct {
		Ccy       string `json:"ccy"`
		CashBal   string `json:"cashBal"`
		AvailBal  string `json:"availBal"`
		FrozenBal string `json:"frozenBal"`
	} `json:"details"`
}

// AccountBalance fetches the trading-account balance and returns it as a
// per-currency snapshot stamped with the fetch time.
func (c *Client) AccountBalance(ctx context.Context) (market.Account, error) {
	data, err := c.do(ctx, "GET", "/api/v5/account/balance", "")
	if err != nil {
		return market.Account{}, err
	}

	var rows []wireBalance
	if err := json.Unmarshal(data, &rows); err != nil {
		return market.Account{}, fmt.Errorf("%w: balance: %v", broker.ErrParse, err)
	}
	if len(rows) == 0 {
		return market.Account{}, fmt.Errorf("%w: empty balance reply", broker.ErrInvalidData)
	}

	acct := market.NewAccount()
	for _, d := range rows[0].Details {
		total, err := parseF(d.CashBal)
		if err != nil {
			return market.Account{}, fmt.Errorf("%w: balance %s %q", broker.ErrInvalidData, d.Ccy, d.CashBal)
		}
		free, _ := parseF(d.AvailBal)
		used, _ := parseF(d.FrozenBal)
		acct.Balances[d.Ccy] = market.Balance{Total: total, Free: free, Used: used}
	}
	return acct, nil
}

type wirePosition struct {
	InstID string `json:"instId"`
	Pos    string `json:"pos"`
	AvgPx  string `json:"avgPx"`
	CTime  string `json:"cTime"`
}

// Positions returns the open position for symbol, nil when flat.
func (c *Client) Positions(ctx context.Context, symbol string) (*risk.Position, error) {
	if symbol == "" {
		symbol = c.symbol
	}
	path := "/api/v5/account/positions?instId=" + url.QueryEscape(symbol)
	data, err := c.do(ctx, "GET", path, "")
	if err != nil {
		return nil, err
	}

	var rows []wirePosition
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: positions: %v", broker.ErrParse, err)
	}
	for _, r := range rows {
		if r.InstID != symbol {
			continue
		}
		size, err := parseF(r.Pos)
		if err != nil || size <= 0 {
			continue
		}
		avg, _ := parseF(r.AvgPx)
		pos := &risk.Position{Symbol: symbol, Size: size, AvgPrice: avg}
		if ms, perr := parseF(r.CTime); perr == nil && ms > 0 {
			pos.OpenedAt = time.UnixMilli(int64(ms))
		}
		return pos, nil
	}
	return nil, nil
}

type wireOrder struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`

	AttachAlgoOrds []wireAlgoOrd `json:"attachAlgoOrds,omitempty"`
}

type wireAlgoOrd struct {
	SlTriggerPx string `json:"slTriggerPx,omitempty"`
	SlOrdPx     string `json:"slOrdPx,omitempty"`
	TpTriggerPx string `json:"tpTriggerPx,omitempty"`
	TpOrdPx     string `json:"tpOrdPx,omitempty"`
}

type wireOrderAck struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// PlaceOrder submits a spot cash market order. Guard prices are attached as
// an algo order so the venue holds the protective exits. Market order acks
// carry no fill price; the returned Fill leaves Price zero and the caller
// records the trade at its current quote.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	ord := wireOrder{
		InstID:  req.Symbol,
		TdMode:  "cash",
		Side:    string(req.Side),
		OrdType: string(req.Type),
		Sz:      fmt.Sprintf("%g", req.Size),
	}
	if req.StopLoss != nil || req.TakeProfit != nil {
		var algo wireAlgoOrd
		if req.StopLoss != nil {
			algo.SlTriggerPx = fmt.Sprintf("%g", *req.StopLoss)
			algo.SlOrdPx = "-1"
		}
		if req.TakeProfit != nil {
			algo.TpTriggerPx = fmt.Sprintf("%g", *req.TakeProfit)
			algo.TpOrdPx = "-1"
		}
		ord.AttachAlgoOrds = []wireAlgoOrd{algo}
	}

	body, err := json.Marshal(ord)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("%w: order encode: %v", broker.ErrParse, err)
	}

	data, err := c.do(ctx, "POST", "/api/v5/trade/order", string(body))
	if err != nil {
		return broker.Fill{}, err
	}

	var acks []wireOrderAck
	if err := json.Unmarshal(data, &acks); err != nil {
		return broker.Fill{}, fmt.Errorf("%w: order ack: %v", broker.ErrParse, err)
	}
	if len(acks) == 0 {
		return broker.Fill{}, fmt.Errorf("%w: empty order ack", broker.ErrInvalidData)
	}
	ack := acks[0]
	if ack.SCode != "" && ack.SCode != "0" {
		code, _ := strconv.Atoi(ack.SCode)
		return broker.Fill{}, &broker.APIError{Code: code, Msg: ack.SMsg}
	}

	return broker.Fill{
		OrderID: ack.OrdID,
		Side:    req.Side,
		Size:    req.Size,
		Time:    time.Now(),
	}, nil
}
