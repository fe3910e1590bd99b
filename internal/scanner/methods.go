package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
)

// ErrInvalidAddress is returned without a network call for malformed addresses or hashes
var ErrInvalidAddress = errors.New("invalid address")

// DefaultGasPrice is returned by GetGasPrice when the provider cannot be reached
var DefaultGasPrice = big.NewInt(5 * params.GWei)

// The typed reads below never fail "hard": on error they return the documented safe
// default together with the error, so callers may ignore the error and still get a
// usable value.

// GetBalance returns the native balance of address in BNB
func (c *Client) GetBalance(ctx context.Context, address string) (float64, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	q := NewParams(
		"module", "account",
		"action", "balance",
		"address", address,
		"tag", "latest",
	)

	balance, err := c.requestAmount(ctx, q, PrimaryCategory, NativeDecimals)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("balance unavailable")
		return 0, err
	}
	return balance, nil
}

// GetTokenBalance returns the token balance of address in whole tokens
func (c *Client) GetTokenBalance(ctx context.Context, address, contract string) (float64, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	if !common.IsHexAddress(contract) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, contract)
	}

	q := NewParams(
		"module", "account",
		"action", "tokenbalance",
		"contractaddress", contract,
		"address", address,
		"tag", "latest",
	)

	balance, err := c.requestAmount(ctx, q, PrimaryCategory, c.tokens.TokenDecimals(contract))
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("address", address).
			Str("contract", contract).
			Msg("token balance unavailable")
		return 0, err
	}
	return balance, nil
}

func (c *Client) requestAmount(ctx context.Context, q *Params, category Category, decimals int) (float64, error) {
	resp, err := c.Request(ctx, q, category)
	if err != nil {
		return 0, err
	}
	raw, err := resp.ResultString()
	if err != nil {
		return 0, err
	}
	return ScaleAmount(raw, decimals)
}

// GetTransactions returns the normal transactions of address
func (c *Client) GetTransactions(ctx context.Context, address string, opts HistoryOptions) ([]Transaction, error) {
	if !common.IsHexAddress(address) {
		return []Transaction{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	opts = opts.withDefaults()

	var txs []Transaction
	if err := c.requestList(ctx, historyParams("txlist", address, opts), opts.Category, &txs); err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("transactions unavailable")
		return []Transaction{}, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// GetTokenTransactions returns the BEP-20 transfers of address, optionally limited to
// opts.Contract
func (c *Client) GetTokenTransactions(ctx context.Context, address string, opts HistoryOptions) ([]TokenTransfer, error) {
	if !common.IsHexAddress(address) {
		return []TokenTransfer{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	opts = opts.withDefaults()

	var transfers []TokenTransfer
	if err := c.requestList(ctx, historyParams("tokentx", address, opts), opts.Category, &transfers); err != nil {
		c.logger.Warn().
			Err(err).
			Str("address", address).
			Str("contract", opts.Contract).
			Msg("token transfers unavailable")
		return []TokenTransfer{}, err
	}
	if transfers == nil {
		transfers = []TokenTransfer{}
	}
	return transfers, nil
}

// GetInternalTransactions returns the internal transactions of address
func (c *Client) GetInternalTransactions(ctx context.Context, address string) ([]InternalTransaction, error) {
	if !common.IsHexAddress(address) {
		return []InternalTransaction{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	q := NewParams(
		"module", "account",
		"action", "txlistinternal",
		"address", address,
		"sort", SortDesc,
	)

	var txs []InternalTransaction
	if err := c.requestList(ctx, q, PrimaryCategory, &txs); err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("internal transactions unavailable")
		return []InternalTransaction{}, err
	}
	if txs == nil {
		txs = []InternalTransaction{}
	}
	return txs, nil
}

func historyParams(action, address string, opts HistoryOptions) *Params {
	p := NewParams(
		"module", "account",
		"action", action,
	)
	if opts.Contract != "" {
		p.Set("contractaddress", opts.Contract)
	}
	p.Set("address", address)
	if opts.Page > 0 {
		p.Set("page", opts.Page)
	}
	if opts.Offset > 0 {
		p.Set("offset", opts.Offset)
	}
	p.Set("startblock", opts.StartBlock)
	p.Set("endblock", opts.EndBlock)
	p.Set("sort", opts.Sort)
	return p
}

func (c *Client) requestList(ctx context.Context, q *Params, category Category, out interface{}) error {
	resp, err := c.Request(ctx, q, category)
	if err != nil {
		return err
	}
	return resp.DecodeResult(out)
}

// GetGasPrice returns the current gas price in wei
func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	resp, err := c.Request(ctx, NewParams("module", "proxy", "action", "eth_gasPrice"), PrimaryCategory)
	if err == nil {
		var raw string
		if raw, err = resp.ResultString(); err == nil {
			var price *big.Int
			if price, err = hexutil.DecodeBig(raw); err == nil {
				return price, nil
			}
			err = fmt.Errorf("%w: gas price %q: %v", ErrBadResponse, raw, err)
		}
	}
	c.logger.Warn().Err(err).Msg("gas price unavailable, using default")
	return new(big.Int).Set(DefaultGasPrice), err
}

// GetBlockNumber returns the latest block number
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	resp, err := c.Request(ctx, NewParams("module", "proxy", "action", "eth_blockNumber"), PrimaryCategory)
	if err == nil {
		var raw string
		if raw, err = resp.ResultString(); err == nil {
			var number uint64
			if number, err = hexutil.DecodeUint64(raw); err == nil {
				return number, nil
			}
			err = fmt.Errorf("%w: block number %q: %v", ErrBadResponse, raw, err)
		}
	}
	c.logger.Warn().Err(err).Msg("block number unavailable")
	return 0, err
}

// GetTransactionStatus reports whether the receipt of txHash has status 1
func (c *Client) GetTransactionStatus(ctx context.Context, txHash string) (bool, error) {
	if !isTxHash(txHash) {
		return false, fmt.Errorf("%w: %s", ErrInvalidAddress, txHash)
	}

	q := NewParams(
		"module", "transaction",
		"action", "gettxreceiptstatus",
		"txhash", txHash,
	)

	var result struct {
		Status string `json:"status"`
	}
	if err := c.requestList(ctx, q, PrimaryCategory, &result); err != nil {
		c.logger.Warn().Err(err).Str("txHash", txHash).Msg("transaction status unavailable")
		return false, err
	}
	return result.Status == "1", nil
}

// GetTransactionInfo returns the raw eth_getTransactionByHash object, nil when unknown
func (c *Client) GetTransactionInfo(ctx context.Context, txHash string) (json.RawMessage, error) {
	if !isTxHash(txHash) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, txHash)
	}

	q := NewParams(
		"module", "proxy",
		"action", "eth_getTransactionByHash",
		"txhash", txHash,
	)

	resp, err := c.Request(ctx, q, PrimaryCategory)
	if err != nil {
		c.logger.Warn().Err(err).Str("txHash", txHash).Msg("transaction info unavailable")
		return nil, err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}
	return resp.Result, nil
}

// GetBNBPrice returns the BNB price in USD
func (c *Client) GetBNBPrice(ctx context.Context) (float64, error) {
	var price BNBPrice
	err := c.requestList(ctx, NewParams("module", "stats", "action", "bnbprice"), PrimaryCategory, &price)
	if err == nil {
		var usd float64
		if usd, err = strconv.ParseFloat(price.USD, 64); err == nil {
			return usd, nil
		}
		err = fmt.Errorf("%w: bnb price %q", ErrBadResponse, price.USD)
	}
	c.logger.Warn().Err(err).Msg("bnb price unavailable")
	return 0, err
}

func isTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
