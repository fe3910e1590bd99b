package scanner

import (
	"strconv"
	"time"
)

// Default block range and ordering for history queries
const (
	DefaultStartBlock = 0
	DefaultEndBlock   = 99999999
	SortDesc          = "desc"
	SortAsc           = "asc"
)

// HistoryOptions narrows a transaction history query
type HistoryOptions struct {
	StartBlock uint64
	EndBlock   uint64 // 0 means DefaultEndBlock
	Sort       string // "asc" or "desc", default "desc"
	Page       int
	Offset     int
	Contract   string   // token contract filter for token transfers
	Category   Category // credential category, default primary
}

func (o HistoryOptions) withDefaults() HistoryOptions {
	if o.EndBlock == 0 {
		o.EndBlock = DefaultEndBlock
	}
	if o.Sort != SortAsc {
		o.Sort = SortDesc
	}
	if o.Category == "" {
		o.Category = PrimaryCategory
	}
	return o
}

// Transaction is a normal transaction as listed by account/txlist
type Transaction struct {
	BlockNumber       string `json:"blockNumber"`
	TimeStamp         string `json:"timeStamp"`
	Hash              string `json:"hash"`
	Nonce             string `json:"nonce"`
	BlockHash         string `json:"blockHash"`
	TransactionIndex  string `json:"transactionIndex"`
	From              string `json:"from"`
	To                string `json:"to"`
	Value             string `json:"value"`
	Gas               string `json:"gas"`
	GasPrice          string `json:"gasPrice"`
	IsError           string `json:"isError"`
	TxReceiptStatus   string `json:"txreceipt_status"`
	Input             string `json:"input"`
	ContractAddress   string `json:"contractAddress"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	GasUsed           string `json:"gasUsed"`
	Confirmations     string `json:"confirmations"`
	MethodID          string `json:"methodId"`
	FunctionName      string `json:"functionName"`
}

// Timestamp returns the block time
func (t *Transaction) Timestamp() time.Time {
	return parseUnix(t.TimeStamp)
}

// Failed reports whether the transaction reverted
func (t *Transaction) Failed() bool {
	return t.IsError == "1"
}

// TokenTransfer is a BEP-20 transfer event as listed by account/tokentx
type TokenTransfer struct {
	BlockNumber       string `json:"blockNumber"`
	TimeStamp         string `json:"timeStamp"`
	Hash              string `json:"hash"`
	Nonce             string `json:"nonce"`
	BlockHash         string `json:"blockHash"`
	From              string `json:"from"`
	ContractAddress   string `json:"contractAddress"`
	To                string `json:"to"`
	Value             string `json:"value"`
	TokenName         string `json:"tokenName"`
	TokenSymbol       string `json:"tokenSymbol"`
	TokenDecimal      string `json:"tokenDecimal"`
	TransactionIndex  string `json:"transactionIndex"`
	Gas               string `json:"gas"`
	GasPrice          string `json:"gasPrice"`
	GasUsed           string `json:"gasUsed"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	Input             string `json:"input"`
	Confirmations     string `json:"confirmations"`
}

// Timestamp returns the block time
func (t *TokenTransfer) Timestamp() time.Time {
	return parseUnix(t.TimeStamp)
}

// Amount scales the raw value by the decimals reported with the transfer, or by
// fallbackDecimals when the provider left them out
func (t *TokenTransfer) Amount(fallbackDecimals int) (float64, error) {
	decimals := fallbackDecimals
	if d, err := strconv.Atoi(t.TokenDecimal); err == nil && d >= 0 {
		decimals = d
	}
	return ScaleAmount(t.Value, decimals)
}

// InternalTransaction is a contract-internal value transfer (account/txlistinternal)
type InternalTransaction struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	Input           string `json:"input"`
	Type            string `json:"type"`
	Gas             string `json:"gas"`
	GasUsed         string `json:"gasUsed"`
	TraceID         string `json:"traceId"`
	IsError         string `json:"isError"`
	ErrCode         string `json:"errCode"`
}

// BNBPrice is the stats/bnbprice result
type BNBPrice struct {
	BTC          string `json:"ethbtc"`
	BTCTimestamp string `json:"ethbtc_timestamp"`
	USD          string `json:"ethusd"`
	USDTimestamp string `json:"ethusd_timestamp"`
}

func parseUnix(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
