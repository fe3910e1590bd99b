package deposits

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"scangofer/internal/scanner"
)

const day = 24 * time.Hour

// TransferSource lists BEP-20 transfers of an address
type TransferSource interface {
	GetTokenTransactions(ctx context.Context, address string, opts scanner.HistoryOptions) ([]scanner.TokenTransfer, error)
}

// ServiceConfig holds the platform wallets and tokens
type ServiceConfig struct {
	SystemAddress string
	AccessAddress string
	PLEX          scanner.Token
	USDT          scanner.Token
}

// Service answers payment questions about a wallet from its on-chain transfers
type Service struct {
	source  TransferSource
	catalog *Catalog
	cfg     ServiceConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a new Service
func NewService(source TransferSource, catalog *Catalog, cfg ServiceConfig, logger zerolog.Logger) *Service {
	return &Service{
		source:  source,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With().Str("component", "deposits").Logger(),
		now:     time.Now,
	}
}

// Catalog returns the plan catalog
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) token(currency Currency) scanner.Token {
	if currency == CurrencyPLEX {
		return s.cfg.PLEX
	}
	return s.cfg.USDT
}

func (s *Service) transfers(ctx context.Context, address string, currency Currency, category scanner.Category) ([]scanner.TokenTransfer, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %s", scanner.ErrInvalidAddress, address)
	}
	transfers, err := s.source.GetTokenTransactions(ctx, address, scanner.HistoryOptions{
		Contract: s.token(currency).Address.Hex(),
		Category: category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s transfers of %s: %w", currency, address, err)
	}
	return transfers, nil
}

func (s *Service) amount(tx *scanner.TokenTransfer, currency Currency) (float64, bool) {
	amount, err := tx.Amount(s.token(currency).Decimals)
	if err != nil {
		s.logger.Debug().Err(err).Str("txHash", tx.Hash).Msg("skipping transfer with unreadable value")
		return 0, false
	}
	return amount, true
}

// CheckAuthorization reports whether user paid the authorization fee to the system wallet
func (s *Service) CheckAuthorization(ctx context.Context, user string) (*Authorization, error) {
	transfers, err := s.transfers(ctx, user, CurrencyPLEX, scanner.CategoryAuthorization)
	if err != nil {
		return nil, err
	}

	result := &Authorization{Address: user}
	target := s.catalog.Authorization.AmountPLEX

	for i := range transfers {
		tx := &transfers[i]
		if !scanner.SameAddress(tx.From, user) || !scanner.SameAddress(tx.To, s.cfg.SystemAddress) {
			continue
		}
		amount, ok := s.amount(tx, CurrencyPLEX)
		if !ok || !s.catalog.WithinTolerance(amount, target) {
			continue
		}
		// transfers come newest first; keep the latest payment
		if !result.Authorized || tx.Timestamp().After(result.PaidAt) {
			result.Authorized = true
			result.TxHash = tx.Hash
			result.Amount = amount
			result.PaidAt = tx.Timestamp()
		}
	}

	s.logger.Debug().
		Str("address", user).
		Bool("authorized", result.Authorized).
		Msg("authorization checked")
	return result, nil
}

// CheckAccess sums the access payments of user. Each whole USDPerDay buys one day,
// counted from the latest payment.
func (s *Service) CheckAccess(ctx context.Context, user string) (*Access, error) {
	transfers, err := s.transfers(ctx, user, CurrencyUSDT, scanner.CategorySubscription)
	if err != nil {
		return nil, err
	}

	rule := s.catalog.Access
	result := &Access{Address: user}

	for i := range transfers {
		tx := &transfers[i]
		if !scanner.SameAddress(tx.From, user) || !scanner.SameAddress(tx.To, s.cfg.AccessAddress) {
			continue
		}
		amount, ok := s.amount(tx, CurrencyUSDT)
		if !ok || amount < rule.MinUSDT || amount > rule.MaxUSDT {
			continue
		}

		result.Payments++
		result.TotalPaid += amount
		result.Days += int(math.Floor(amount / rule.USDPerDay))
		if ts := tx.Timestamp(); ts.After(result.LastPaymentAt) {
			result.LastPaymentAt = ts
		}
	}

	if result.Payments > 0 {
		result.ExpiresAt = result.LastPaymentAt.Add(time.Duration(result.Days) * day)
		result.DaysRemaining = daysUntil(s.now(), result.ExpiresAt)
		result.Active = result.DaysRemaining > 0
	}
	return result, nil
}

// UserDeposits lists the deposits user made to the system wallet, oldest first
func (s *Service) UserDeposits(ctx context.Context, user string) ([]Deposit, error) {
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("%w: %s", scanner.ErrInvalidAddress, user)
	}

	now := s.now()
	deposits := make([]Deposit, 0)

	for _, currency := range []Currency{CurrencyPLEX, CurrencyUSDT} {
		transfers, err := s.transfers(ctx, s.cfg.SystemAddress, currency, scanner.CategoryDeposits)
		if err != nil {
			return nil, err
		}

		for i := range transfers {
			tx := &transfers[i]
			if !scanner.SameAddress(tx.From, user) || !scanner.SameAddress(tx.To, s.cfg.SystemAddress) {
				continue
			}
			amount, ok := s.amount(tx, currency)
			if !ok {
				continue
			}

			usd := amount
			if currency == CurrencyPLEX {
				usd = amount * s.catalog.PlexPriceUSD
			}
			// authorization fees and dust
			if usd < s.catalog.MinDepositUSD {
				continue
			}

			plan, ok := s.catalog.Match(amount, currency)
			if !ok {
				s.logger.Debug().
					Str("txHash", tx.Hash).
					Float64("amount", amount).
					Str("currency", string(currency)).
					Msg("transfer matches no plan")
				continue
			}

			deposits = append(deposits, newDeposit(tx, plan, currency, amount, usd, now))
		}
	}

	sort.SliceStable(deposits, func(i, j int) bool {
		return deposits[i].StartedAt.Before(deposits[j].StartedAt)
	})
	return deposits, nil
}

func newDeposit(tx *scanner.TokenTransfer, plan *Plan, currency Currency, amount, usd float64, now time.Time) Deposit {
	started := tx.Timestamp()
	ends := started.Add(time.Duration(plan.Days) * day)
	block, _ := strconv.ParseUint(tx.BlockNumber, 10, 64)

	d := Deposit{
		TxHash:         tx.Hash,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		Currency:       currency,
		Amount:         amount,
		AmountUSD:      usd,
		Percentage:     plan.Percentage,
		Days:           plan.Days,
		BlockNumber:    block,
		StartedAt:      started,
		EndsAt:         ends,
		Status:         StatusCompleted,
		ExpectedProfit: plan.Profit(usd),
		TotalReturn:    plan.TotalReturn(usd),
	}
	if now.Before(ends) {
		d.Status = StatusActive
		d.DaysRemaining = daysUntil(now, ends)
	}
	return d
}

// DepositStats aggregates UserDeposits
func (s *Service) DepositStats(ctx context.Context, user string) (*DepositStats, error) {
	deposits, err := s.UserDeposits(ctx, user)
	if err != nil {
		return nil, err
	}

	stats := &DepositStats{Address: user, Total: len(deposits)}
	for _, d := range deposits {
		stats.TotalInvestedUSD += d.AmountUSD
		stats.ExpectedProfitUSD += d.ExpectedProfit
		stats.TotalReturnUSD += d.TotalReturn
		if d.Status == StatusActive {
			stats.Active++
			stats.ActiveUSD += d.AmountUSD
		} else {
			stats.Completed++
		}
	}
	return stats, nil
}

// CheckDepositLimit reports whether user may add amountUSD without exceeding the cap on
// active deposits
func (s *Service) CheckDepositLimit(ctx context.Context, user string, amountUSD float64) (*LimitCheck, error) {
	if amountUSD < 0 {
		return nil, fmt.Errorf("deposit amount must be non-negative, got %v", amountUSD)
	}
	stats, err := s.DepositStats(ctx, user)
	if err != nil {
		return nil, err
	}

	check := &LimitCheck{
		Address:      user,
		ActiveUSD:    stats.ActiveUSD,
		RequestedUSD: amountUSD,
		MaxUSD:       s.catalog.MaxActiveUSD,
		AvailableUSD: math.Max(0, s.catalog.MaxActiveUSD-stats.ActiveUSD),
	}
	check.Allowed = stats.ActiveUSD+amountUSD <= s.catalog.MaxActiveUSD
	return check, nil
}

// FindTransfer looks for a transfer of about amount tokens from one wallet to another.
// It returns nil when there is none.
func (s *Service) FindTransfer(ctx context.Context, from, to string, amount float64, currency Currency) (*scanner.TokenTransfer, error) {
	transfers, err := s.transfers(ctx, from, currency, scanner.PrimaryCategory)
	if err != nil {
		return nil, err
	}
	for i := range transfers {
		tx := &transfers[i]
		if !scanner.SameAddress(tx.From, from) || !scanner.SameAddress(tx.To, to) {
			continue
		}
		if got, ok := s.amount(tx, currency); ok && s.catalog.WithinTolerance(got, amount) {
			return tx, nil
		}
	}
	return nil, nil
}

// daysUntil rounds the remaining time up to whole days, never below zero
func daysUntil(now, end time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) / float64(day)))
}
