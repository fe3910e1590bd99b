package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"scangofer/internal/config"
	"scangofer/internal/deposits"
	"scangofer/internal/scanner"
	"scangofer/internal/server"
)

const shutdownTimeout = 30 * time.Second

// env holds what every command needs
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadEnv(c *cli.Context) (*env, error) {
	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		if err := config.ValidateLogLevel(lvl); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.LogLevel = lvl
	}
	return &env{cfg: cfg, logger: setupLogger(cfg.LogLevel)}, nil
}

// withClient runs fn with a scanner client and logs the call counters afterwards
func withClient(c *cli.Context, fn func(ctx context.Context, e *env, client *scanner.Client) error) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	client, err := scanner.NewFromConfig(e.cfg, nil, e.logger)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = fn(ctx, e, client)
	e.logger.Debug().Interface("stats", client.Stats()).Msg("client stats")
	return err
}

func withDeposits(c *cli.Context, fn func(ctx context.Context, svc *deposits.Service) (interface{}, error)) error {
	return withClient(c, func(ctx context.Context, e *env, client *scanner.Client) error {
		catalog, err := deposits.LoadCatalog(e.cfg.PlansFile)
		if err != nil {
			return err
		}
		tokens := client.Tokens()
		svc := deposits.NewService(client, catalog, deposits.ServiceConfig{
			SystemAddress: e.cfg.Addresses.System,
			AccessAddress: e.cfg.Addresses.Access,
			PLEX:          tokens.PLEX,
			USDT:          tokens.USDT,
		}, e.logger)

		result, err := fn(ctx, svc)
		if err != nil {
			return err
		}
		return printJSON(c, result)
	})
}

func addressArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one address argument, got %d", c.NArg())
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Uint64Flag{Name: "startblock", Value: scanner.DefaultStartBlock},
		&cli.Uint64Flag{Name: "endblock", Value: scanner.DefaultEndBlock},
		&cli.StringFlag{Name: "sort", Value: scanner.SortDesc, Usage: "asc or desc"},
		&cli.IntFlag{Name: "page"},
		&cli.IntFlag{Name: "offset"},
	}
}

func historyOptions(c *cli.Context) scanner.HistoryOptions {
	return scanner.HistoryOptions{
		StartBlock: c.Uint64("startblock"),
		EndBlock:   c.Uint64("endblock"),
		Sort:       c.String("sort"),
		Page:       c.Int("page"),
		Offset:     c.Int("offset"),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP gateway",
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			logger := e.logger
			logger.Info().
				Str("config", c.String("config")).
				Str("addr", e.cfg.Addr()).
				Str("apiUrl", e.cfg.Scanner.APIURL).
				Float64("rateLimit", e.cfg.Scanner.RateLimit).
				Msg("starting scangofer")

			srv, err := server.New(e.cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit

			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return srv.Stop(ctx)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "print the BNB or token balance of an address",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "token contract address"},
		},
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, _ *env, client *scanner.Client) error {
				out := map[string]interface{}{"address": address}
				var balance float64
				if token := c.String("token"); token != "" {
					out["contract"] = token
					balance, err = client.GetTokenBalance(ctx, address, token)
				} else {
					balance, err = client.GetBalance(ctx, address)
				}
				if err != nil {
					return err
				}
				out["balance"] = balance
				return printJSON(c, out)
			})
		},
	}
}

func txsCommand() *cli.Command {
	return &cli.Command{
		Name:      "txs",
		Usage:     "list the normal transactions of an address",
		ArgsUsage: "<address>",
		Flags:     historyFlags(),
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, _ *env, client *scanner.Client) error {
				txs, err := client.GetTransactions(ctx, address, historyOptions(c))
				if err != nil {
					return err
				}
				return printJSON(c, txs)
			})
		},
	}
}

func tokentxCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokentx",
		Usage:     "list the BEP-20 transfers of an address",
		ArgsUsage: "<address>",
		Flags: append(historyFlags(),
			&cli.StringFlag{Name: "contract", Usage: "only transfers of this token"},
		),
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, _ *env, client *scanner.Client) error {
				opts := historyOptions(c)
				opts.Contract = c.String("contract")
				transfers, err := client.GetTokenTransactions(ctx, address, opts)
				if err != nil {
					return err
				}
				return printJSON(c, transfers)
			})
		},
	}
}

func depositsCommand() *cli.Command {
	return &cli.Command{
		Name:      "deposits",
		Usage:     "list the plan deposits of an address with totals",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withDeposits(c, func(ctx context.Context, svc *deposits.Service) (interface{}, error) {
				list, err := svc.UserDeposits(ctx, address)
				if err != nil {
					return nil, err
				}
				stats, err := svc.DepositStats(ctx, address)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"deposits": list,
					"stats":    stats,
				}, nil
			})
		},
	}
}

func accessCommand() *cli.Command {
	return &cli.Command{
		Name:      "access",
		Usage:     "show the paid access state of an address",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withDeposits(c, func(ctx context.Context, svc *deposits.Service) (interface{}, error) {
				return svc.CheckAccess(ctx, address)
			})
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:      "auth",
		Usage:     "check whether an address paid the authorization fee",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return withDeposits(c, func(ctx context.Context, svc *deposits.Service) (interface{}, error) {
				return svc.CheckAuthorization(ctx, address)
			})
		},
	}
}

func plansCommand() *cli.Command {
	return &cli.Command{
		Name:  "plans",
		Usage: "print the deposit plan catalog",
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			catalog, err := deposits.LoadCatalog(e.cfg.PlansFile)
			if err != nil {
				return err
			}
			return printJSON(c, catalog)
		},
	}
}
