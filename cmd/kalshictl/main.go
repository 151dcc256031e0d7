// Command kalshictl is a small operational CLI over the client library:
// inspect markets, check balances, and watch a live order book.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	kalshi "github.com/praetor-labs/kalshi-go"
	"github.com/praetor-labs/kalshi-go/auth"
	"github.com/praetor-labs/kalshi-go/book"
	"github.com/praetor-labs/kalshi-go/config"
	"github.com/praetor-labs/kalshi-go/feed"
	"github.com/praetor-labs/kalshi-go/ratelimit"
)

const usage = `usage: kalshictl <command> [args]

commands:
  status              exchange trading status
  markets [SERIES]    open markets, optionally filtered by series ticker
  book TICKER         REST order book snapshot for a market
  watch TICKER        stream the live order book until interrupted
  balance             account balance
  orders              resting orders
  positions           open positions
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "kalshictl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case "status":
		return showStatus(ctx, client)
	case "markets":
		series := ""
		if len(args) > 0 {
			series = args[0]
		}
		return listMarkets(ctx, client, series)
	case "book":
		if len(args) < 1 {
			return fmt.Errorf("book requires a market ticker")
		}
		return showBook(ctx, client, args[0])
	case "watch":
		if len(args) < 1 {
			return fmt.Errorf("watch requires a market ticker")
		}
		return watchBook(ctx, cfg, args[0])
	case "balance":
		return showBalance(ctx, client)
	case "orders":
		return listOrders(ctx, client)
	case "positions":
		return listPositions(ctx, client)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newClient(cfg *config.Config) (*kalshi.Client, error) {
	opts := []kalshi.Option{
		kalshi.WithCredentials(cfg.Auth.APIKeyID, cfg.Auth.PrivateKeyPath),
		kalshi.WithTimeout(cfg.HTTP.Timeout()),
		kalshi.WithMaxRetries(cfg.HTTP.MaxRetries),
	}
	if cfg.Demo() {
		opts = append(opts, kalshi.WithDemo())
	}
	if cfg.HTTP.BaseURL != "" {
		opts = append(opts, kalshi.WithBaseURL(cfg.HTTP.BaseURL))
	}
	if cfg.Rate.RPS > 0 {
		opts = append(opts, kalshi.WithRateLimiter(ratelimit.NewTokenBucket(cfg.Rate.RPS, cfg.Rate.Burst)))
	}
	return kalshi.New(opts...)
}

func showStatus(ctx context.Context, client *kalshi.Client) error {
	status, err := client.Exchange.GetStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("exchange active: %v\ntrading active:  %v\n", status.ExchangeActive, status.TradingActive)
	return nil
}

func listMarkets(ctx context.Context, client *kalshi.Client, series string) error {
	params := kalshi.MarketsParams{Status: kalshi.MarketStatusOpen, SeriesTicker: series}
	page, err := client.GetMarketsPage(ctx, params)
	if err != nil {
		return err
	}
	for _, m := range page.Items {
		fmt.Printf("%-40s yes %2d/%2d  vol %d\n", m.Ticker, m.YesBid, m.YesAsk, m.Volume)
	}
	if page.HasMore() {
		fmt.Printf("... more (cursor %s)\n", page.Cursor)
	}
	return nil
}

func showBook(ctx context.Context, client *kalshi.Client, ticker string) error {
	ob, err := client.GetMarketOrderbook(ctx, ticker, 10)
	if err != nil {
		return err
	}
	fmt.Println("yes bids:")
	printLevels(ob.Yes)
	fmt.Println("no bids:")
	printLevels(ob.No)
	return nil
}

func printLevels(levels [][2]int) {
	for i := len(levels) - 1; i >= 0; i-- {
		fmt.Printf("  %2d¢ x %d\n", levels[i][0], levels[i][1])
	}
}

// watchBook streams the live book, printing the top of book whenever it
// changes, until the context is cancelled.
func watchBook(ctx context.Context, cfg *config.Config, ticker string) error {
	signer, err := auth.LoadSigner(cfg.Auth.APIKeyID, cfg.Auth.PrivateKeyPath)
	if err != nil {
		return err
	}

	wsURL := feed.ProductionWSURL
	if cfg.Demo() {
		wsURL = feed.DemoWSURL
	}

	watchdog := feed.NewWatchdog(feed.DefaultWatchdogConfig())
	f := feed.New(feed.Config{
		URL:      wsURL,
		Signer:   signer,
		Watchdog: watchdog,
	})

	if err := f.Connect(ctx); err != nil {
		return err
	}
	defer f.Close()

	f.Subscribe(ticker)

	ticks := time.NewTicker(250 * time.Millisecond)
	defer ticks.Stop()

	var lastYes, lastNo book.Level
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks.C:
			b, ok := f.Books().Get(ticker)
			if !ok || b.State() != book.Live {
				continue
			}
			yes, _ := b.BestYesBid()
			no, _ := b.BestNoBid()
			if yes == lastYes && no == lastNo {
				continue
			}
			lastYes, lastNo = yes, no
			fresh := "fresh"
			if !watchdog.Fresh(ticker) {
				fresh = "stale"
			}
			fmt.Printf("%s  yes %2d¢ x %-6d  no %2d¢ x %-6d  seq %d (%s)\n",
				ticker, yes.Price, yes.Quantity, no.Price, no.Quantity, b.Seq(), fresh)
		}
	}
}

func showBalance(ctx context.Context, client *kalshi.Client) error {
	bal, err := client.Portfolio.GetBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("balance: $%s\n", bal.Dollars().StringFixed(2))
	return nil
}

func listOrders(ctx context.Context, client *kalshi.Client) error {
	orders, err := client.Portfolio.GetOrders(ctx, kalshi.OrdersParams{Status: kalshi.OrderStatusResting}, true)
	if err != nil {
		return err
	}
	for _, o := range orders {
		fmt.Printf("%-12s %-40s %s %s %d @ %d¢\n",
			o.OrderID, o.Ticker, o.Action, o.Side, o.RemainingCount, price(o))
	}
	return nil
}

func price(o kalshi.Order) int {
	if o.Side == kalshi.SideNo {
		return o.NoPrice
	}
	return o.YesPrice
}

func listPositions(ctx context.Context, client *kalshi.Client) error {
	positions, err := client.Portfolio.GetPositions(ctx, kalshi.PositionsParams{}, true)
	if err != nil {
		return err
	}
	for _, p := range positions {
		fmt.Printf("%-40s position %4d  realized pnl %d¢\n", p.Ticker, p.Position, p.RealizedPnl)
	}
	return nil
}
