package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hunterwarburton/tokenscope/internal/config"
	"github.com/hunterwarburton/tokenscope/internal/dnsinfo"
	"github.com/hunterwarburton/tokenscope/internal/logger"
	"github.com/hunterwarburton/tokenscope/internal/metadata"
	"github.com/hunterwarburton/tokenscope/internal/offchain"
	"github.com/hunterwarburton/tokenscope/internal/solana"
	"github.com/hunterwarburton/tokenscope/internal/token"
)

// errReported means the errors were already printed; only the exit code is left.
var errReported = errors.New("lookup failed")

type options struct {
	rpcURL          string
	resolvConf      string
	timeout         time.Duration
	debug           bool
	strict          bool
	onChainFallback bool
}

// tokenResolver is the part of token.Resolver the command needs.
type tokenResolver interface {
	Resolve(ctx context.Context, address string) token.Outcome
}

// newResolver wires the production collaborators. Tests replace it.
var newResolver = func(cfg *config.Config) (tokenResolver, func()) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	chain := solana.NewClient(cfg.RPCURL, solana.WithHTTPClient(httpClient))
	resolver := token.NewResolver(
		chain,
		offchain.NewFetcher(httpClient),
		dnsinfo.NewSystemEnricher(cfg.ResolvConf),
		token.WithOnChainFallback(cfg.OnChainFallback),
	)
	return resolver, func() { chain.Close() }
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tokenscope TOKEN_ADDRESS",
		Short: "Look up metadata, socials, DNS and supply for a Solana token",
		Long: `tokenscope resolves a Solana token mint into a readable record.

It derives the Metaplex metadata account of the mint, reads the metadata URI
from it, fetches the off-chain JSON document, checks the project website's
DNS records and adds the current supply.

Settings are read from the environment (and a .env file when present):
	SOLANA_RPC_URL    RPC endpoint (default mainnet-beta)
	HTTP_TIMEOUT      per-request timeout, e.g. 30s
	RESOLV_CONF       nameserver config (default /etc/resolv.conf)
	LOG_LEVEL         debug, info, warn or error
	ONCHAIN_FALLBACK  fill missing name/symbol from the account itself
Flags take precedence over the environment.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			applyFlags(cmd, opts, cfg)

			logger.SetLevel(cfg.LogLevel)
			if opts.debug {
				logger.Init(true)
			}

			address := metadata.NormalizeAddress(args[0])
			logger.Debug("Looking up %s via %s", address, cfg.RPCURL)

			resolver, closeFn := newResolver(cfg)
			defer closeFn()

			out := resolver.Resolve(cmd.Context(), address)
			return writeOutcome(stdout, stderr, out, opts.strict)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.rpcURL, "rpc", "", "Solana RPC endpoint (overrides SOLANA_RPC_URL)")
	flags.StringVar(&opts.resolvConf, "resolv-conf", "", "resolv.conf used for DNS lookups (overrides RESOLV_CONF)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP request timeout (overrides HTTP_TIMEOUT)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.strict, "strict", false, "Print no record unless both metadata and supply were resolved")
	flags.BoolVar(&opts.onChainFallback, "onchain-fallback", false, "Fill missing name and symbol from on-chain metadata")

	return cmd
}

// applyFlags overrides cfg with the flags that were set explicitly.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("rpc") {
		cfg.RPCURL = opts.rpcURL
	}
	if flags.Changed("resolv-conf") {
		cfg.ResolvConf = opts.resolvConf
	}
	if flags.Changed("timeout") && opts.timeout > 0 {
		cfg.HTTPTimeout = opts.timeout
	}
	if flags.Changed("onchain-fallback") {
		cfg.OnChainFallback = opts.onChainFallback
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}
}

// writeOutcome prints the record on stdout and each error on its own stderr
// line. In strict mode a record is only printed when nothing failed.
func writeOutcome(stdout, stderr io.Writer, out token.Outcome, strict bool) error {
	if out.Record != nil && (!strict || out.Complete()) {
		encoded, err := token.MarshalRecord(out.Record)
		if err != nil {
			fmt.Fprintf(stderr, "Serialization error: %v\n", err)
			return errReported
		}
		fmt.Fprintf(stdout, "Token Information:\n%s\n", encoded)
	}

	errs := out.Errors()
	for _, err := range errs {
		fmt.Fprintln(stderr, err)
	}
	if len(errs) > 0 {
		return errReported
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
