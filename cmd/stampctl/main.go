// stampctl is the operator CLI for the stamp bot: it runs a refresh batch on
// demand, lists registered users and issues admin API tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"stampbot/internal/akashi"
	"stampbot/internal/attendance"
	"stampbot/internal/auth"
	"stampbot/internal/config"
	"stampbot/internal/logging"
	"stampbot/internal/refresh"
	"stampbot/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return nil
	}
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "refresh":
		return runRefresh(ctx, cfg, logger, out)
	case "tokens":
		return runTokens(ctx, cfg, out)
	case "admin-token":
		return runAdminToken(cfg, args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	}
	printUsage(out)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `usage: stampctl <command> [flags]

commands:
  refresh       reissue tokens that expire soon and delete rejected ones
  tokens        list registered users with masked tokens
  admin-token   issue a bearer token for the /admin API`)
}

func runRefresh(ctx context.Context, cfg config.App, logger zerolog.Logger, out io.Writer) error {
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	api := akashi.New(cfg.AkashiBaseURL, cfg.AkashiCompanyID, cfg.AkashiTimeout, cfg.Location(), logger)
	res, err := refresh.New(repo, api, logger, refresh.WithLookahead(cfg.RefreshLookahead)).Run(ctx)
	if err != nil {
		return err
	}
	printSummary(out, res)
	return nil
}

func printSummary(out io.Writer, res refresh.Result) {
	fmt.Fprintf(out, "更新バッチの実行が完了しました（対象：%s件）\n", humanize.Comma(int64(res.Targets)))
	fmt.Fprintf(out, "更新：%s件\n", humanize.Comma(int64(res.Updated)))
	fmt.Fprintf(out, "削除：%s件\n", humanize.Comma(int64(res.Deleted)))
	fmt.Fprintf(out, "エラー：%s件\n", humanize.Comma(int64(res.Errored)))
}

func runTokens(ctx context.Context, cfg config.App, out io.Writer) error {
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := attendance.NewRepository(db.Client).FetchAll(ctx)
	if err != nil {
		return err
	}
	return printTokens(out, tokens, time.Now())
}

func printTokens(out io.Writer, tokens []attendance.UserToken, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tTOKEN\tEXPIRES\tREGISTERED")
	for _, t := range tokens {
		expires := "unknown"
		if t.ExpiresAt != nil {
			expires = humanize.RelTime(*t.ExpiresAt, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.UserID, t.Masked(), expires, t.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

// runAdminToken prints the token alone on out so it can be captured by a
// shell; the expiry goes to errOut.
func runAdminToken(cfg config.App, args []string, out, errOut io.Writer) error {
	var (
		subject string
		ttl     time.Duration
	)
	flags := pflag.NewFlagSet("admin-token", pflag.ContinueOnError)
	flags.StringVar(&subject, "subject", "", "who the token is issued to (required)")
	flags.DurationVar(&ttl, "ttl", cfg.AdminTokenTTL, "token lifetime")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if subject == "" {
		return errors.New("--subject is required")
	}
	token, exp, err := auth.Issue(subject, cfg.JWTIssuer, cfg.JWTSigningKey, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(errOut, "expires %s\n", exp.Format(time.RFC3339))
	return nil
}
