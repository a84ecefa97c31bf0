// cmd/preflight/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/statusledger/internal/config"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		errs := multierr.Errors(errors.Unwrap(err))
		if len(errs) == 0 {
			errs = []error{err}
		}
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		os.Exit(1)
	}

	ok("addr=" + cfg.Addr)
	ok(fmt.Sprintf("%d targets, interval %s, concurrency %d", len(cfg.Targets), cfg.Monitor.Interval, cfg.Monitor.Concurrency))
	if len(cfg.Targets) == 0 {
		warn("no targets configured; cycles will do nothing.")
	}

	switch cfg.Store.Driver {
	case "memory":
		warn("store.driver=memory; incident history is lost on restart.")
	default:
		ok("store.driver=" + cfg.Store.Driver)
	}

	if g := cfg.Notification.GracePeriodMinutes; g != nil {
		ok(fmt.Sprintf("grace period %dm", *g))
	} else {
		warn("notification.grace_period_minutes unset; every transition notifies.")
	}
	if cfg.Notification.AppriseAPIServer == "" && cfg.Notification.TeamsWebhookURL == "" && cfg.Notification.SlackWebhookURL == "" {
		warn("no notification transport configured.")
	}

	if len(cfg.API.AdminKeys) == 0 {
		warn("api.admin_keys is empty; admin routes are open.")
	}
	if len(cfg.API.PublicKeys) == 0 && cfg.API.PasswordProtection == "" {
		warn("status API is public (no api.public_keys, no api.password_protection).")
	}
	for _, k := range append(append([]string{}, cfg.API.PublicKeys...), cfg.API.AdminKeys...) {
		if strings.TrimSpace(k) != k {
			warn("an API key has surrounding spaces; use comma-separated with no spaces, e.g. key1,key2")
			break
		}
	}

	if cfg.UsesRedis() {
		ok("redis required at " + cfg.Redis.Addr)
	}

	ok("preflight passed")
}
