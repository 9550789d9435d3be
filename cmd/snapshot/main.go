// Command snapshot runs one funnel classification and prints the result as
// JSON. Records come from the configured database, or from a directory of
// JSON fixtures when -fixtures is given.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/identity"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
	"github.com/ignite/funnel-monitor/internal/repository/postgres"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

// Fixture file names, one per record set.
const (
	paymentsFile       = "payments.json"
	subscriptionsFile  = "subscriptions.json"
	deletedFile        = "deleted.json"
	formAgreementsFile = "form_agreements.json"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("snapshot: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	configPath := fs.String("config", "config/config.yaml", "config file")
	fixtures := fs.String("fixtures", "", "directory of JSON fixtures instead of the database")
	nowArg := fs.String("now", "", "evaluation time (RFC 3339), defaults to the current time")
	countsOnly := fs.Bool("counts", false, "print only the KPI counts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())
	logger.SetOutput(os.Stderr)

	now := time.Now
	if *nowArg != "" {
		t, err := time.Parse(time.RFC3339, *nowArg)
		if err != nil {
			return fmt.Errorf("parse -now: %w", err)
		}
		now = func() time.Time { return t }
	}

	var src dashboard.RecordSource
	if *fixtures != "" {
		src = fileSource{dir: *fixtures}
	} else {
		if cfg.Database.URL == "" {
			return errors.New("database url is required without -fixtures")
		}
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		src = postgres.NewRecords(db)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.QueryTimeout())
		defer cancel()
	}

	svc := dashboard.NewService(src, nil, nil, dashboard.Settings{
		Funnel: funnel.Config{
			ProductMatch:     cfg.Funnel.ProductMatch,
			ExcludeProducts:  cfg.Funnel.ExcludeProducts,
			RecentWindow:     cfg.Funnel.RecentWindow(),
			ExpiringSoonDays: cfg.Funnel.ExpiringSoonDays,
		},
		Now: now,
	})
	view, err := svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if *countsOnly {
		return enc.Encode(struct {
			EvaluatedAt time.Time           `json:"evaluated_at"`
			Counts      funnel.Counts       `json:"counts"`
			Warnings    []dashboard.Warning `json:"warnings"`
		}{view.Report.EvaluatedAt, view.Report.Counts, view.Warnings})
	}
	return enc.Encode(view)
}

// fileSource reads the record sets from JSON arrays in dir. A missing file
// fails only its own record set.
type fileSource struct{ dir string }

func readFixture[T any](dir, name string) ([]T, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	data, err = textPhones(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

// textPhones rewrites numeric "phone" values of a JSON array of objects as
// strings. Exported rows carry phones as numbers; the domain types hold text.
func textPhones(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		v, ok := row["phone"]
		if !ok || v == nil {
			continue
		}
		row["phone"] = identity.PhoneString(v)
	}
	return json.Marshal(rows)
}

func (f fileSource) SuccessfulPayments(context.Context) ([]domain.Payment, error) {
	all, err := readFixture[domain.Payment](f.dir, paymentsFile)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Status == domain.PaymentSuccess {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fileSource) AllSubscriptions(context.Context) ([]domain.Subscription, error) {
	return readFixture[domain.Subscription](f.dir, subscriptionsFile)
}

func (f fileSource) DeletedContacts(context.Context) ([]domain.Contact, error) {
	return readFixture[domain.Contact](f.dir, deletedFile)
}

func (f fileSource) FormAgreements(context.Context) ([]domain.Contact, error) {
	return readFixture[domain.Contact](f.dir, formAgreementsFile)
}
