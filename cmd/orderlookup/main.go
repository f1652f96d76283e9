// Command orderlookup resolves an order from the terminal the same way the confirmation page does.
// The last resolved identifier is kept in a local sqlite file, so running it again without flags
// shows the same order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"erasure-portal/pkg/clients/backend"
	"erasure-portal/pkg/models"
	"erasure-portal/pkg/notify"
	"erasure-portal/pkg/services"
	"erasure-portal/pkg/store"
)

const localVisitor = "cli"

type options struct {
	backendURL string
	token      string
	orderID    string
	sessionID  string
	dbPath     string
	copyKey    bool
	verbose    bool
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("orderlookup", flag.ContinueOnError)
	fs.StringVar(&opts.backendURL, "backend", os.Getenv("BACKEND_BASE_URL"), "Backend base URL")
	fs.StringVar(&opts.orderID, "order", "", "Order id")
	fs.StringVar(&opts.sessionID, "session", "", "Checkout session id")
	fs.StringVar(&opts.dbPath, "db", defaultDBPath(), "Local cache file")
	fs.BoolVar(&opts.copyKey, "copy", false, "Copy the first licence key to the clipboard")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.token = os.Getenv("BACKEND_API_TOKEN")
	if opts.backendURL == "" {
		return options{}, errors.New("backend URL required (use -backend or BACKEND_BASE_URL env)")
	}
	return opts, nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "orderlookup.db"
	}
	return filepath.Join(dir, "erasure-portal", "orderlookup.db")
}

func run(ctx context.Context, opts options, out io.Writer) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if dir := filepath.Dir(opts.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating cache directory: %w", err)
		}
	}
	cache, err := store.OpenSQL(ctx, "sqlite", opts.dbPath, 0)
	if err != nil {
		return err
	}
	defer cache.Close()

	client := backend.NewClient(backend.Options{
		BaseURL:          opts.backendURL,
		APIToken:         opts.token,
		OrdersCollection: "orders",
		HTTPClient:       &http.Client{Timeout: 20 * time.Second},
		Logger:           logger,
	})
	resolver := services.NewResolver(client, cache, logger)

	record, err := resolver.Resolve(ctx, localVisitor, models.Candidates{
		OrderID:   opts.orderID,
		SessionID: opts.sessionID,
	})
	if err != nil {
		var lookupErr *services.LookupError
		switch {
		case errors.Is(err, services.ErrNoIdentifier):
			return errors.New("no order to show: pass -order or -session")
		case errors.As(err, &lookupErr):
			return errors.New(lookupErr.Message)
		default:
			return err
		}
	}

	printRecord(out, record, time.Now())

	if opts.copyKey && len(record.License.Keys) > 0 {
		ack := notify.NewCopyAck(notify.SystemClipboard{}, 2*time.Second)
		key := record.License.Keys[0]
		if err := ack.Copy(key); err != nil {
			return err
		}
		if ack.Copied(key) {
			fmt.Fprintln(out, "Licence key copied to clipboard.")
		}
	}
	return nil
}

func printRecord(out io.Writer, record *models.ResolvedRecord, now time.Time) {
	d := services.Project(record, time.Local, now)

	fmt.Fprintf(out, "Order %s (%s)\n", record.Order.OrderNumber, d.OrderStatus)
	fmt.Fprintf(out, "  Placed:   %s\n", d.OrderedAt)
	fmt.Fprintf(out, "  Product:  %s x%d %s\n", record.Product.Name, record.Product.Quantity, record.Product.Term)
	fmt.Fprintf(out, "  Paid:     %s (%s)", d.Amount, d.PaymentStatus)
	if d.CardSummary != "" {
		fmt.Fprintf(out, " with %s", d.CardSummary)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Customer: %s <%s>\n", record.Customer.Name, record.Customer.Email)
	if record.Invoice.Number != "" {
		fmt.Fprintf(out, "  Invoice:  %s total %s %s\n", record.Invoice.Number, d.InvoiceTotal, record.Invoice.PDFURL)
	}
	if len(record.License.Keys) > 0 {
		fmt.Fprintf(out, "  Licences: %d issued, %d used\n", record.License.Issued, record.License.Used)
		fmt.Fprintf(out, "    %s\n", strings.Join(record.License.Keys, "\n    "))
	}
	if d.LicenseExpires != "" {
		fmt.Fprintf(out, "  Expires:  %s (%s)\n", d.LicenseExpires, d.LicenseExpiry)
	}
}
