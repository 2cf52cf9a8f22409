package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"supplymatch/internal"
	"supplymatch/internal/catalog"
	"supplymatch/internal/config"
	"supplymatch/internal/connectors"
	"supplymatch/internal/document"
	"supplymatch/internal/listener"
	"supplymatch/internal/logging"
	"supplymatch/internal/matcher"
	"supplymatch/internal/pipeline"
	"supplymatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithLogger(ctx, &logger)

	cmd := os.Args[1]
	switch cmd {
	case "run":
		code, err := runDocument(ctx, cfg, os.Args[2:])
		must(err)
		if code != 0 {
			os.Exit(code)
		}
	case "catalog:sync":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		stats, err := catalog.NewSyncService(db, catalog.NewClient(cfg)).Sync(ctx)
		must(err)
		fmt.Printf("catalog sync complete suppliers=%d items=%d\n", stats.Suppliers, stats.Items)
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "db.json", "json-server db.json")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		stats, err := catalog.NewSyncService(db, nil).ImportFile(ctx, *file)
		must(err)
		fmt.Printf("catalog import complete suppliers=%d items=%d\n", stats.Suppliers, stats.Items)
	case "catalog:status":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		suppliers, err := db.ListSuppliers(ctx)
		must(err)
		items, err := db.CountItems(ctx)
		must(err)
		fmt.Printf("db=%s suppliers=%d items=%d\n", cfg.DBPath, len(suppliers), items)
		for _, key := range []string{"catalog.last_sync", "catalog.last_import"} {
			v, err := db.GetMetadata(ctx, key)
			must(err)
			if v != nil {
				fmt.Printf("%s=%s\n", key, *v)
			}
		}
	case "suppliers":
		src, closeFn, err := catalog.OpenSource(cfg)
		must(err)
		defer closeFn()
		suppliers, err := src.ListSuppliers(ctx)
		must(err)
		for _, s := range suppliers {
			fmt.Printf("%s\t%s\n", s.ID, s.Name)
		}
	case "lookup":
		rec, closeFn := newReconciler(ctx, cfg)
		defer closeFn()
		must(lookup(ctx, rec, os.Stdin, os.Stdout))
	case "watch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		once := fs.Bool("once", false, "process the inbox once and exit")
		_ = fs.Parse(os.Args[2:])
		rec, closeFn := newReconciler(ctx, cfg)
		defer closeFn()
		svc := listener.NewService(cfg, rec)
		if cfg.MailProvider != "" {
			conn, err := listener.NewMailConnector(ctx, cfg, cfg.MailProvider)
			must(err)
			svc.WithMail(conn)
		}
		if *once {
			res, err := svc.RunOnce(ctx)
			must(err)
			fmt.Printf("inbox done fetched=%d scanned=%d processed=%d failed=%d\n", res.Fetched, res.Scanned, res.Processed, res.Failed)
			return
		}
		must(svc.Run(ctx))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailProvider, "gmail or imap")
		label := fs.String("label", cfg.MailLabel, "gmail label or imap mailbox")
		maxMessages := fs.Int("max", cfg.MailFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewMailConnector(ctx, cfg, strings.ToLower(*provider))
		must(err)
		store := connectors.NewInboxStore(cfg.InboxDir,
			filepath.Join(cfg.InboxDir, "processed"),
			filepath.Join(cfg.InboxDir, "failed"))
		res, err := connectors.NewFetchService(conn, store).FetchAndStore(ctx, *label, *maxMessages)
		must(err)
		fmt.Printf("mail fetch complete fetched=%d stored=%d inbox=%s\n", res.Fetched, res.Stored, cfg.InboxDir)
	default:
		usage()
		os.Exit(1)
	}
}

// runDocument reconciles one document file. The exit code is 2 when any line
// item failed; deferred cleanup has run by the time it returns.
func runDocument(ctx context.Context, cfg config.Config, args []string) (int, error) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	input := fs.String("input", "", "document path (.json DocAI, .xlsx, .html, .pdf, .eml, .txt)")
	supplier := fs.String("supplier", "", "override the supplier name printed on the document")
	out := fs.String("out", "", "output xlsx path")
	jsonOut := fs.String("json", "", "output json path, - for stdout")
	_ = fs.Parse(args)
	if strings.TrimSpace(*input) == "" {
		return 1, fmt.Errorf("--input is required")
	}

	doc, err := document.Load(*input)
	if err != nil {
		return 1, err
	}
	if s := strings.TrimSpace(*supplier); s != "" {
		doc.SupplierName = s
	}
	if strings.TrimSpace(doc.SupplierName) == "" {
		return 1, fmt.Errorf("no supplier name found in %s; pass --supplier", *input)
	}

	rec, closeFn := newReconciler(ctx, cfg)
	defer closeFn()
	result, err := rec.Reconcile(ctx, doc)
	if err != nil {
		return 1, err
	}

	if *out == "" && *jsonOut == "" {
		*out = filepath.Join(cfg.OutputDir, strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input))+".xlsx")
	}
	if *out != "" {
		if err := pipeline.ExportResultToXLSX(result, *out); err != nil {
			return 1, err
		}
	}
	if *jsonOut != "" {
		if err := writeJSONTo(*jsonOut, result); err != nil {
			return 1, err
		}
	}
	fmt.Fprintf(os.Stderr, "run done supplier=%q matched=%d unmatched=%d failed=%d\n",
		result.Supplier, len(result.Records), len(result.Unmatched), len(result.Failures))
	if len(result.Failures) > 0 {
		return 2, nil
	}
	return 0, nil
}

func newReconciler(ctx context.Context, cfg config.Config) (*pipeline.Reconciler, func()) {
	src, closeFn, err := catalog.OpenSource(cfg)
	must(err)
	completer, err := matcher.NewCompleter(ctx, cfg)
	must(err)
	return pipeline.New(cfg, src, completer), func() { _ = closeFn() }
}

// lookup resolves one supplier, then any number of item descriptions against
// it, until an empty line or EOF.
func lookup(ctx context.Context, rec *pipeline.Reconciler, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "What is the supplier name?")
	if !scanner.Scan() {
		return scanner.Err()
	}
	supplier, err := rec.ResolveSupplier(ctx, scanner.Text())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Closest supplier: %s\n", supplier)

	for {
		fmt.Fprintln(out, "What is the item description e.g. Dump Truck / Moxy? (empty line to quit)")
		if !scanner.Scan() || strings.TrimSpace(scanner.Text()) == "" {
			return scanner.Err()
		}
		item, err := rec.LookupItem(ctx, supplier, scanner.Text())
		if errors.Is(err, internal.ErrMatcherUnavailable) {
			fmt.Fprintf(out, "Matcher unavailable: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}
		if item == nil {
			fmt.Fprintln(out, "No item found.")
			continue
		}
		blob, _ := json.Marshal(item)
		fmt.Fprintf(out, "Closest item found: %s\n", blob)
	}
}

func writeJSONTo(path string, result internal.Result) error {
	if path == "-" {
		return pipeline.WriteJSON(os.Stdout, result)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pipeline.WriteJSON(f, result)
}

func usage() {
	fmt.Println("usage: supplymatch <command>")
	fmt.Println("commands:")
	fmt.Println("  run --input=invoice.json [--supplier=...] [--out=./out/result.xlsx] [--json=-]")
	fmt.Println("  catalog:sync")
	fmt.Println("  catalog:import --file=db.json")
	fmt.Println("  catalog:status")
	fmt.Println("  suppliers")
	fmt.Println("  lookup")
	fmt.Println("  watch [--once]")
	fmt.Println("  mail:fetch [--provider=gmail|imap] [--label=INBOX] [--max=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
