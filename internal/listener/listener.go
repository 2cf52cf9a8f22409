// Package listener watches an inbox directory and reconciles every document
// dropped into it.
package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"supplymatch/internal"
	"supplymatch/internal/config"
	"supplymatch/internal/connectors"
	"supplymatch/internal/document"
	"supplymatch/internal/logging"
	"supplymatch/internal/pipeline"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

type Reconciler interface {
	Reconcile(ctx context.Context, doc internal.Document) (internal.Result, error)
}

type Service struct {
	cfg  config.Config
	rec  Reconciler
	load func(path string) (internal.Document, error)
	mail *connectors.FetchService
}

func NewService(cfg config.Config, rec Reconciler) *Service {
	return &Service{cfg: cfg, rec: rec, load: document.Load}
}

// WithMail makes every cycle pull new mail into the inbox first. Messages
// already sitting in processed/ or failed/ are not stored again.
func (s *Service) WithMail(conn connectors.MailConnector) *Service {
	store := connectors.NewInboxStore(s.cfg.InboxDir,
		filepath.Join(s.cfg.InboxDir, processedDir),
		filepath.Join(s.cfg.InboxDir, failedDir))
	s.mail = connectors.NewFetchService(conn, store)
	return s
}

type CycleResult struct {
	Fetched   int
	Scanned   int
	Processed int
	Failed    int
}

func (s *Service) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log.Info().Str("inbox", s.cfg.InboxDir).Dur("interval", interval).Msg("listener started")

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// RunOnce reconciles up to ListenerBatch documents from the inbox. Each file
// ends up in processed/ or failed/ so it is never picked up twice.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	for _, dir := range []string{s.cfg.InboxDir, filepath.Join(s.cfg.InboxDir, processedDir), filepath.Join(s.cfg.InboxDir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return CycleResult{}, err
		}
	}

	var res CycleResult
	if s.mail != nil {
		fetched, err := s.mail.FetchAndStore(ctx, s.cfg.MailLabel, s.cfg.MailFetchMax)
		if err != nil {
			// the inbox may still hold work from earlier fetches
			logging.FromContext(ctx).Error().Err(err).Msg("mail fetch failed")
		}
		res.Fetched = fetched.Stored
	}

	paths, err := s.pending()
	if err != nil {
		return res, err
	}

	var processed, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.ListenerConcurrency))
	for _, path := range paths {
		g.Go(func() error {
			err := s.handle(ctx, path)
			if ctx.Err() != nil {
				// interrupted mid-run; the next cycle picks the file up again
				logging.FromContext(ctx).Info().Str("file", filepath.Base(path)).Msg("document left in inbox")
				return nil
			}
			if err != nil {
				failed.Add(1)
				logging.FromContext(ctx).Error().Err(err).Str("file", filepath.Base(path)).Msg("document failed")
				if mvErr := moveInto(path, filepath.Join(s.cfg.InboxDir, failedDir)); mvErr != nil {
					logging.FromContext(ctx).Error().Err(mvErr).Str("file", path).Msg("could not move failed document")
				}
				return nil
			}
			processed.Add(1)
			return moveInto(path, filepath.Join(s.cfg.InboxDir, processedDir))
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Scanned = len(paths)
	res.Processed = int(processed.Load())
	res.Failed = int(failed.Load())
	if res.Scanned > 0 || res.Fetched > 0 {
		logging.FromContext(ctx).Info().
			Int("fetched", res.Fetched).
			Int("scanned", res.Scanned).
			Int("processed", res.Processed).
			Int("failed", res.Failed).
			Msg("listener cycle done")
	}
	return res, nil
}

func (s *Service) pending() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.InboxDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(s.cfg.InboxDir, e.Name()))
	}
	sort.Strings(out)

	if batch := s.cfg.ListenerBatch; batch > 0 && len(out) > batch {
		out = out[:batch]
	}
	return out, nil
}

func (s *Service) handle(ctx context.Context, path string) error {
	doc, err := s.load(path)
	if err != nil {
		return err
	}

	result, err := s.rec.Reconcile(ctx, doc)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.cfg.ListenerAutoExport {
		return nil
	}
	base := exportName(path)
	dir := filepath.Join(s.cfg.OutputDir, "listener")
	if err := pipeline.ExportResultToXLSX(result, filepath.Join(dir, base+".xlsx")); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, base+".json"))
	if err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	defer f.Close()
	return pipeline.WriteJSON(f, result)
}

func moveInto(path, dir string) error {
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, target)
}

func exportName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(name)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
