package dashboard

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/session"
	"github.com/leapstack-labs/leapdash/internal/specsource"
)

// Service loads inputs into sessions and evaluates them.
type Service struct {
	data   *dataset.Loader
	specs  *specsource.Loader
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(data *dataset.Loader, specs *specsource.Loader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{data: data, specs: specs, logger: logger}
}

// Open loads the dataset and spec named by src into s, replacing whatever
// it held. A load failure is recorded on the session and returned.
func (svc *Service) Open(ctx context.Context, s *session.Session, src session.Source) error {
	if src.DataPath == "" {
		s.SetError(ErrNoData)
		return ErrNoData
	}

	t, err := svc.data.LoadFile(ctx, src.DataPath, dataset.LoadOptions{Delimiter: src.Delimiter})
	if err != nil {
		s.SetError(err)
		return err
	}
	name := filepath.Base(src.DataPath)

	res, err := svc.specs.Load(ctx, src.SpecPath, t, name)
	if err != nil {
		s.SetError(err)
		return err
	}

	s.SetDataset(src.DataPath, name, src.Delimiter, t)
	s.SetDocument(src.SpecPath, res.Origin, res.Document)
	svc.logger.Info("dashboard opened",
		"session", s.ID(),
		"data", src.DataPath,
		"spec", src.SpecPath,
		"origin", res.Origin,
		"rows", t.Len())
	return nil
}

// Refresh reloads the file-backed inputs that changed on disk. It reports
// whether anything was reloaded.
func (svc *Service) Refresh(ctx context.Context, s *session.Session) (bool, error) {
	dataStale, specStale := s.Stale()
	if !dataStale && !specStale {
		return false, nil
	}
	src := s.Source()

	snap := s.Snapshot()
	t := snap.Table
	if dataStale {
		var err error
		t, err = svc.data.LoadFile(ctx, src.DataPath, dataset.LoadOptions{Delimiter: src.Delimiter})
		if err != nil {
			s.SetError(err)
			return true, err
		}
		s.SetDataset(src.DataPath, filepath.Base(src.DataPath), src.Delimiter, t)
		svc.logger.Info("dataset reloaded", "session", s.ID(), "path", src.DataPath, "rows", t.Len())
	}

	if specStale || snap.Document == nil {
		res, err := svc.specs.Load(ctx, src.SpecPath, t, filepath.Base(src.DataPath))
		if err != nil {
			s.SetError(err)
			return true, err
		}
		s.SetDocument(src.SpecPath, res.Origin, res.Document)
		svc.logger.Info("spec reloaded", "session", s.ID(), "path", src.SpecPath, "origin", res.Origin)
	}
	return true, nil
}

// Regenerate replaces the session's spec with a freshly generated one.
func (svc *Service) Regenerate(ctx context.Context, s *session.Session, model string) error {
	snap := s.Snapshot()
	if snap.Table == nil {
		return ErrNoData
	}
	res, err := svc.specs.Generate(ctx, snap.Table, snap.DataName, model)
	if err != nil {
		return err
	}
	s.SetDocument(snap.Source.SpecPath, res.Origin, res.Document)
	return nil
}

// UploadDataset replaces the session's dataset with uploaded content. A
// session without a spec gets a generated one.
func (svc *Service) UploadDataset(ctx context.Context, s *session.Session, name string, r io.Reader) error {
	t, err := svc.data.LoadReader(ctx, name, r, dataset.LoadOptions{})
	if err != nil {
		return err
	}

	if s.Snapshot().Document == nil {
		res, err := svc.specs.Load(ctx, "", t, name)
		if err != nil {
			return err
		}
		s.SetDocument("", res.Origin, res.Document)
	}
	s.SetDataset("", name, "", t)
	svc.logger.Info("dataset uploaded", "session", s.ID(), "name", name, "rows", t.Len())
	return nil
}

// UploadSpec replaces the session's spec with uploaded content.
func (svc *Service) UploadSpec(s *session.Session, name string, data []byte) error {
	res, err := svc.specs.Parse(data, name)
	if err != nil {
		return err
	}
	s.SetDocument("", res.Origin, res.Document)
	svc.logger.Info("spec uploaded", "session", s.ID(), "name", name, "charts", len(res.Document.Charts))
	return nil
}

// View evaluates the current state of s.
func (svc *Service) View(s *session.Session) *View {
	return Evaluate(s.Snapshot(), svc.logger)
}
