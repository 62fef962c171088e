package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/domain/notifications"
	"truckbooks/internal/platform/clock"
	"truckbooks/internal/platform/crypto"
	"truckbooks/internal/platform/email"
)

const (
	JobStatementDocument = "statement_document"
	JobStatementPaidMail = "statement_paid_mail"
	JobDocumentBackfill  = "statement_document_backfill"
	JobStatementNotify   = "statement_notify"
)

type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

type Dispatcher interface {
	Enqueue(jobType string, run func(context.Context) (any, error))
}

type Notifier interface {
	StatementStatusChanged(ctx context.Context, update notifications.StatementUpdate) error
}

type Recorder interface {
	StatementGenerated(paymentType string, netPay float64)
}

type Options struct {
	Clock       clock.Clock
	NewID       IDFunc
	Sealer      *crypto.Sealer
	DocumentDir string
	Jobs        Dispatcher
	Mailer      Mailer
	MailFrom    string
	Notifier    Notifier
	Metrics     Recorder
}

type Service struct {
	store    StoreAPI
	records  RecordSource
	gen      *Generator
	clock    clock.Clock
	sealer   *crypto.Sealer
	docDir   string
	jobs     Dispatcher
	mailer   Mailer
	mailFrom string
	notifier Notifier
	metrics  Recorder
}

func NewService(store StoreAPI, records RecordSource, opts Options) *Service {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	docDir := opts.DocumentDir
	if docDir == "" {
		docDir = filepath.Join("storage", "statements")
	}
	return &Service{
		store:    store,
		records:  records,
		gen:      NewGenerator(clk, opts.NewID),
		clock:    clk,
		sealer:   opts.Sealer,
		docDir:   docDir,
		jobs:     opts.Jobs,
		mailer:   opts.Mailer,
		mailFrom: opts.MailFrom,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
	}
}

type GenerateRequest struct {
	DriverID             string
	PeriodStart          time.Time
	PeriodEnd            time.Time
	AdditionalDeductions []Deduction
}

// GenerateStatement loads the driver's loads and fuel for the period, builds
// the statement and persists it.
func (s *Service) GenerateStatement(ctx context.Context, req GenerateRequest) (PayStatement, error) {
	driver, err := s.records.GetDriver(ctx, req.DriverID)
	if err != nil {
		return PayStatement{}, err
	}
	filter := fleet.Filter{DriverID: driver.ID, From: req.PeriodStart, To: req.PeriodEnd}
	loads, err := s.records.ListLoads(ctx, filter)
	if err != nil {
		return PayStatement{}, fmt.Errorf("list loads: %w", err)
	}
	fuelEntries, err := s.records.ListFuelEntries(ctx, filter)
	if err != nil {
		return PayStatement{}, fmt.Errorf("list fuel entries: %w", err)
	}

	statement := s.gen.Generate(StatementInput{
		Driver:               &driver,
		Loads:                loads,
		FuelEntries:          fuelEntries,
		PeriodStart:          req.PeriodStart,
		PeriodEnd:            req.PeriodEnd,
		AdditionalDeductions: req.AdditionalDeductions,
	})
	if err := s.store.CreateStatement(ctx, statement); err != nil {
		return PayStatement{}, fmt.Errorf("save statement: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StatementGenerated(statement.PaymentType, statement.NetPay)
	}
	if s.jobs != nil {
		statementID := statement.ID
		s.jobs.Enqueue(JobStatementDocument, func(ctx context.Context) (any, error) {
			path, err := s.RenderDocument(ctx, statementID)
			return map[string]any{"statementId": statementID, "path": path}, err
		})
	}
	return statement, nil
}

func (s *Service) GetStatement(ctx context.Context, statementID string) (PayStatement, error) {
	return s.store.GetStatement(ctx, statementID)
}

func (s *Service) ListStatements(ctx context.Context, filter StatementFilter) ([]PayStatement, int, error) {
	total, err := s.store.CountStatements(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	statements, err := s.store.ListStatements(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return statements, total, nil
}

// CanTransition reports whether a statement may move from one status to
// another.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// UpdateStatus moves a statement through its lifecycle and returns the
// updated statement together with the status it left.
func (s *Service) UpdateStatus(ctx context.Context, statementID, status string) (PayStatement, string, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return PayStatement{}, "", err
	}
	previous := statement.Status
	if !CanTransition(previous, status) {
		return PayStatement{}, previous, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, previous, status)
	}

	now := s.clock.Now()
	statement.Status = status
	statement.UpdatedAt = now
	if status == StatusPaid {
		statement.PaidAt = &now
	} else {
		statement.PaidAt = nil
	}
	if err := s.store.TransitionStatement(ctx, statement.ID, previous, status, statement.PaidAt, now); err != nil {
		return PayStatement{}, previous, err
	}
	s.notifyDriver(ctx, statement)
	if status == StatusPaid {
		s.notifyPaid(statement)
	}
	return statement, previous, nil
}

func (s *Service) UpdateNotes(ctx context.Context, statementID, notes string) (PayStatement, error) {
	if err := s.store.UpdateStatementNotes(ctx, statementID, notes, s.clock.Now()); err != nil {
		return PayStatement{}, err
	}
	return s.store.GetStatement(ctx, statementID)
}

func (s *Service) notifyDriver(ctx context.Context, statement PayStatement) {
	if s.notifier == nil {
		return
	}
	update := notifications.StatementUpdate{
		StatementID: statement.ID,
		DriverID:    statement.DriverID,
		Status:      statement.Status,
		PeriodStart: statement.PeriodStart,
		PeriodEnd:   statement.PeriodEnd,
		NetPay:      statement.NetPay,
	}
	if s.jobs == nil {
		if err := s.notifier.StatementStatusChanged(ctx, update); err != nil {
			slog.Warn("statement notification failed", "statementId", statement.ID, "err", err)
		}
		return
	}
	s.jobs.Enqueue(JobStatementNotify, func(ctx context.Context) (any, error) {
		if err := s.notifier.StatementStatusChanged(ctx, update); err != nil {
			return nil, err
		}
		return map[string]any{"statementId": update.StatementID, "status": update.Status}, nil
	})
}

func (s *Service) notifyPaid(statement PayStatement) {
	if s.mailer == nil || s.jobs == nil {
		return
	}
	s.jobs.Enqueue(JobStatementPaidMail, func(ctx context.Context) (any, error) {
		driver, err := s.records.GetDriver(ctx, statement.DriverID)
		if err != nil {
			return nil, err
		}
		if driver.Email == "" {
			return map[string]any{"skipped": "no driver email"}, nil
		}
		subject := fmt.Sprintf("Pay statement %s to %s paid", statement.PeriodStart.Format(dateLayout), statement.PeriodEnd.Format(dateLayout))
		body := fmt.Sprintf("Hi %s,\n\nYour pay statement for %s to %s has been paid.\nNet pay: %s\nLoads: %d, miles: %.0f\n",
			driver.FirstName, statement.PeriodStart.Format(dateLayout), statement.PeriodEnd.Format(dateLayout),
			money(statement.NetPay), statement.LoadCount, statement.TotalMiles)
		msg := email.Message{From: s.mailFrom, To: driver.Email, Subject: subject, Body: body}
		if pdf, err := s.Document(ctx, statement.ID); err != nil {
			slog.Warn("paid email sent without statement document", "statementId", statement.ID, "err", err)
		} else {
			msg.Attachments = append(msg.Attachments, email.Attachment{
				Name:        fmt.Sprintf("statement-%s.pdf", statement.PeriodEnd.Format(dateLayout)),
				ContentType: "application/pdf",
				Data:        pdf,
			})
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			return nil, err
		}
		return map[string]any{"statementId": statement.ID, "to": driver.Email, "attachments": len(msg.Attachments)}, nil
	})
}

// RenderDocument writes the statement PDF to the document directory, sealed
// when a key is configured, and records its path.
func (s *Service) RenderDocument(ctx context.Context, statementID string) (string, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return "", err
	}
	data, err := RenderStatementPDF(statement)
	if err != nil {
		return "", fmt.Errorf("render statement pdf: %w", err)
	}
	if err := os.MkdirAll(s.docDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.docDir, statement.ID+".pdf")
	if s.sealer.Configured() {
		if data, err = s.sealer.Seal(data); err != nil {
			return "", err
		}
		path += crypto.SealedSuffix
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	if err := s.store.UpdateDocumentPath(ctx, statement.ID, path); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic replaces path in one rename so readers never see a partial
// document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// BackfillDocuments renders documents for statements that never got one,
// typically because the queue was full or the process stopped first.
func (s *Service) BackfillDocuments(ctx context.Context, limit int) (int, error) {
	ids, err := s.store.ListUndocumentedStatementIDs(ctx, limit)
	if err != nil {
		return 0, err
	}
	rendered := 0
	for _, id := range ids {
		if _, err := s.RenderDocument(ctx, id); err != nil {
			slog.Warn("statement document backfill failed", "statementId", id, "err", err)
			continue
		}
		rendered++
	}
	return rendered, nil
}

// Document returns the statement PDF, rendering it first if no document has
// been written yet.
func (s *Service) Document(ctx context.Context, statementID string) ([]byte, error) {
	statement, err := s.store.GetStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}
	path := statement.DocumentPath
	if path == "" {
		if path, err = s.RenderDocument(ctx, statementID); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("statement document missing, rendering again", "statementId", statementID, "path", path)
		if path, err = s.RenderDocument(ctx, statementID); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentNotReady, err)
	}
	if filepath.Ext(path) == crypto.SealedSuffix {
		return s.sealer.Open(data)
	}
	return data, nil
}

func (s *Service) DriverStats(ctx context.Context, driverID string, from, to time.Time) (DriverStats, error) {
	driver, err := s.records.GetDriver(ctx, driverID)
	if err != nil {
		return DriverStats{}, err
	}
	filter := fleet.Filter{DriverID: driverID, From: from, To: to}
	loads, err := s.records.ListLoads(ctx, filter)
	if err != nil {
		return DriverStats{}, err
	}
	fuelEntries, err := s.records.ListFuelEntries(ctx, filter)
	if err != nil {
		return DriverStats{}, err
	}
	return CalculateDriverStats(&driver, loads, fuelEntries), nil
}

func (s *Service) TruckStats(ctx context.Context, truckID string, from, to time.Time) (TruckStats, error) {
	truck, err := s.records.GetTruck(ctx, truckID)
	if err != nil {
		return TruckStats{}, err
	}
	filter := fleet.Filter{TruckID: truckID, From: from, To: to}
	loads, err := s.records.ListLoads(ctx, filter)
	if err != nil {
		return TruckStats{}, err
	}
	fuelEntries, err := s.records.ListFuelEntries(ctx, filter)
	if err != nil {
		return TruckStats{}, err
	}
	return CalculateTruckStats(&truck, loads, fuelEntries), nil
}
