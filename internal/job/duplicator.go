package job

import (
	"context"
	"errors"
	"time"

	"github.com/flowbaker/misoca-monthly/internal/failure"
	"github.com/flowbaker/misoca-monthly/internal/invoice"
	"github.com/flowbaker/misoca-monthly/pkg/clients/misoca"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNoSourceInvoice = errors.New("SOURCE_INVOICE_ID is not set")

type AccessTokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

type InvoiceAPI interface {
	GetInvoice(ctx context.Context, accessToken, invoiceID string) (*misoca.Invoice, error)
	CreateInvoice(ctx context.Context, accessToken string, req *misoca.CreateInvoiceRequest) (*misoca.Invoice, error)
	InvoiceURL(invoiceID string) string
}

type DuplicatorDependencies struct {
	Tokens          AccessTokenProvider
	API             InvoiceAPI
	SourceInvoiceID string
	Now             func() time.Time
}

// Duplicator runs one monthly duplication: token, fetch, transform, submit
type Duplicator struct {
	tokens          AccessTokenProvider
	api             InvoiceAPI
	sourceInvoiceID string
	now             func() time.Time
}

func NewDuplicator(deps DuplicatorDependencies) *Duplicator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Duplicator{
		tokens:          deps.Tokens,
		api:             deps.API,
		sourceInvoiceID: deps.SourceInvoiceID,
		now:             now,
	}
}

// Run executes the pipeline once and returns the created invoice. The first failing step
// ends the run with a *failure.Error.
func (d *Duplicator) Run(ctx context.Context) (*misoca.Invoice, error) {
	logger := log.With().Str("run_id", xid.New().String()).Logger()

	startedAt := d.now()
	logger.Info().Time("started_at", startedAt).Msg("Monthly invoice duplication started")

	created, err := d.run(ctx, logger)

	finishedAt := d.now()
	event := logger.Info()
	if err != nil {
		event = logger.Error().Str("kind", failure.KindOf(err).String()).Err(err)
	}
	event.
		Time("finished_at", finishedAt).
		Int64("elapsed_ms", finishedAt.Sub(startedAt).Milliseconds()).
		Msg("Monthly invoice duplication finished")

	return created, err
}

func (d *Duplicator) run(ctx context.Context, logger zerolog.Logger) (*misoca.Invoice, error) {
	if d.sourceInvoiceID == "" {
		logger.Error().Msg("SOURCE_INVOICE_ID is not set")
		return nil, failure.NewError(failure.KindConfig, "source invoice", ErrNoSourceInvoice)
	}

	accessToken, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	source, err := d.fetch(ctx, logger, accessToken)
	if err != nil {
		return nil, err
	}

	req := invoice.Duplicate(d.now(), *source)

	logger.Info().
		Str("subject", req.Subject).
		Str("issue_date", req.IssueDate).
		Str("payment_due_on", req.PaymentDueOn).
		Msg("Duplicate invoice prepared")

	return d.submit(ctx, logger, accessToken, &req)
}

func (d *Duplicator) fetch(ctx context.Context, logger zerolog.Logger, accessToken string) (*misoca.Invoice, error) {
	logger.Info().Str("invoice_id", d.sourceInvoiceID).Msg("Fetching source invoice")

	source, err := d.api.GetInvoice(ctx, accessToken, d.sourceInvoiceID)
	if err != nil {
		diagnostics(logger, err).Str("invoice_id", d.sourceInvoiceID).Msg("Failed to fetch source invoice")
		return nil, failure.NewError(failure.KindUpstream, "fetch source invoice", err)
	}

	contactName := source.ContactName
	if contactName == "" {
		contactName = "no contact information"
	}

	logger.Info().
		Str("subject", source.Subject).
		Str("contact_name", contactName).
		Int("items", len(source.Items)).
		Msg("Source invoice fetched")

	return source, nil
}

func (d *Duplicator) submit(ctx context.Context, logger zerolog.Logger, accessToken string, req *misoca.CreateInvoiceRequest) (*misoca.Invoice, error) {
	created, err := d.api.CreateInvoice(ctx, accessToken, req)
	if err != nil {
		event := diagnostics(logger, err)
		if apiErr, ok := misoca.AsError(err); ok {
			switch {
			case apiErr.IsValidationError():
				event = event.Str("hint", "likely validation error, check invoice data")
			case apiErr.IsAuthError():
				event = event.Str("hint", "likely invalid access token")
			}
		}
		event.Msg("Failed to create invoice")
		return nil, failure.NewError(failure.KindUpstream, "create invoice", err)
	}

	logger.Info().
		Str("invoice_id", created.ID.String()).
		Str("subject", created.Subject).
		Str("url", d.api.InvoiceURL(created.ID.String())).
		Msg("Invoice created")

	return created, nil
}

func diagnostics(logger zerolog.Logger, err error) *zerolog.Event {
	event := logger.Error().Str("message", err.Error())

	if apiErr, ok := misoca.AsError(err); ok {
		event = event.
			Int("status", apiErr.StatusCode).
			Str("status_text", apiErr.StatusText()).
			Str("data", apiErr.Body)
	}

	return event
}
