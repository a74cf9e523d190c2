package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
	"github.com/okabe-lab/assetdesk-backend/pkg/metrics"
)

const (
	jobName           = "items_csv"
	purchaseDateInput = "2006-01-02"
)

type objectReader interface {
	Read(ctx context.Context, object string) (io.ReadCloser, error)
	Delete(ctx context.Context, object string) error
}

type itemBatchCreator interface {
	CreateInBatches(ctx context.Context, items []models.Item, batchSize int) error
}

type locationResolver interface {
	FindByName(ctx context.Context, name string) (*models.Location, error)
}

type userResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByNameOrEmail(ctx context.Context, value string) (*models.User, error)
}

// Consumer drains the imports subscription and turns staged CSV files into
// item rows.
type Consumer struct {
	subscription *pubsub.Subscriber
	storage      objectReader
	items        itemBatchCreator
	locations    locationResolver
	users        userResolver
	metrics      *metrics.ImportJobMetrics
	logg         *logger.Logger
	batchSize    int
	now          func() time.Time
}

// ConsumerParams bundles the dependencies required to build the import consumer.
type ConsumerParams struct {
	Subscription *pubsub.Subscriber
	Storage      objectReader
	Items        itemBatchCreator
	Locations    locationResolver
	Users        userResolver
	Metrics      *metrics.ImportJobMetrics
	Logger       *logger.Logger
	BatchSize    int
}

// NewConsumer constructs the import consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("imports subscription is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("items repository is required")
	}
	if params.Locations == nil {
		return nil, fmt.Errorf("locations repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Consumer{
		subscription: params.Subscription,
		storage:      params.Storage,
		items:        params.Items,
		locations:    params.Locations,
		users:        params.Users,
		metrics:      params.Metrics,
		logg:         params.Logger,
		batchSize:    batchSize,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

type processResult struct {
	ack bool
}

// Run blocks receiving messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		result := c.process(msgCtx, msg.Data)
		if result.ack {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("imports receive loop: %w", err)
	}
	return nil
}

// process handles a single job. A malformed message or a failed job is acked
// rather than redelivered: the staged file is removed either way, so a retry
// could never succeed.
func (c *Consumer) process(ctx context.Context, data []byte) processResult {
	var job JobMessage
	if err := json.Unmarshal(data, &job); err != nil {
		c.warn(ctx, "imports.bad_message", err)
		return processResult{ack: true}
	}
	if job.ObjectKey == "" || job.ImporterID == uuid.Nil {
		c.warn(ctx, "imports.bad_message", fmt.Errorf("missing object key or importer"))
		return processResult{ack: true}
	}

	start := c.now()
	report, err := c.runJob(ctx, job)
	c.metrics.ObserveDuration(jobName, c.now().Sub(start))

	logCtx := c.logCtx(ctx, job, report)
	if err != nil {
		c.metrics.IncFailure(jobName)
		c.warn(logCtx, "imports.job_failed", err)
		return processResult{ack: true}
	}

	c.metrics.IncSuccess(jobName)
	c.metrics.AddRowsCreated(jobName, report.created)
	c.metrics.AddRowsSkipped(jobName, report.skipped)
	if c.logg != nil {
		c.logg.Info(logCtx, "imports.job_done")
	}
	return processResult{ack: true}
}

type jobReport struct {
	created int
	skipped int
	rowErrs error
}

func (c *Consumer) runJob(ctx context.Context, job JobMessage) (jobReport, error) {
	var report jobReport

	importer, err := c.users.FindByID(ctx, job.ImporterID)
	if err != nil {
		return report, fmt.Errorf("resolve importer: %w", err)
	}

	body, err := c.storage.Read(ctx, job.ObjectKey)
	if err != nil {
		return report, fmt.Errorf("download staged file: %w", err)
	}
	// The staged object is consumed exactly once, whatever the outcome.
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			c.warn(ctx, "imports.close_failed", closeErr)
		}
		if deleteErr := c.storage.Delete(ctx, job.ObjectKey); deleteErr != nil {
			c.warn(ctx, "imports.cleanup_failed", deleteErr)
		}
	}()

	rows, rowErrs := readRows(body)
	report.rowErrs = rowErrs
	report.skipped += len(multierr.Errors(rowErrs))
	if len(rows) == 0 && rowErrs != nil {
		return report, fmt.Errorf("no usable rows: %w", rowErrs)
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		item, err := c.resolveRow(ctx, row, importer)
		if err != nil {
			report.skipped++
			report.rowErrs = multierr.Append(report.rowErrs, err)
			continue
		}
		items = append(items, *item)
	}

	if err := c.items.CreateInBatches(ctx, items, c.batchSize); err != nil {
		return report, fmt.Errorf("insert items: %w", err)
	}
	report.created = len(items)
	return report, nil
}

// resolveRow turns one CSV row into an item, applying the forgiving defaults
// the endpoint documents: unknown people fall back to the importer, bad dates
// fall back to today, and unknown statuses fall back to registered.
func (c *Consumer) resolveRow(ctx context.Context, row csvRow, importer *models.User) (*models.Item, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("line %d: name is required", row.Line)
	}
	if row.Location == "" {
		return nil, fmt.Errorf("line %d: location is required", row.Line)
	}

	location, err := c.locations.FindByName(ctx, row.Location)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("line %d: unknown location %q", row.Line, row.Location)
		}
		return nil, fmt.Errorf("line %d: resolve location: %w", row.Line, err)
	}

	return &models.Item{
		ID:           uuid.New(),
		Name:         row.Name,
		Description:  row.Description,
		PurchaseDate: c.parseDate(row.PurchaseDate),
		Status:       importStatus(row.Status),
		ManagerID:    c.resolveUser(ctx, row.Manager, importer),
		OwnerID:      c.resolveUser(ctx, row.Owner, importer),
		LocationID:   location.ID,
	}, nil
}

func (c *Consumer) resolveUser(ctx context.Context, value string, importer *models.User) uuid.UUID {
	if value == "" {
		return importer.ID
	}
	user, err := c.users.FindByNameOrEmail(ctx, value)
	if err != nil {
		return importer.ID
	}
	return user.ID
}

func (c *Consumer) parseDate(value string) time.Time {
	if value == "" {
		return c.now().Truncate(24 * time.Hour)
	}
	parsed, err := time.Parse(purchaseDateInput, value)
	if err != nil {
		return c.now().Truncate(24 * time.Hour)
	}
	return parsed
}

// importStatus normalizes the status column. Reserved is deliberately not
// importable: reservations only exist through approved loans.
func importStatus(value string) enums.ItemStatus {
	status, err := enums.ParseItemStatus(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || status == enums.ItemStatusReserved {
		return enums.ItemStatusRegistered
	}
	return status
}

func (c *Consumer) logCtx(ctx context.Context, job JobMessage, report jobReport) context.Context {
	if c.logg == nil {
		return ctx
	}
	fields := map[string]any{
		"object_key": job.ObjectKey,
		"created":    report.created,
		"skipped":    report.skipped,
	}
	if report.rowErrs != nil {
		fields["row_errors"] = report.rowErrs.Error()
	}
	ctx = c.logg.WithUserID(ctx, job.ImporterID.String())
	return c.logg.WithFields(ctx, fields)
}

func (c *Consumer) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
