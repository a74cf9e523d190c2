package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
)

const (
	csvContentType = "text/csv"
	publishTimeout = 30 * time.Second
)

// JobMessage is the payload published for each staged import. The worker
// consumes it verbatim.
type JobMessage struct {
	ObjectKey  string    `json:"object_key"`
	ImporterID uuid.UUID `json:"importer_id"`
}

// StageResult is returned to the uploader once the file is staged and the
// job is queued.
type StageResult struct {
	ObjectKey string `json:"object_key"`
}

// Service accepts uploaded CSV files and hands them to the async worker.
type Service interface {
	Stage(ctx context.Context, importerID uuid.UUID, file io.Reader) (*StageResult, error)
	MaxUploadBytes() int64
}

type objectStager interface {
	Write(ctx context.Context, object, contentType string, body io.Reader) error
	Delete(ctx context.Context, object string) error
}

type jobPublisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

type service struct {
	storage   objectStager
	publisher jobPublisher
	cfg       config.ImportConfig
	logg      *logger.Logger
	newID     func() uuid.UUID
}

// ServiceParams bundles the dependencies required to build the import service.
type ServiceParams struct {
	Storage   objectStager
	Publisher jobPublisher
	Config    config.ImportConfig
	Logger    *logger.Logger
}

// NewService constructs the import staging service.
func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("job publisher is required")
	}
	return &service{
		storage:   params.Storage,
		publisher: params.Publisher,
		cfg:       params.Config,
		logg:      params.Logger,
		newID:     uuid.New,
	}, nil
}

func (s *service) MaxUploadBytes() int64 {
	return int64(s.cfg.MaxUploadMB) << 20
}

// Stage buffers the upload, writes it to object storage and queues the job.
// The staged object is removed again if the publish fails, so a rejected
// upload never leaks storage.
func (s *service) Stage(ctx context.Context, importerID uuid.UUID, file io.Reader) (*StageResult, error) {
	maxBytes := s.MaxUploadBytes()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploaded file is empty")
	}
	if n > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("uploaded file exceeds %d MB limit", s.cfg.MaxUploadMB))
	}

	objectKey := path.Join(s.cfg.ObjectDir, s.newID().String()+".csv")
	if err := s.storage.Write(ctx, objectKey, csvContentType, &buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage import file")
	}

	payload, err := json.Marshal(JobMessage{ObjectKey: objectKey, ImporterID: importerID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode import job")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	messageID, err := s.publisher.Publish(publishCtx, payload)
	if err != nil {
		if cleanupErr := s.storage.Delete(ctx, objectKey); cleanupErr != nil && s.logg != nil {
			cleanupCtx := s.logg.WithField(ctx, "object_key", objectKey)
			s.logg.Warn(cleanupCtx, "imports.stage_cleanup_failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue import job")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"object_key": objectKey,
			"message_id": messageID,
		})
		s.logg.Info(logCtx, "imports.job_queued")
	}
	return &StageResult{ObjectKey: objectKey}, nil
}

// TopicPublisher adapts a Pub/Sub publisher handle to the jobPublisher
// interface so the service can be tested without a live broker.
type TopicPublisher struct {
	publisher *pubsub.Publisher
}

// NewTopicPublisher wraps the given publisher handle.
func NewTopicPublisher(publisher *pubsub.Publisher) *TopicPublisher {
	return &TopicPublisher{publisher: publisher}
}

// Publish sends the payload and blocks until the server acknowledges it.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	if p == nil || p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher not initialized")
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	return result.Get(ctx)
}
