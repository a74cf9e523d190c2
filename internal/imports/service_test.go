package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
)

type stubStager struct {
	objects  map[string][]byte
	writeErr error
	deleted  []string
}

func newStubStager() *stubStager {
	return &stubStager{objects: map[string][]byte{}}
}

func (s *stubStager) Write(ctx context.Context, object, contentType string, body io.Reader) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[object] = data
	return nil
}

func (s *stubStager) Delete(ctx context.Context, object string) error {
	s.deleted = append(s.deleted, object)
	delete(s.objects, object)
	return nil
}

type stubPublisher struct {
	payloads [][]byte
	err      error
}

func (p *stubPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.payloads = append(p.payloads, data)
	return "msg-1", nil
}

func newImportTestService(t *testing.T, stager *stubStager, publisher *stubPublisher) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Storage:   stager,
		Publisher: publisher,
		Config:    config.ImportConfig{MaxUploadMB: 2, BatchSize: 100, ObjectDir: "imports"},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestStageWritesObjectAndQueuesJob(t *testing.T) {
	stager := newStubStager()
	publisher := &stubPublisher{}
	svc := newImportTestService(t, stager, publisher)
	importerID := uuid.New()

	result, err := svc.Stage(context.Background(), importerID, strings.NewReader("name,location\ndrill,workshop\n"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if !strings.HasPrefix(result.ObjectKey, "imports/") || !strings.HasSuffix(result.ObjectKey, ".csv") {
		t.Fatalf("unexpected object key %q", result.ObjectKey)
	}
	if _, ok := stager.objects[result.ObjectKey]; !ok {
		t.Fatalf("expected staged object %q", result.ObjectKey)
	}
	if len(publisher.payloads) != 1 {
		t.Fatalf("expected one published job, got %d", len(publisher.payloads))
	}

	var job JobMessage
	if err := json.Unmarshal(publisher.payloads[0], &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ObjectKey != result.ObjectKey || job.ImporterID != importerID {
		t.Fatalf("unexpected job payload %+v", job)
	}
}

func TestStageRejectsOversizedUpload(t *testing.T) {
	stager := newStubStager()
	svc := newImportTestService(t, stager, &stubPublisher{})

	oversized := bytes.NewReader(make([]byte, 2<<20+1))
	_, err := svc.Stage(context.Background(), uuid.New(), oversized)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(stager.objects) != 0 {
		t.Fatal("oversized upload must not be staged")
	}
}

func TestStageRejectsEmptyUpload(t *testing.T) {
	svc := newImportTestService(t, newStubStager(), &stubPublisher{})

	_, err := svc.Stage(context.Background(), uuid.New(), strings.NewReader(""))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStageCleansUpWhenPublishFails(t *testing.T) {
	stager := newStubStager()
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	svc := newImportTestService(t, stager, publisher)

	_, err := svc.Stage(context.Background(), uuid.New(), strings.NewReader("name,location\ndrill,workshop\n"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(stager.objects) != 0 {
		t.Fatal("staged object must be removed when the publish fails")
	}
	if len(stager.deleted) != 1 {
		t.Fatalf("expected one cleanup delete, got %d", len(stager.deleted))
	}
}
