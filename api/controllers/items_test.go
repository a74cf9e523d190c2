package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/api/middleware"
	importsvc "github.com/okabe-lab/assetdesk-backend/internal/imports"
	itemsvc "github.com/okabe-lab/assetdesk-backend/internal/items"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

type stubItemService struct {
	item      *itemsvc.ItemDTO
	list      *itemsvc.ItemList
	err       error
	lastActor uuid.UUID
}

func (s *stubItemService) Create(ctx context.Context, actorID uuid.UUID, req itemsvc.CreateItemRequest) (*itemsvc.ItemDTO, error) {
	s.lastActor = actorID
	return s.item, s.err
}

func (s *stubItemService) Get(ctx context.Context, id uuid.UUID) (*itemsvc.ItemDTO, error) {
	return s.item, s.err
}

func (s *stubItemService) List(ctx context.Context, params pagination.Params) (*itemsvc.ItemList, error) {
	return s.list, s.err
}

func (s *stubItemService) Update(ctx context.Context, id uuid.UUID, req itemsvc.UpdateItemRequest) (*itemsvc.ItemDTO, error) {
	return s.item, s.err
}

func (s *stubItemService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

type stubScanService struct {
	result     *itemsvc.ScanResult
	err        error
	lastItemID uuid.UUID
	lastActor  uuid.UUID
}

func (s *stubScanService) Scan(ctx context.Context, itemID, actorID uuid.UUID) (*itemsvc.ScanResult, error) {
	s.lastItemID = itemID
	s.lastActor = actorID
	return s.result, s.err
}

type stubImportService struct {
	result *importsvc.StageResult
	err    error
	staged []byte
}

func (s *stubImportService) Stage(ctx context.Context, importerID uuid.UUID, file io.Reader) (*importsvc.StageResult, error) {
	data, readErr := io.ReadAll(file)
	if readErr != nil {
		return nil, readErr
	}
	s.staged = data
	return s.result, s.err
}

func (s *stubImportService) MaxUploadBytes() int64 {
	return 2 << 20
}

func authenticatedRequest(method, target string, body io.Reader, actor uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.WithUserID(req.Context(), actor.String()))
}

func requestWithID(method, target, id string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestItemScanAuthorized(t *testing.T) {
	actor := uuid.New()
	itemID := uuid.New()
	scan := &stubScanService{result: &itemsvc.ScanResult{Authorized: true, Message: "item found"}}
	handler := ItemScan(scan, nil)

	body := strings.NewReader(`{"item_id":"` + itemID.String() + `"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/scan", body, actor))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if scan.lastItemID != itemID || scan.lastActor != actor {
		t.Fatal("scan must receive the payload item and the context actor")
	}

	var envelope struct {
		Data itemsvc.ScanResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Message != "item found" {
		t.Fatalf("unexpected message %q", envelope.Data.Message)
	}
}

func TestItemScanDeniedIsUnauthorized(t *testing.T) {
	scan := &stubScanService{result: &itemsvc.ScanResult{Authorized: false, Message: "unauthorized scan"}}
	handler := ItemScan(scan, nil)

	body := strings.NewReader(`{"item_id":"` + uuid.New().String() + `"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/scan", body, uuid.New()))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "unauthorized scan" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestItemScanMissingUserContext(t *testing.T) {
	handler := ItemScan(&stubScanService{}, nil)

	body := strings.NewReader(`{"item_id":"` + uuid.New().String() + `"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/scan", body))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestItemCreatePassesActor(t *testing.T) {
	actor := uuid.New()
	svc := &stubItemService{item: &itemsvc.ItemDTO{ID: uuid.New()}}
	handler := ItemCreate(svc, nil)

	body := strings.NewReader(`{"name":"drill","purchase_date":"2024-03-01","location_id":"` + uuid.New().String() + `"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/items", body, actor))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.lastActor != actor {
		t.Fatal("create must receive the context actor")
	}
}

func TestItemGetRejectsBadID(t *testing.T) {
	handler := ItemGet(&stubItemService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithID(http.MethodGet, "/api/v1/items/nope", "nope", nil))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestItemQRCodeRendersPNG(t *testing.T) {
	itemID := uuid.New()
	svc := &stubItemService{item: &itemsvc.ItemDTO{ID: itemID}}
	handler := ItemQRCode(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithID(http.MethodGet, "/api/v1/items/"+itemID.String()+"/qrcode", itemID.String(), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("expected a PNG payload")
	}
}

func TestItemQRCodeUnknownItem(t *testing.T) {
	svc := &stubItemService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	handler := ItemQRCode(svc, nil)

	id := uuid.New().String()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithID(http.MethodGet, "/api/v1/items/"+id+"/qrcode", id, nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestItemsImportAccepted(t *testing.T) {
	actor := uuid.New()
	svc := &stubImportService{result: &importsvc.StageResult{ObjectKey: "imports/job.csv"}}
	handler := ItemsImport(svc, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "items.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("name,location\ndrill,workshop\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := authenticatedRequest(http.MethodPost, "/api/v1/items/import", &buf, actor)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(string(svc.staged), "drill") {
		t.Fatal("uploaded file content must reach the import service")
	}
}

func TestItemsImportRequiresFile(t *testing.T) {
	handler := ItemsImport(&stubImportService{}, nil)

	req := authenticatedRequest(http.MethodPost, "/api/v1/items/import", strings.NewReader("no file"), uuid.New())
	req.Header.Set("Content-Type", "text/plain")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
