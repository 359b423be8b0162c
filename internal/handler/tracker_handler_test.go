package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/droplog/internal/db"
	"github.com/droplog/internal/service"
	"github.com/droplog/internal/storage"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupTestAPI(t *testing.T) (*API, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	return NewAPI(service.NewTrackerService(store)), store
}

func performJSON(t *testing.T, handlerFn gin.HandlerFunc, method, target string, payload any, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params

	handlerFn(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestGetStateDefaults(t *testing.T) {
	api, _ := setupTestAPI(t)

	w := performJSON(t, api.GetState, http.MethodGet, "/api/state", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["dailyTarget"].(float64) != 2500 {
		t.Fatalf("expected default target 2500, got %v", body["dailyTarget"])
	}
	if body["selectedCupSizeId"].(string) != "1" {
		t.Fatalf("expected default selection 1, got %v", body["selectedCupSizeId"])
	}
	cups := body["cupSizes"].([]any)
	if len(cups) != 3 {
		t.Fatalf("expected 3 cup sizes, got %d", len(cups))
	}
	if body["goalReached"].(bool) {
		t.Fatal("expected goal not reached")
	}
}

func TestAddEntryEndpoint(t *testing.T) {
	api, _ := setupTestAPI(t)

	w := performJSON(t, api.AddEntry, http.MethodPost, "/api/entries", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if !body["added"].(bool) {
		t.Fatal("expected entry added")
	}
	if body["todayTotal"].(float64) != 250 {
		t.Fatalf("expected today total 250, got %v", body["todayTotal"])
	}

	entry := body["entry"].(map[string]any)
	if entry["amount"].(float64) != 250 {
		t.Fatalf("expected entry amount 250, got %v", entry["amount"])
	}
	if entry["time"].(string) == "" {
		t.Fatal("expected formatted time on entry")
	}
}

func TestAddEntryReportsExactHit(t *testing.T) {
	api, _ := setupTestAPI(t)

	performJSON(t, api.SetTarget, http.MethodPut, "/api/target", map[string]any{"target": 250}, nil)

	w := performJSON(t, api.AddEntry, http.MethodPost, "/api/entries", nil, nil)
	body := decodeBody(t, w)

	if !body["goalCrossed"].(bool) {
		t.Fatal("expected goal crossing")
	}
	if !body["exactHit"].(bool) {
		t.Fatal("expected exact hit")
	}
	if !body["goalReached"].(bool) {
		t.Fatal("expected goal reached")
	}
}

func TestSetTargetValidation(t *testing.T) {
	api, _ := setupTestAPI(t)

	// 非法 JSON
	req := httptest.NewRequest(http.MethodPut, "/api/target", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	api.SetTarget(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	// 非正目标由引擎软校验忽略
	w = performJSON(t, api.SetTarget, http.MethodPut, "/api/target", map[string]any{"target": -5}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["dailyTarget"].(float64) != 2500 {
		t.Fatalf("expected target unchanged, got %v", body["dailyTarget"])
	}

	w = performJSON(t, api.SetTarget, http.MethodPut, "/api/target", map[string]any{"target": 1800}, nil)
	body = decodeBody(t, w)
	if body["dailyTarget"].(float64) != 1800 {
		t.Fatalf("expected target 1800, got %v", body["dailyTarget"])
	}
}

func TestCupSizeLifecycle(t *testing.T) {
	api, _ := setupTestAPI(t)

	w := performJSON(t, api.CreateCupSize, http.MethodPost, "/api/cup-sizes", map[string]any{"size": 330, "label": "Can"}, nil)
	body := decodeBody(t, w)
	cups := body["cupSizes"].([]any)
	if len(cups) != 4 {
		t.Fatalf("expected 4 cup sizes, got %d", len(cups))
	}
	added := cups[3].(map[string]any)
	if added["label"].(string) != "Can (330ml)" {
		t.Fatalf("expected composed label, got %v", added["label"])
	}

	// 删除当前选中的杯量后新增记录静默失败
	w = performJSON(t, api.DeleteCupSize, http.MethodDelete, "/api/cup-sizes/1", nil, gin.Params{gin.Param{Key: "id", Value: "1"}})
	body = decodeBody(t, w)
	if len(body["cupSizes"].([]any)) != 3 {
		t.Fatalf("expected 3 cup sizes after delete, got %d", len(body["cupSizes"].([]any)))
	}

	w = performJSON(t, api.AddEntry, http.MethodPost, "/api/entries", nil, nil)
	body = decodeBody(t, w)
	if body["added"].(bool) {
		t.Fatal("expected add to no-op with dangling selection")
	}

	// 重新选择后恢复
	performJSON(t, api.SetSelectedCup, http.MethodPut, "/api/cup-sizes/selected", map[string]any{"id": "2"}, nil)
	w = performJSON(t, api.AddEntry, http.MethodPost, "/api/entries", nil, nil)
	body = decodeBody(t, w)
	if !body["added"].(bool) {
		t.Fatal("expected add to succeed after reselection")
	}
	if body["todayTotal"].(float64) != 500 {
		t.Fatalf("expected today total 500, got %v", body["todayTotal"])
	}
}

func TestGetHistoryOrdering(t *testing.T) {
	// 预写乱序历史，读取时必须按日期倒序、条目按时间倒序
	store := storage.NewMemoryStore()
	store.Set(db.StorageKeyHistory, `[
		{"date":"2025-06-08","total":250,"entries":[
			{"id":"100","amount":250,"timestamp":1749350000000,"cupSize":250}
		]},
		{"date":"2025-06-09","total":750,"entries":[
			{"id":"101","amount":250,"timestamp":1749400000000,"cupSize":250},
			{"id":"102","amount":500,"timestamp":1749400100000,"cupSize":500}
		]}
	]`)

	api := NewAPI(service.NewTrackerService(store))

	w := performJSON(t, api.GetHistory, http.MethodGet, "/api/history", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	records := body["history"].([]any)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0].(map[string]any)
	if first["date"].(string) != "2025-06-09" {
		t.Fatalf("expected newest date first, got %v", first["date"])
	}
	if first["formattedDate"].(string) == "" {
		t.Fatal("expected formatted date")
	}

	entries := first["entries"].([]any)
	if entries[0].(map[string]any)["id"].(string) != "102" {
		t.Fatalf("expected newest entry first, got %v", entries[0])
	}
}
