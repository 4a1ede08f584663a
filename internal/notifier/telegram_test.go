package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"OilSentinel/internal/model"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prev := apiBase
	apiBase = srv.URL
	t.Cleanup(func() { apiBase = prev })

	return NewTelegramNotifier("TOKEN", "42", "Oil", "")
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	tn := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"ok":true}`))
	})

	if err := tn.SendMessage(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotPayload["chat_id"] != "42" || gotPayload["text"] != "<b>hello</b>" || gotPayload["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", gotPayload)
	}
}

func TestSetChatTitle(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	tn := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"ok":true}`))
	})

	if err := tn.SetChatTitle(context.Background(), "Oil 📈 $76.28"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if gotPath != "/botTOKEN/setChatTitle" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotPayload["title"] != "Oil 📈 $76.28" {
		t.Errorf("unexpected payload: %v", gotPayload)
	}
}

func TestCall_APIErrorSurfaces(t *testing.T) {
	tn := withTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"not enough rights"}`))
	})

	err := tn.SetChatTitle(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error for 403")
	}
}

func TestCall_RateLimitRetriesThenGivesUp(t *testing.T) {
	var requests int
	tn := withTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"parameters":{"retry_after":1}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := tn.SendMessage(ctx, "spam")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if requests != rateLimitRetries+1 {
		t.Errorf("expected %d attempts, got %d", rateLimitRetries+1, requests)
	}
}

func TestRetryAfter(t *testing.T) {
	if d := retryAfter([]byte(`{"parameters":{"retry_after":7}}`)); d != 7*time.Second {
		t.Errorf("expected 7s, got %v", d)
	}
	if d := retryAfter([]byte(`{"parameters":{"retry_after":600}}`)); d != maxRetryAfter {
		t.Errorf("expected cap %v, got %v", maxRetryAfter, d)
	}
	if d := retryAfter([]byte(`garbage`)); d != 5*time.Second {
		t.Errorf("expected default 5s, got %v", d)
	}
}

func TestAnnounce_IndependentCalls(t *testing.T) {
	var titleCalls, messageCalls int
	tn := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/setChatTitle":
			titleCalls++
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"ok":false}`))
		case "/botTOKEN/sendMessage":
			messageCalls++
			w.Write([]byte(`{"ok":true}`))
		}
	})

	evt := &model.ChangeEvent{
		Type: model.EventUpdate,
		Old:  &model.PriceRecord{Price: 72.59, Cycle: 6547},
		New:  model.PriceRecord{Price: 76.28, Cycle: 6548},
		Delta: model.Delta{
			Abs: 3.69, Percent: 5.08, Trend: model.TrendUp,
		},
		DetectedAt: time.Now(),
	}

	res := tn.Announce(context.Background(), evt)
	if res.RenameErr == nil {
		t.Error("expected rename failure to be reported")
	}
	if res.MessageErr != nil {
		t.Errorf("message call must still run: %v", res.MessageErr)
	}
	if titleCalls != 1 || messageCalls != 1 {
		t.Errorf("expected both calls attempted, got title=%d message=%d", titleCalls, messageCalls)
	}
}
