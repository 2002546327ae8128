package heroku

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dynosched/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.HerokuConfig{APIToken: "token", BaseURL: srv.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(&config.HerokuConfig{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestTurnOnScalesFormation(t *testing.T) {
	var gotPath, gotMethod, gotAuth, gotAccept string
	var gotBody scaleRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotAuth, gotAccept = r.Header.Get("Authorization"), r.Header.Get("Accept")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_ = json.NewEncoder(w).Encode(Formation{Type: "worker", Quantity: gotBody.Quantity})
	})

	if err := c.TurnOnApp(context.Background(), Target{App: "alpha", ProcessType: "worker", Quantity: 2}); err != nil {
		t.Fatalf("TurnOnApp: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/apps/alpha/formation/worker" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotBody.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", gotBody.Quantity)
	}
	if gotAuth != "Bearer token" || gotAccept != acceptHeader {
		t.Errorf("unexpected headers auth=%q accept=%q", gotAuth, gotAccept)
	}
}

func TestTurnOffDefaultsToWeb(t *testing.T) {
	var gotPath string
	var gotBody scaleRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`{"type":"web","quantity":0}`))
	})

	if err := c.TurnOffApp(context.Background(), Target{App: "alpha"}); err != nil {
		t.Fatalf("TurnOffApp: %v", err)
	}
	if gotPath != "/apps/alpha/formation/web" || gotBody.Quantity != 0 {
		t.Errorf("unexpected scale request path=%s qty=%d", gotPath, gotBody.Quantity)
	}
}

func TestRemoteErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"id":"not_found","message":"Couldn't find that app."}`))
	})

	err := c.TurnOnApp(context.Background(), Target{App: "ghost"})
	var remote *RemoteActionError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteActionError, got %T %v", err, err)
	}
	if remote.Message != "Couldn't find that app." || remote.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected error contents: %+v", remote)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected errors.Is(err, ErrNotFound)")
	}
	if ErrorMessage(err) != "Couldn't find that app." {
		t.Errorf("ErrorMessage = %q", ErrorMessage(err))
	}
}

func TestGetAppStatusAndValidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apps/alpha/dynos":
			_, _ = w.Write([]byte(`[{"name":"web.1","type":"web","size":"basic","state":"up"},{"name":"worker.1","type":"worker","size":"basic","state":"crashed"}]`))
		case "/apps/alpha":
			_, _ = w.Write([]byte(`{"name":"alpha","web_url":"https://alpha.herokuapp.com/"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"id":"not_found","message":"nope"}`))
		}
	})

	st, err := c.GetAppStatus(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("GetAppStatus: %v", err)
	}
	if !st.Running || len(st.Dynos) != 2 {
		t.Errorf("unexpected status %+v", st)
	}
	if !c.ValidateApp(context.Background(), "alpha") {
		t.Errorf("expected alpha to validate")
	}
	if c.ValidateApp(context.Background(), "beta") {
		t.Errorf("expected beta to fail validation")
	}
}
