package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPeek_SendsSinceAndDecodesChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/changes" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("since"); got != "ref-41" {
			t.Errorf("expected since=ref-41, got: %s", got)
		}
		json.NewEncoder(w).Encode(changesResponse{
			Changes: []Change{
				{Name: "serde", Version: "1.0.200", Kind: ReleaseAdded},
				{Name: "old-crate", Version: "0.1.0", Kind: ReleaseYanked},
			},
			Head: "ref-42",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	since := "ref-41"
	changes, head, err := client.Peek(context.Background(), &since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if head != "ref-42" {
		t.Errorf("expected head ref-42, got: %s", head)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Name != "serde" || changes[0].Kind != ReleaseAdded {
		t.Errorf("unexpected first change: %+v", changes[0])
	}
	if changes[1].Kind != ReleaseYanked {
		t.Errorf("unexpected second change kind: %s", changes[1].Kind)
	}
}

func TestPeek_OmitsSinceOnBootstrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("since") {
			t.Error("expected no since parameter for a nil resume reference")
		}
		json.NewEncoder(w).Encode(changesResponse{Head: "ref-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	changes, head, err := client.Peek(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if head != "ref-1" {
		t.Errorf("expected head ref-1, got: %s", head)
	}
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %d", len(changes))
	}
}

func TestPeek_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, _, err := client.Peek(context.Background(), nil); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestAllReleases_BuildsVersionSets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/releases" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(releasesResponse{
			Crates: map[string][]string{
				"serde": {"1.0.199", "1.0.200"},
				"tokio": {"1.38.0"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	releases, err := client.AllReleases(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("expected 2 crates, got %d", len(releases))
	}
	if !releases["serde"]["1.0.200"] || !releases["serde"]["1.0.199"] {
		t.Errorf("missing serde versions: %+v", releases["serde"])
	}
	if !releases["tokio"]["1.38.0"] {
		t.Errorf("missing tokio version: %+v", releases["tokio"])
	}
}
