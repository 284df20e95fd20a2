// File path: internal/cortex/client_test.go
package cortex_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/cortex/cortextest"
)

func newTestClient(t *testing.T, server *cortextest.Server) *cortex.Client {
	t.Helper()
	client := cortex.New(cortex.Config{
		BaseURL:  server.URL(),
		Login:    "archives",
		Password: "secret",
		Timeout:  5 * time.Second,
	})
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return client
}

func TestAuthenticate(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	client := newTestClient(t, server)
	if client.Token() != cortextest.TestToken {
		t.Fatalf("token = %q, want %q", client.Token(), cortextest.TestToken)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	client := cortex.New(cortex.Config{BaseURL: server.URL()})
	err := client.Authenticate(context.Background())
	if !errors.Is(err, cortex.ErrRemoteFailure) {
		t.Fatalf("err = %v, want remote failure", err)
	}
	if client.Token() != "" {
		t.Fatalf("token issued on failure: %q", client.Token())
	}
}

func TestApplyRequiresToken(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	client := cortex.New(cortex.Config{BaseURL: server.URL()})
	req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "PR_1"))
	if err := client.Apply(context.Background(), req); !errors.Is(err, cortex.ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
}

func TestApplyQueryString(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "PR_8800"),
		cortex.Set("CoreField.Title", "Wk 5 / Masur"),
		cortex.Append("NYP.Season", "1999-2000"),
	)
	if err := client.Apply(context.Background(), req); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	record := server.Get(cortex.EntityProgram, "PR_8800")
	if record == nil {
		t.Fatal("record not created")
	}
	if got := record.FieldJoined("CoreField.Title"); got != "Wk 5 / Masur" {
		t.Fatalf("title = %q", got)
	}
	if got := record.FieldJoined("NYP.Season"); got != "1999-2000" {
		t.Fatalf("season = %q", got)
	}
}

func TestApplyFormBody(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "PR_8800"),
		cortex.Set("CoreField.Description", "A very long program note & markup"),
	).WithFormBody()
	if err := client.Apply(context.Background(), req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	record := server.Get(cortex.EntityProgram, "PR_8800")
	if got := record.FieldJoined("CoreField.Description"); got != "A very long program note & markup" {
		t.Fatalf("description = %q", got)
	}
}

func TestApplyTransportError(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	server.FailNext(1)
	req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "PR_1"))
	err := client.Apply(context.Background(), req)
	var statusErr *cortex.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if !cortex.Retryable(err) {
		t.Fatal("transport error should be retryable")
	}
}

func TestRead(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	server.Put(cortex.EntitySource, "100021", map[string][]string{
		"CoreField.Role": {"Conductor", "Composer"},
	}, "")

	result, err := client.Read(context.Background(), cortex.EntitySource, "CoreField.Artist-ID", "100021")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("count = %d", result.Count)
	}
	if got := result.Get("CoreField.Role"); got != "Conductor|Composer" {
		t.Fatalf("role = %q", got)
	}

	missing, err := client.Read(context.Background(), cortex.EntitySource, "CoreField.Artist-ID", "999999")
	if err != nil {
		t.Fatalf("Read missing: %v", err)
	}
	if missing.Count != 0 || missing.Get("CoreField.Role") != "" {
		t.Fatalf("missing record: count=%d role=%q", missing.Count, missing.Get("CoreField.Role"))
	}
}

func TestSearchLineage(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	server.Put(cortex.EntityWork, "WORK_44", nil,
		"[Documents.All:CoreField.Identifier=PH1ABC]")

	result, err := client.Search(context.Background(),
		"CoreField.Legacy-Identifier:WORK_44 DocSubType:Work",
		"Document.LineageParentName")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalCount != 1 {
		t.Fatalf("total = %d", result.TotalCount)
	}
	if got := result.Field("Document.LineageParentName"); got != "PH1ABC" {
		t.Fatalf("lineage parent = %q", got)
	}
}
