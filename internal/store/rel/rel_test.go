package rel

import (
	"context"
	"testing"

	"github.com/vital-ai/vital-graph/internal/rdf"
)

// setupTestStore creates a store rooted in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testQuad(s, p, o string) rdf.Quad {
	return rdf.NewQuad(
		rdf.IRI("http://example.org/"+s),
		rdf.IRI("http://example.org/"+p),
		rdf.NewLiteral(o),
		rdf.IRI("http://example.org/graph/main"),
	)
}

// apply runs delete/insert sets in one committed transaction.
func apply(t *testing.T, store *Store, spaceID string, deletes, inserts []rdf.Quad) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx, spaceID)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	for _, q := range deletes {
		if err := tx.DeleteQuad(ctx, q); err != nil {
			t.Fatalf("DeleteQuad failed: %v", err)
		}
	}
	for _, q := range inserts {
		if err := tx.InsertQuad(ctx, q); err != nil {
			t.Fatalf("InsertQuad failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestInsertAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	apply(t, store, "space1", nil, []rdf.Quad{
		testQuad("s1", "p1", "a"),
		testQuad("s1", "p2", "b"),
		testQuad("s2", "p1", "c"),
	})

	count, err := store.CountQuads(ctx, "space1")
	if err != nil {
		t.Fatalf("CountQuads failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	q := testQuad("s1", "p1", "a")
	apply(t, store, "space1", nil, []rdf.Quad{q})
	apply(t, store, "space1", nil, []rdf.Quad{q})

	count, err := store.CountQuads(ctx, "space1")
	if err != nil {
		t.Fatalf("CountQuads failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d after duplicate insert, want 1", count)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	q := testQuad("s1", "p1", "a")
	apply(t, store, "space1", nil, []rdf.Quad{q})

	// Delete twice, plus a quad that never existed.
	apply(t, store, "space1", []rdf.Quad{q}, nil)
	apply(t, store, "space1", []rdf.Quad{q, testQuad("never", "was", "here")}, nil)

	count, err := store.CountQuads(ctx, "space1")
	if err != nil {
		t.Fatalf("CountQuads failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after deletes, want 0", count)
	}
}

func TestQuadExists(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	q := testQuad("s1", "p1", "a")
	apply(t, store, "space1", nil, []rdf.Quad{q})

	exists, err := store.QuadExists(ctx, "space1", q)
	if err != nil {
		t.Fatalf("QuadExists failed: %v", err)
	}
	if !exists {
		t.Error("inserted quad should exist")
	}

	other := testQuad("s1", "p1", "different")
	exists, err = store.QuadExists(ctx, "space1", other)
	if err != nil {
		t.Fatalf("QuadExists failed: %v", err)
	}
	if exists {
		t.Error("absent quad should not exist")
	}
}

func TestRollbackLeavesStoreUnchanged(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	apply(t, store, "space1", nil, []rdf.Quad{testQuad("s1", "p1", "a")})

	tx, err := store.Begin(ctx, "space1")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.DeleteQuad(ctx, testQuad("s1", "p1", "a")); err != nil {
		t.Fatalf("DeleteQuad failed: %v", err)
	}
	if err := tx.InsertQuad(ctx, testQuad("s9", "p9", "z")); err != nil {
		t.Fatalf("InsertQuad failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	count, err := store.CountQuads(ctx, "space1")
	if err != nil {
		t.Fatalf("CountQuads failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d after rollback, want 1", count)
	}
	exists, err := store.QuadExists(ctx, "space1", testQuad("s1", "p1", "a"))
	if err != nil {
		t.Fatalf("QuadExists failed: %v", err)
	}
	if !exists {
		t.Error("original quad should survive rollback")
	}
}

func TestAllQuadsStreams(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	want := []rdf.Quad{
		testQuad("s1", "p1", "a"),
		testQuad("s2", "p2", "b"),
	}
	apply(t, store, "space1", nil, want)

	var got []rdf.Quad
	err := store.AllQuads(ctx, "space1", func(q rdf.Quad) error {
		got = append(got, q)
		return nil
	})
	if err != nil {
		t.Fatalf("AllQuads failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("streamed %d quads, want 2", len(got))
	}
	for _, q := range want {
		if !rdf.ContainsQuad(got, q) {
			t.Errorf("stream missing %s", q)
		}
	}
}

func TestSpacesAreIsolated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	apply(t, store, "alpha", nil, []rdf.Quad{testQuad("s1", "p1", "a")})
	apply(t, store, "beta", nil, []rdf.Quad{testQuad("s2", "p2", "b")})

	countA, err := store.CountQuads(ctx, "alpha")
	if err != nil {
		t.Fatalf("CountQuads(alpha) failed: %v", err)
	}
	countB, err := store.CountQuads(ctx, "beta")
	if err != nil {
		t.Fatalf("CountQuads(beta) failed: %v", err)
	}
	if countA != 1 || countB != 1 {
		t.Errorf("counts = %d/%d, want 1/1", countA, countB)
	}
}

func TestValidateSpaceID(t *testing.T) {
	for _, good := range []string{"space1", "my-space", "a_b", "A9"} {
		if err := ValidateSpaceID(good); err != nil {
			t.Errorf("ValidateSpaceID(%q) = %v, want nil", good, err)
		}
	}
	for _, bad := range []string{"", "../etc", "a b", "-leading", "a/b", ".hidden"} {
		if err := ValidateSpaceID(bad); err == nil {
			t.Errorf("ValidateSpaceID(%q) accepted, want error", bad)
		}
	}
}

func TestLiteralTermsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	g := rdf.IRI("http://example.org/graph/main")
	quads := []rdf.Quad{
		rdf.NewQuad(rdf.IRI("http://example.org/s"), rdf.IRI("http://example.org/p"), rdf.NewTypedLiteral("30", rdf.XSDInteger), g),
		rdf.NewQuad(rdf.IRI("http://example.org/s"), rdf.IRI("http://example.org/p"), rdf.NewLangLiteral("chat", "fr"), g),
		rdf.NewQuad(rdf.IRI("http://example.org/s"), rdf.IRI("http://example.org/p"), rdf.NewLiteral("30"), g),
	}
	apply(t, store, "space1", nil, quads)

	// Three literals with the same value but different datatype/lang must be
	// distinct terms, hence three distinct quads.
	count, err := store.CountQuads(ctx, "space1")
	if err != nil {
		t.Fatalf("CountQuads failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3 distinct quads", count)
	}

	var got []rdf.Quad
	if err := store.AllQuads(ctx, "space1", func(q rdf.Quad) error {
		got = append(got, q)
		return nil
	}); err != nil {
		t.Fatalf("AllQuads failed: %v", err)
	}
	for _, q := range quads {
		if !rdf.ContainsQuad(got, q) {
			t.Errorf("round trip lost %s", q)
		}
	}
}
