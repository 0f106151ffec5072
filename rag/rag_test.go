package rag_test

import (
	"context"
	"strings"
	"testing"

	"github.com/helmsman-ai/helmsman/memory"
	"github.com/helmsman-ai/helmsman/rag"
)

func newTestRAG() *rag.RAG {
	mem := memory.NewHybrid(
		memory.NewShortTerm(0, 0),
		memory.NewLongTerm(context.Background(), nil),
	)
	return rag.New(mem)
}

func TestProcessor_ChunkShortTextSingleChunk(t *testing.T) {
	p := rag.NewProcessor(0, 0)
	chunks := p.Chunk("A cat sat. A dog ran. A bird flew.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short text, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "A cat sat A dog ran A bird flew" {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestProcessor_ChunkRespectsSizeAndOverlap(t *testing.T) {
	p := rag.NewProcessor(40, 3)
	text := "alpha beta gamma delta epsilon zeta. one two three four five six. final short tail."
	chunks := p.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d: %v", len(chunks), chunks)
	}
	// The second chunk starts with the last three words of the first.
	firstWords := strings.Fields(chunks[0])
	overlap := strings.Join(firstWords[len(firstWords)-3:], " ")
	if !strings.HasPrefix(chunks[1], overlap) {
		t.Fatalf("chunk 2 %q does not start with overlap %q", chunks[1], overlap)
	}
}

func TestProcessor_ChunkReconstruction(t *testing.T) {
	p := rag.NewProcessor(40, 3)
	text := "alpha beta gamma delta epsilon zeta. one two three four five six. final short tail."
	chunks := p.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d: %v", len(chunks), chunks)
	}

	// Dropping each chunk's seeded overlap words rebuilds the original
	// text minus sentence punctuation.
	rebuilt := chunks[0]
	for _, chunk := range chunks[1:] {
		rest := strings.Fields(chunk)[3:]
		rebuilt += " " + strings.Join(rest, " ")
	}
	want := "alpha beta gamma delta epsilon zeta one two three four five six final short tail"
	if rebuilt != want {
		t.Fatalf("reconstruction mismatch:\n got %q\nwant %q", rebuilt, want)
	}
}

func TestProcessor_ExtractKeywords(t *testing.T) {
	p := rag.NewProcessor(0, 0)
	kws := p.ExtractKeywords("The quantum computer computes quantum states. It is a computer.")

	if len(kws) == 0 {
		t.Fatal("expected keywords")
	}
	if kws[0] != "quantum" && kws[0] != "computer" {
		t.Fatalf("expected a frequent word first, got %q (all: %v)", kws[0], kws)
	}
	for _, kw := range kws {
		if kw == "the" || kw == "is" || kw == "it" {
			t.Fatalf("stop word %q leaked into keywords", kw)
		}
		if len(kw) <= 2 {
			t.Fatalf("short word %q leaked into keywords", kw)
		}
	}
}

func TestRAG_IngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	r := newTestRAG()

	docID := r.IngestDocument(ctx, "Feline Habits", "A cat sat. A dog ran. A bird flew.", nil)
	if !strings.HasPrefix(docID, "doc_") {
		t.Fatalf("expected doc_ prefixed id, got %q", docID)
	}

	results := r.Retrieve(ctx, "cat", "", 5)
	if len(results) == 0 {
		t.Fatal("expected retrieval hits for ingested content")
	}
	if results[0].Score < 1.0 {
		t.Fatalf("verbatim match should score at least 1.0, got %f", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted by score: %f after %f", results[i].Score, results[i-1].Score)
		}
	}
}

func TestRAG_DistinctDocumentIDs(t *testing.T) {
	ctx := context.Background()
	r := newTestRAG()

	a := r.IngestDocument(ctx, "One", "Content one.", nil)
	b := r.IngestDocument(ctx, "Two", "Content two.", nil)
	if a == b {
		t.Fatalf("two documents share id %q", a)
	}
	if len(r.ListDocuments()) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(r.ListDocuments()))
	}
}

func TestRAG_SearchDocumentsMatchesTitleAndContent(t *testing.T) {
	ctx := context.Background()
	r := newTestRAG()

	r.IngestDocument(ctx, "Gardening Guide", "How to grow tomatoes in clay soil.", nil)
	r.IngestDocument(ctx, "Bread Recipes", "Sourdough needs a mature starter.", nil)

	if docs := r.SearchDocuments("gardening", 5); len(docs) != 1 {
		t.Fatalf("title search: expected 1 doc, got %d", len(docs))
	}
	if docs := r.SearchDocuments("sourdough", 5); len(docs) != 1 {
		t.Fatalf("content search: expected 1 doc, got %d", len(docs))
	}
	if docs := r.SearchDocuments("submarine", 5); len(docs) != 0 {
		t.Fatalf("expected no matches, got %d", len(docs))
	}
}

func TestRAG_ConversationTurnLandsInSessionContext(t *testing.T) {
	r := newTestRAG()

	r.AddConversationTurn("s1", "What is the capital of France?", "The capital of France is Paris.")

	_, ctxItems := r.RetrieveWithContext(context.Background(), "capital", "s1", 5)
	if len(ctxItems) != 2 {
		t.Fatalf("expected 2 session items, got %d", len(ctxItems))
	}
	if role, _ := ctxItems[0].Metadata["role"].(string); role != "user" {
		t.Fatalf("expected user message first, got role %q", role)
	}
}
