package extract

import (
	"context"
	"errors"
	"testing"
)

func TestJoinPages(t *testing.T) {
	got := joinPages([][]string{{"A", "B"}, {"C"}})
	if got != "A B\nC\n" {
		t.Fatalf("unexpected join: %q", got)
	}
	if got := joinPages([][]string{nil, {"x"}}); got != "\nx\n" {
		t.Fatalf("expected blank first page, got %q", got)
	}
}

func TestExtractMultiPagePDF(t *testing.T) {
	data := buildPDF(t,
		"BT /F1 12 Tf 72 720 Td (A) Tj 20 0 Td (B) Tj ET",
		"BT /F1 12 Tf 72 720 Td (C) Tj ET",
	)

	got, err := Extract(context.Background(), data, "application/pdf", "cv.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A B\nC\n" {
		t.Fatalf("expected %q, got %q", "A B\nC\n", got)
	}
}

func TestExtractPDFTextArrays(t *testing.T) {
	data := buildPDF(t, "BT /F1 12 Tf [(Go) -250 (pher)] TJ T* (Rust) ' ET")

	got, err := Extract(context.Background(), data, "application/pdf", "cv.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Gopher Rust\n" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractImageOnlyPDFIsEmpty(t *testing.T) {
	data := buildPDF(t, "q 612 0 0 792 0 0 cm Q")

	_, err := Extract(context.Background(), data, "application/pdf", "scan.pdf")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"), "application/pdf", "cv.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}
