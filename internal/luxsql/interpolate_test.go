package luxsql

import (
	"database/sql/driver"
	"testing"
	"time"
)

func TestInterpolateBasicTypes(t *testing.T) {
	cfg := &InterpolateConfig{}

	got, err := cfg.Interpolate(
		"SELECT * FROM t WHERE id = ? AND name = ? AND active = ? AND score = ?",
		int64(42), "o'brien", true, float64(3.5),
	)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	want := `SELECT * FROM t WHERE id = 42 AND name = 'o\'brien' AND active = 1 AND score = 3.5`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInterpolateNullAndBytes(t *testing.T) {
	cfg := &InterpolateConfig{}

	got, err := cfg.Interpolate("UPDATE t SET blob = ?, tag = ? WHERE id = ?",
		[]byte("abc"), nil, int64(1))
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	want := `UPDATE t SET blob = _binary'abc', tag = NULL WHERE id = 1`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInterpolateDateTime(t *testing.T) {
	cfg := &InterpolateConfig{}
	ts := time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)

	got, err := cfg.Interpolate("SELECT ?", ts)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	want := `SELECT '2024-03-05 12:30:00'`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInterpolateArgCountMismatch(t *testing.T) {
	cfg := &InterpolateConfig{}
	_, err := cfg.Interpolate("SELECT * FROM t WHERE id = ?")
	if err != driver.ErrSkip {
		t.Fatalf("expected driver.ErrSkip, got %v", err)
	}
}
