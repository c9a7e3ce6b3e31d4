package config

import (
	"testing"
	"time"

	kit "spinlog/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	refine := root.Prefix("REFINE_")
	if got := refine.key("WORKERS"); got != "REFINE_WORKERS" {
		t.Fatalf("key() = %q, want %q", got, "REFINE_WORKERS")
	}
	// nested prefix
	refineRetry := refine.Prefix("RETRY_")
	if got := refineRetry.key("BASE"); got != "REFINE_RETRY_BASE" {
		t.Fatalf("nested key() = %q, want %q", got, "REFINE_RETRY_BASE")
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  spinlog ")
	got := c.MustString("NAME")
	if got != "spinlog" {
		t.Fatalf("MustString = %q, want %q", got, "spinlog")
	}

	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestRequire(t *testing.T) {
	c := New().Prefix("REQ_")
	t.Setenv("REQ_A", "x")
	t.Setenv("REQ_B", "y")
	kit.MustNotPanic(t, func() { c.Require("A", "B") })
	kit.MustPanic(t, func() { c.Require("A", "B", "C") })
}

func TestMayString(t *testing.T) {
	c := New().Prefix("S_")
	if got := c.MayString("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("MayString default = %q, want fallback", got)
	}
	t.Setenv("S_VAL", "  set  ")
	if got := c.MayString("VAL", "fallback"); got != "set" {
		t.Fatalf("MayString = %q, want set", got)
	}
}

func TestMayInt(t *testing.T) {
	c := New().Prefix("I_")
	if got := c.MayInt("MISSING", 7); got != 7 {
		t.Fatalf("MayInt default = %d, want 7", got)
	}
	t.Setenv("I_N", " 42 ")
	if got := c.MayInt("N", 7); got != 42 {
		t.Fatalf("MayInt = %d, want 42", got)
	}
	t.Setenv("I_BAD", "x")
	if got := c.MayInt("BAD", 7); got != 7 {
		t.Fatalf("MayInt invalid = %d, want default 7", got)
	}
}

func TestMayInt64(t *testing.T) {
	c := New().Prefix("I64_")
	t.Setenv("I64_N", "9000000000")
	if got := c.MayInt64("N", 1); got != 9000000000 {
		t.Fatalf("MayInt64 = %d, want 9000000000", got)
	}
	t.Setenv("I64_BAD", "zz")
	if got := c.MayInt64("BAD", 5); got != 5 {
		t.Fatalf("MayInt64 invalid = %d, want default 5", got)
	}
}

func TestMayBool(t *testing.T) {
	c := New().Prefix("B_")
	if got := c.MayBool("MISSING", true); got != true {
		t.Fatalf("MayBool default = %v, want true", got)
	}
	t.Setenv("B_OFF", "false")
	if got := c.MayBool("OFF", true); got != false {
		t.Fatalf("MayBool = %v, want false", got)
	}
	t.Setenv("B_BAD", "meh")
	if got := c.MayBool("BAD", true); got != true {
		t.Fatalf("MayBool invalid = %v, want default true", got)
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("D_")
	if got := c.MayDuration("MISSING", time.Second); got != time.Second {
		t.Fatalf("MayDuration default = %v, want 1s", got)
	}
	t.Setenv("D_WAIT", "250ms")
	if got := c.MayDuration("WAIT", time.Second); got != 250*time.Millisecond {
		t.Fatalf("MayDuration = %v, want 250ms", got)
	}
	t.Setenv("D_BAD", "soon")
	if got := c.MayDuration("BAD", time.Second); got != time.Second {
		t.Fatalf("MayDuration invalid = %v, want default 1s", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	if got := c.MayEnum("MISSING", "parquet", "parquet", "clickhouse"); got != "parquet" {
		t.Fatalf("MayEnum default = %q, want parquet", got)
	}
	t.Setenv("E_BACKEND", "ClickHouse")
	if got := c.MayEnum("BACKEND", "parquet", "parquet", "clickhouse"); got != "ClickHouse" {
		t.Fatalf("MayEnum = %q, want value as set (case-insensitive match)", got)
	}
	t.Setenv("E_BAD", "sqlite")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "parquet", "parquet", "clickhouse") })
}
