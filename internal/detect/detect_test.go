// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"testing"
	"time"
)

func TestAcceleratorTypeString(t *testing.T) {
	cases := []struct {
		typ  AcceleratorType
		want string
	}{
		{AcceleratorNone, "CPU"},
		{AcceleratorNvidia, "NVIDIA"},
		{AcceleratorAmd, "AMD"},
		{AcceleratorAppleSilicon, "Apple Silicon"},
	}
	for _, tc := range cases {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestAcceleratorString(t *testing.T) {
	acc := Accelerator{Name: "NVIDIA RTX 4090", MemoryGB: 24, Type: AcceleratorNvidia}
	if got := acc.String(); got != "NVIDIA RTX 4090 (24GB)" {
		t.Errorf("String() = %q", got)
	}

	acc = Accelerator{Name: "AMD Radeon RX 7900", Type: AcceleratorAmd}
	if got := acc.String(); got != "AMD Radeon RX 7900" {
		t.Errorf("String() without memory = %q", got)
	}

	acc = Accelerator{Type: AcceleratorNone}
	if got := acc.String(); got != "no accelerator" {
		t.Errorf("String() for CPU = %q", got)
	}
}

func TestProbeNeverPanicsAndCaches(t *testing.T) {
	ResetCache()
	defer ResetCache()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	first := Probe(ctx)
	second := Probe(ctx)
	if first != second {
		t.Errorf("cached probe diverged: %+v vs %+v", first, second)
	}
}

func TestAcceleratedMatchesProbe(t *testing.T) {
	ResetCache()
	defer ResetCache()

	ctx := context.Background()
	ok, desc := Accelerated(ctx)
	acc := Probe(ctx)
	if ok != (acc.Type != AcceleratorNone) {
		t.Errorf("Accelerated() = %v, probe type %v", ok, acc.Type)
	}
	if desc != acc.String() {
		t.Errorf("description %q != %q", desc, acc.String())
	}
}
