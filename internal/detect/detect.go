// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect probes the host for inference acceleration. Local
// generation on CPU is slow enough that llmchat refuses to start without
// a detected accelerator unless the user opts in.
package detect

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// probeTimeout bounds each external detection command.
const probeTimeout = 10 * time.Second

// =============================================================================
// ACCELERATOR TYPES
// =============================================================================

// AcceleratorType classifies the detected acceleration hardware.
type AcceleratorType int

const (
	// AcceleratorNone means no accelerator was found, CPU-only.
	AcceleratorNone AcceleratorType = iota
	// AcceleratorNvidia is a CUDA-capable NVIDIA GPU.
	AcceleratorNvidia
	// AcceleratorAmd is a ROCm-capable AMD GPU.
	AcceleratorAmd
	// AcceleratorAppleSilicon is an Apple M-series chip (Metal).
	AcceleratorAppleSilicon
)

// String returns the accelerator family name.
func (t AcceleratorType) String() string {
	switch t {
	case AcceleratorNvidia:
		return "NVIDIA"
	case AcceleratorAmd:
		return "AMD"
	case AcceleratorAppleSilicon:
		return "Apple Silicon"
	default:
		return "CPU"
	}
}

// Accelerator describes the detected hardware.
type Accelerator struct {
	// Name of the device (e.g. "NVIDIA RTX 4090")
	Name string
	// MemoryGB is the device memory in gigabytes, 0 when unknown
	MemoryGB int
	// Type is the accelerator family
	Type AcceleratorType
}

// String returns a one-line description for logs and the startup notice.
func (a Accelerator) String() string {
	if a.Type == AcceleratorNone {
		return "no accelerator"
	}
	if a.MemoryGB > 0 {
		return fmt.Sprintf("%s (%dGB)", a.Name, a.MemoryGB)
	}
	return a.Name
}

// =============================================================================
// DETECTION
// =============================================================================

var (
	cacheMu  sync.Mutex
	cached   *Accelerator
	cachedAt time.Time
	cacheTTL = 5 * time.Minute
)

// Probe detects the best available accelerator. Results are cached for a
// few minutes since the probes shell out to vendor tools.
func Probe(ctx context.Context) Accelerator {
	cacheMu.Lock()
	if cached != nil && time.Since(cachedAt) < cacheTTL {
		acc := *cached
		cacheMu.Unlock()
		return acc
	}
	cacheMu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	acc := probeAll(ctx)

	cacheMu.Lock()
	cached = &acc
	cachedAt = time.Now()
	cacheMu.Unlock()
	return acc
}

// Accelerated reports whether inference acceleration is available,
// together with a description for the startup notice.
func Accelerated(ctx context.Context) (bool, string) {
	acc := Probe(ctx)
	return acc.Type != AcceleratorNone, acc.String()
}

// ResetCache forces a fresh probe on the next call. Used by tests and
// after driver changes.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cached = nil
	cachedAt = time.Time{}
}

func probeAll(ctx context.Context) Accelerator {
	if acc := probeNvidia(ctx); acc != nil {
		return *acc
	}
	if acc := probeAmd(ctx); acc != nil {
		return *acc
	}
	if acc := probeAppleSilicon(ctx); acc != nil {
		return *acc
	}
	return Accelerator{Name: "CPU only", Type: AcceleratorNone}
}

// =============================================================================
// VENDOR PROBES
// =============================================================================

// probeNvidia queries nvidia-smi for the first GPU.
func probeNvidia(ctx context.Context) *Accelerator {
	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,memory.total",
		"--format=csv,noheader,nounits")
	output, err := cmd.Output()
	if err != nil || len(output) == 0 {
		return nil
	}

	line := strings.TrimSpace(strings.Split(string(output), "\n")[0])
	parts := strings.Split(line, ", ")
	if len(parts) < 2 {
		return nil
	}

	memGB := 0
	if memMB, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
		memGB = int(memMB/1024.0 + 0.5)
	}
	return &Accelerator{
		Name:     "NVIDIA " + strings.TrimSpace(parts[0]),
		MemoryGB: memGB,
		Type:     AcceleratorNvidia,
	}
}

// probeAmd checks for a ROCm-visible GPU via rocm-smi.
func probeAmd(ctx context.Context) *Accelerator {
	if runtime.GOOS != "linux" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "rocm-smi", "--showproductname")
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	name := ""
	for _, line := range strings.Split(string(output), "\n") {
		if idx := strings.Index(line, "Card series:"); idx >= 0 {
			name = strings.TrimSpace(line[idx+len("Card series:"):])
			break
		}
	}
	if name == "" {
		return nil
	}
	return &Accelerator{Name: "AMD " + name, Type: AcceleratorAmd}
}

// probeAppleSilicon detects M-series chips on macOS. Unified memory is
// reported as device memory since the GPU shares it.
func probeAppleSilicon(ctx context.Context) *Accelerator {
	if runtime.GOOS != "darwin" || runtime.GOARCH != "arm64" {
		return nil
	}

	name := "Apple Silicon"
	cmd := exec.CommandContext(ctx, "sysctl", "-n", "machdep.cpu.brand_string")
	if output, err := cmd.Output(); err == nil {
		if brand := strings.TrimSpace(string(output)); brand != "" {
			name = brand
		}
	}

	memGB := 0
	cmd = exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize")
	if output, err := cmd.Output(); err == nil {
		if bytes, err := strconv.ParseUint(strings.TrimSpace(string(output)), 10, 64); err == nil {
			memGB = int(bytes / 1_073_741_824)
		}
	}

	return &Accelerator{Name: name, MemoryGB: memGB, Type: AcceleratorAppleSilicon}
}
