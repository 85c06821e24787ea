package backend

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Kind classifies compute devices.
type Kind int

const (
	KindCPU Kind = iota
	KindGPU
	KindAccelerator
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindGPU:
		return "gpu"
	case KindAccelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Device describes the hardware a backend runs on.
type Device struct {
	ID       int
	Kind     Kind
	Name     string
	Features []string
}

func (d Device) String() string {
	if len(d.Features) == 0 {
		return fmt.Sprintf("%s#%d(%s)", d.Kind, d.ID, d.Name)
	}
	return fmt.Sprintf("%s#%d(%s: %s)", d.Kind, d.ID, d.Name, strings.Join(d.Features, ","))
}

// HasFeature reports whether the device advertises feature f.
func (d Device) HasFeature(f string) bool {
	for _, x := range d.Features {
		if x == f {
			return true
		}
	}
	return false
}

// HostCPU describes the processor the program runs on.
func HostCPU() Device {
	return Device{
		ID:       0,
		Kind:     KindCPU,
		Name:     runtime.GOARCH,
		Features: cpuFeatures(),
	}
}

func cpuFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
		add(cpu.X86.HasAVX512BW, "avx512bw")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasASIMDHP, "asimdhp")
		add(cpu.ARM64.HasSVE, "sve")
		add(cpu.ARM64.HasSVE2, "sve2")
	}
	return features
}
