package embed

import "context"

// minCapabilityMajor is the lowest accelerator compute capability the local
// runtimes support reliably; anything older falls back to CPU.
const minCapabilityMajor = 7

// DeviceInfo is what a local inference sidecar reports about its preferred
// accelerator.
type DeviceInfo struct {
	Device          string `json:"device"` // "cuda", "mps", or "cpu"
	CapabilityMajor int    `json:"capability_major"`
	CapabilityMinor int    `json:"capability_minor"`
}

// DeviceProber exposes the sidecar's device probe.
type DeviceProber interface {
	ProbeDevice(ctx context.Context) (DeviceInfo, error)
}

// SelectDevice picks the inference device. An explicit override is obeyed
// without ever probing; otherwise the preferred accelerator is used only when
// it meets the minimum capability threshold, and any probe failure falls back
// to CPU.
func SelectDevice(ctx context.Context, override string, prober DeviceProber) string {
	if override != "" {
		return override
	}
	info, err := prober.ProbeDevice(ctx)
	if err != nil {
		return "cpu"
	}
	switch info.Device {
	case "cuda":
		if info.CapabilityMajor >= minCapabilityMajor {
			return "cuda"
		}
		return "cpu"
	case "mps":
		return "mps"
	default:
		return "cpu"
	}
}
