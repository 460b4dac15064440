package triage

import "fmt"

// FormatVolume renders a volume in cubic scene units (metres) with an
// autoscaled unit for report output.
func FormatVolume(v float64) string {
	switch {
	case v == 0:
		return "0 m³"
	case v < 1e-6:
		return fmt.Sprintf("%.4f mm³", v*1e9)
	case v < 1:
		return fmt.Sprintf("%.4f cm³", v*1e6)
	default:
		return fmt.Sprintf("%.4f m³", v)
	}
}
