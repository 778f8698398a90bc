// ABOUTME: Build and product identification
// ABOUTME: Reported in the control handshake and by --version
package version

// Version is overridden at link time with -ldflags "-X .../internal/version.Version=..."
var Version = "0.1.0"

const (
	Product      = "XclockDAC TDA1541A"
	Manufacturer = "XclockDAC"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
