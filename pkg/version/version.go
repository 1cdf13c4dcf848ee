// Package version provides version information for the price-guard application.
package version

// Version is the current version of price-guard.
const Version = "0.1.0"

// AgentString returns the User-Agent sent to upstream price APIs.
// Format: price-guard/v{version}
func AgentString() string {
	return "price-guard/v" + Version
}
