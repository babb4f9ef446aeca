// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Somaray is the canonical application identifier used for filesystem paths and CLI branding.
	Somaray = "somaray"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent identifies somaray to the SomaFM API and stream servers.
	UserAgent = "somaray/" + Version + " (+https://github.com/somaray-cli/somaray)"

	// ChannelsURL is the SomaFM channel directory endpoint.
	ChannelsURL = "https://api.somafm.com/channels.json"

	// SongsURLFormat is the per-channel now-playing endpoint, keyed by channel id.
	SongsURLFormat = "https://somafm.com/songs/%s.json"

	// MPRISName is the well-known D-Bus name claimed by the desktop integration service.
	MPRISName = "org.mpris.MediaPlayer2.somaray"
)

// Build metadata, overridden at release time via -ldflags.
var (
	Revision = "unknown"
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
)
