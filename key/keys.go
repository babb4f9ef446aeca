// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Media Playback - these keys maintain the state and configuration for the external audio backend.
const (
	PlayerVolume           = "player.volume"
	PlayerReconnectOnError = "player.reconnect_on_error"
)

// Channel Catalog - these keys govern the retrieval and caching of the channel directory.
const (
	CatalogCacheTTLMinutes = "catalog.cache_ttl_minutes"
	CatalogSortByUsage     = "catalog.sort_by_usage"
)

// Now-Playing Metadata - these keys configure the track metadata poller.
const (
	MetadataPollSeconds = "metadata.poll_seconds"
	MetadataFetchArt    = "metadata.fetch_art"
)

// Stream Buffer - these keys bound the advisory smoothing buffer.
const (
	BufferSizeMB  = "buffer.size_mb"
	BufferSeconds = "buffer.seconds"
)

// Desktop Integration (MPRIS) - these keys gate the D-Bus media-control surface.
const (
	MPRISEnable       = "mpris.enable"
	MPRISSendMetadata = "mpris.send_metadata"
)

// Terminal User Interface - these keys define the interactive environment's behavior.
const (
	TUITickMillis         = "tui.tick_millis"
	TUISearchPromptString = "tui.search_prompt"
	TUIShowListeners      = "tui.show_listeners"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
