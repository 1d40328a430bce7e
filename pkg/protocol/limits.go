package protocol

// MaxMessageSize is the maximum inbound frame size in bytes.
// Large enough for WebRTC SDP offers with many candidates.
const MaxMessageSize = 64 * 1024

// MaxNameLength is the maximum accepted display name length in runes.
// Longer names are truncated, not rejected.
const MaxNameLength = 64
