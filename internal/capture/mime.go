package capture

import "strings"

// FallbackMimeType is used when no preference is supported.
const FallbackMimeType = "video/webm"

// DefaultMimePreferences is the ordered list tried when none is configured.
var DefaultMimePreferences = []string{
	"video/mp4;codecs=avc1,mp4a.40.2",
	"video/mp4",
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
}

// NegotiateMimeType returns the first preference codec supports, falling
// back to FallbackMimeType.
func NegotiateMimeType(codec Codec, preferences []string) string {
	if len(preferences) == 0 {
		preferences = DefaultMimePreferences
	}
	if codec == nil {
		return FallbackMimeType
	}
	for _, candidate := range preferences {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && codec.IsTypeSupported(candidate) {
			return candidate
		}
	}
	return FallbackMimeType
}

// MimeType is a parsed container/codec string such as
// "video/webm;codecs=vp9,opus".
type MimeType struct {
	Container string
	Codecs    []string
}

// ParseMimeType splits a mime string into container and codec list. Codec
// names are lowercased; a missing codecs parameter yields nil.
func ParseMimeType(value string) MimeType {
	parts := strings.Split(value, ";")
	parsed := MimeType{Container: strings.ToLower(strings.TrimSpace(parts[0]))}
	for _, param := range parts[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "codecs") {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		for _, codec := range strings.Split(val, ",") {
			if codec = strings.ToLower(strings.TrimSpace(codec)); codec != "" {
				parsed.Codecs = append(parsed.Codecs, codec)
			}
		}
	}
	return parsed
}

// HasCodec reports whether the codec list contains a codec with prefix.
func (m MimeType) HasCodec(prefix string) bool {
	for _, codec := range m.Codecs {
		if strings.HasPrefix(codec, prefix) {
			return true
		}
	}
	return false
}
