package scanning

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// AssetOrigin distinguishes how a script asset was discovered.
type AssetOrigin string

const (
	// AssetOriginInline marks a script embedded directly in a crawled page.
	AssetOriginInline AssetOrigin = "inline"
	// AssetOriginExternal marks a script fetched from its own URL.
	AssetOriginExternal AssetOrigin = "external"
)

// Content caps bound per-asset memory and storage use.
const (
	MaxInlineContentBytes   = 500_000
	MaxExternalContentBytes = 2_000_000
)

// Asset is one discovered script unit belonging to a task. Assets are
// immutable once written.
type Asset struct {
	id           uuid.UUID
	taskID       uuid.UUID
	pageURL      string
	sourceURL    string
	origin       AssetOrigin
	content      string
	contentHash  string
	discoveredAt time.Time
}

// NewInlineAsset creates an asset for a script embedded in pageURL.
func NewInlineAsset(taskID uuid.UUID, pageURL, content string) *Asset {
	return newAsset(taskID, pageURL, "", AssetOriginInline, content)
}

// NewExternalAsset creates an asset for a script fetched from sourceURL,
// discovered while crawling pageURL.
func NewExternalAsset(taskID uuid.UUID, pageURL, sourceURL, content string) *Asset {
	return newAsset(taskID, pageURL, sourceURL, AssetOriginExternal, content)
}

func newAsset(taskID uuid.UUID, pageURL, sourceURL string, origin AssetOrigin, content string) *Asset {
	return &Asset{
		id:           uuid.New(),
		taskID:       taskID,
		pageURL:      pageURL,
		sourceURL:    sourceURL,
		origin:       origin,
		content:      content,
		contentHash:  HashContent(content),
		discoveredAt: time.Now().UTC(),
	}
}

// ReconstructAsset materializes an Asset from persistent storage.
func ReconstructAsset(
	id, taskID uuid.UUID,
	pageURL, sourceURL string,
	origin AssetOrigin,
	content, contentHash string,
	discoveredAt time.Time,
) *Asset {
	return &Asset{
		id:           id,
		taskID:       taskID,
		pageURL:      pageURL,
		sourceURL:    sourceURL,
		origin:       origin,
		content:      content,
		contentHash:  contentHash,
		discoveredAt: discoveredAt,
	}
}

// ID returns the asset identifier.
func (a *Asset) ID() uuid.UUID { return a.id }

// TaskID returns the owning task's identifier.
func (a *Asset) TaskID() uuid.UUID { return a.taskID }

// PageURL returns the page the asset was discovered on.
func (a *Asset) PageURL() string { return a.pageURL }

// SourceURL returns the script's own URL; empty for inline scripts.
func (a *Asset) SourceURL() string { return a.sourceURL }

// Origin reports whether the asset is inline or external.
func (a *Asset) Origin() AssetOrigin { return a.origin }

// Content returns the script body.
func (a *Asset) Content() string { return a.content }

// ContentHash returns the SHA-256 hex digest of the script body.
func (a *Asset) ContentHash() string { return a.contentHash }

// DiscoveredAt returns when the asset was discovered.
func (a *Asset) DiscoveredAt() time.Time { return a.discoveredAt }

// SourcePath returns the best available path identifying where the asset came
// from: the script URL for external assets, the page URL for inline ones.
func (a *Asset) SourcePath() string {
	if a.sourceURL != "" {
		return a.sourceURL
	}
	return a.pageURL
}

// HashContent returns the SHA-256 hex digest of content, used to deduplicate
// inline scripts across pages.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
