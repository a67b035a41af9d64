package scanning

import (
	"time"

	"github.com/google/uuid"
)

// MaxEndpointsPersisted bounds how many extracted endpoints are stored per
// asset. Extraction past the cap is discarded, not an error.
const MaxEndpointsPersisted = 1000

// Endpoint is a URL or path reference extracted from JavaScript content,
// with the surrounding source line as context.
type Endpoint struct {
	id        uuid.UUID
	taskID    uuid.UUID
	assetID   uuid.UUID
	value     string
	context   string
	createdAt time.Time
}

// NewEndpoint creates an endpoint extracted from the given asset.
func NewEndpoint(taskID, assetID uuid.UUID, value, context string) *Endpoint {
	return &Endpoint{
		id:        uuid.New(),
		taskID:    taskID,
		assetID:   assetID,
		value:     value,
		context:   context,
		createdAt: time.Now(),
	}
}

// ReconstructEndpoint rebuilds an Endpoint from persistent storage.
func ReconstructEndpoint(id, taskID, assetID uuid.UUID, value, context string, createdAt time.Time) *Endpoint {
	return &Endpoint{id: id, taskID: taskID, assetID: assetID, value: value, context: context, createdAt: createdAt}
}

func (e *Endpoint) ID() uuid.UUID        { return e.id }
func (e *Endpoint) TaskID() uuid.UUID    { return e.taskID }
func (e *Endpoint) AssetID() uuid.UUID   { return e.assetID }
func (e *Endpoint) Value() string        { return e.value }
func (e *Endpoint) Context() string      { return e.context }
func (e *Endpoint) CreatedAt() time.Time { return e.createdAt }
