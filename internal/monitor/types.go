package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/giantswarm/dogkop/internal/datadog"
)

// Operation is the lifecycle event being reconciled.
type Operation string

const (
	OperationCreate Operation = "Create"
	OperationUpdate Operation = "Update"
	OperationDelete Operation = "Delete"
)

// Identity holds the stable attributes of a managed resource.
type Identity struct {
	Namespace string
	Name      string
	UID       string
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s (uid=%s)", i.Namespace, i.Name, i.UID)
}

// Spec is the opaque monitor definition. It is owned by the caller and never modified.
type Spec = map[string]interface{}

// CachedID is the Datadog id persisted in resource status, if any.
// The zero value is an absent id.
type CachedID struct {
	present bool
	raw     string
}

// NoCachedID returns an absent cached id.
func NoCachedID() CachedID {
	return CachedID{}
}

// CachedIDFromString wraps a raw status value. It may be corrupted.
func CachedIDFromString(raw string) CachedID {
	return CachedID{present: true, raw: raw}
}

// CachedIDFromInt wraps an integer status value.
func CachedIDFromInt(id int64) CachedID {
	return CachedID{present: true, raw: strconv.FormatInt(id, 10)}
}

// IsPresent reports whether the status key is set at all.
func (c CachedID) IsPresent() bool {
	return c.present
}

// Value returns the id if it is a positive integer.
func (c CachedID) Value() (int64, bool) {
	if !c.present {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(c.raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsCorrupted reports whether the status key is set but holds no usable id.
func (c CachedID) IsCorrupted() bool {
	_, ok := c.Value()
	return c.present && !ok
}

func (c CachedID) String() string {
	if !c.present {
		return "<none>"
	}
	return strconv.Quote(c.raw)
}

// StatusPatch collects the status changes of one reconciliation.
type StatusPatch struct {
	monitorID int64
	cleared   bool
	changed   bool
}

// SetMonitorID records the Datadog id to persist.
func (p *StatusPatch) SetMonitorID(id int64) {
	p.monitorID = id
	p.cleared = false
	p.changed = true
}

// ClearMonitorID records that the cached id must be removed.
func (p *StatusPatch) ClearMonitorID() {
	p.monitorID = 0
	p.cleared = true
	p.changed = true
}

// MonitorID returns the id set by the reconciliation, if any.
func (p *StatusPatch) MonitorID() (int64, bool) {
	return p.monitorID, p.changed && !p.cleared
}

// Cleared reports whether the cached id must be removed.
func (p *StatusPatch) Cleared() bool {
	return p.cleared
}

// Changed reports whether the patch holds anything to persist.
func (p *StatusPatch) Changed() bool {
	return p.changed
}

// Event is a single reconciliation request from the dispatch runtime.
type Event struct {
	Operation Operation
	Identity  Identity
	Spec      Spec
	CachedID  CachedID

	// Attempt counts previous failed attempts for this event, starting at 0.
	Attempt int
}

// MonitorAPI is the part of the Datadog API the core needs.
// *datadog.Client implements it.
type MonitorAPI interface {
	CreateMonitor(ctx context.Context, config map[string]interface{}) (datadog.Monitor, error)
	UpdateMonitor(ctx context.Context, id int64, config map[string]interface{}) (datadog.Monitor, error)
	GetMonitor(ctx context.Context, id int64) (datadog.Monitor, error)
	DeleteMonitor(ctx context.Context, id int64) error
	SearchMonitors(ctx context.Context, query string) ([]datadog.Monitor, error)
}

var _ MonitorAPI = (*datadog.Client)(nil)
