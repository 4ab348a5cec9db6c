package handlers

import (
	"errors"
	"time"

	"github.com/modulrcloud/counter-relay/cryptography"
	"github.com/modulrcloud/counter-relay/executor"
	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"
)

var ErrMissingCounterID = errors.New("Missing COUNTER_ID")

// Relay is everything a request handler needs. It is assembled once at startup and
// shared read-only by all requests.
type Relay struct {
	Config    *structures.RelayConfig
	Identity  *cryptography.Identity
	Ledger    ledger.Client
	Executor  *executor.Executor
	Metrics   *utils.Metrics
	StartedAt time.Time
}

func NewRelay(cfg *structures.RelayConfig, identity *cryptography.Identity, client ledger.Client, metrics *utils.Metrics) *Relay {
	return &Relay{
		Config:    cfg,
		Identity:  identity,
		Ledger:    client,
		Executor:  executor.New(client, identity, metrics),
		Metrics:   metrics,
		StartedAt: time.Now(),
	}
}

// CounterId picks the request's counter id, falling back to the configured default.
func (r *Relay) CounterId(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if r.Config != nil && r.Config.CounterId != "" {
		return r.Config.CounterId, nil
	}
	return "", ErrMissingCounterID
}

func (r *Relay) PackageId() string {
	if r.Config == nil {
		return ""
	}
	return r.Config.PackageId
}

func (r *Relay) SignerAddress() string {
	if r.Identity == nil {
		return ""
	}
	return r.Identity.Address()
}
