package usage

import (
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/types"
)

// Counter tracks consumption of one metered feature on one
// subscription. Rows are created lazily on first use and deleted when
// the owning subscription is removed.
type Counter struct {
	types.Entity
	ID             id.UsageID        `json:"id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	Code           string            `json:"code"`
	Used           int64             `json:"used"`
}
