// Package sendability decides whether a message may be sent to a recipient
// identity and which address it goes to.
package sendability

import "github.com/jmehdipour/engage-dispatch/internal/model"

type Status string

const (
	ShouldSend                Status = "should_send"
	SendDisabled              Status = "send_disabled"
	NotSubscribed             Status = "not_subscribed"
	NoSenderPhone             Status = "no_sender_phone"
	NoSupportedExternalIDs    Status = "no_supported_external_ids"
	InvalidSubscriptionStatus Status = "invalid_subscription_status"
)

func (s Status) String() string { return string(s) }

// Result is the derived outcome of an evaluation. Address is set only when
// Status is ShouldSend.
type Result struct {
	Status          Status
	Address         string
	Addresses       []string
	Winner          *model.ExternalID
	Winners         []model.ExternalID
	InvalidStatuses []string
}

// Predicate selects the external ids a channel can use.
type Predicate func(model.ExternalID) bool

type Options struct {
	Predicate Predicate
	// MissingStatus is returned when no external id matches the predicate.
	// Defaults to NoSupportedExternalIDs.
	MissingStatus      Status
	GroupID            string
	BypassSubscription bool
}

type class int

const (
	nonSendable class = iota
	sendable
	invalid
)

func classify(s model.SubscriptionStatus) class {
	switch model.NormalizeSubscriptionStatus(string(s)) {
	case "subscribed", "true":
		return sendable
	case "", "unsubscribed", "did not subscribed", "false":
		return nonSendable
	default:
		return invalid
	}
}

func filter(ids []model.ExternalID, pred Predicate) []model.ExternalID {
	out := make([]model.ExternalID, 0, len(ids))
	for _, id := range ids {
		if pred == nil || pred(id) {
			out = append(out, id)
		}
	}
	return out
}

func precheck(p *model.Payload, opts Options) ([]model.ExternalID, *Result) {
	if p == nil || !p.Send {
		return nil, &Result{Status: SendDisabled}
	}
	valid := filter(p.ExternalIDs, opts.Predicate)
	if len(valid) == 0 {
		missing := opts.MissingStatus
		if missing == "" {
			missing = NoSupportedExternalIDs
		}
		return nil, &Result{Status: missing}
	}
	return valid, nil
}

// Evaluate picks the first sendable identity that matches opts.
func Evaluate(p *model.Payload, opts Options) Result {
	valid, early := precheck(p, opts)
	if early != nil {
		return *early
	}

	if opts.BypassSubscription {
		return resolve(valid[0])
	}

	var invalidStatuses []string
	for _, id := range valid {
		switch classify(id.SubscriptionStatus) {
		case sendable:
			if opts.GroupID != "" && !id.SubscribedTo(opts.GroupID) {
				return Result{Status: NotSubscribed}
			}
			return resolve(id)
		case invalid:
			invalidStatuses = append(invalidStatuses, id.SubscriptionStatus.String())
		}
	}

	if len(invalidStatuses) > 0 {
		return Result{Status: InvalidSubscriptionStatus, InvalidStatuses: invalidStatuses}
	}
	return Result{Status: NotSubscribed}
}

// EvaluateAll returns every sendable identity with an address, in list order.
func EvaluateAll(p *model.Payload, opts Options) Result {
	valid, early := precheck(p, opts)
	if early != nil {
		return *early
	}

	var (
		winners         []model.ExternalID
		invalidStatuses []string
		emptyAddress    bool
	)
	for _, id := range valid {
		c := classify(id.SubscriptionStatus)
		if opts.BypassSubscription {
			c = sendable
		}
		switch c {
		case sendable:
			if opts.GroupID != "" && !opts.BypassSubscription && !id.SubscribedTo(opts.GroupID) {
				continue
			}
			if id.ID == "" {
				emptyAddress = true
				continue
			}
			winners = append(winners, id)
		case invalid:
			invalidStatuses = append(invalidStatuses, id.SubscriptionStatus.String())
		}
	}

	switch {
	case len(winners) > 0:
		addrs := make([]string, len(winners))
		for i, w := range winners {
			addrs[i] = w.ID
		}
		first := winners[0]
		return Result{
			Status:          ShouldSend,
			Address:         addrs[0],
			Addresses:       addrs,
			Winner:          &first,
			Winners:         winners,
			InvalidStatuses: invalidStatuses,
		}
	case emptyAddress:
		return Result{Status: NoSenderPhone}
	case len(invalidStatuses) > 0:
		return Result{Status: InvalidSubscriptionStatus, InvalidStatuses: invalidStatuses}
	default:
		return Result{Status: NotSubscribed}
	}
}

func resolve(id model.ExternalID) Result {
	if id.ID == "" {
		return Result{Status: NoSenderPhone}
	}
	return Result{
		Status:    ShouldSend,
		Address:   id.ID,
		Addresses: []string{id.ID},
		Winner:    &id,
		Winners:   []model.ExternalID{id},
	}
}
