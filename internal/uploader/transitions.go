package uploader

import (
	"context"
	"fmt"
)

// Kind is the closed set of workflow transitions. Interaction events
// arrive as generic component identifiers; the event router translates
// them to a Kind and everything downstream goes through one dispatch
// table, not string matching.
type Kind int

const (
	KindNavigateInto Kind = iota
	KindNavigateBack
	KindEditDetails
	KindCancel
	KindConfirm
	KindApprove
	KindDeny
	KindOfficerEdit
)

func (k Kind) String() string {
	switch k {
	case KindNavigateInto:
		return "navigate-into"
	case KindNavigateBack:
		return "navigate-back"
	case KindEditDetails:
		return "edit-details"
	case KindCancel:
		return "cancel"
	case KindConfirm:
		return "confirm"
	case KindApprove:
		return "approve"
	case KindDeny:
		return "deny"
	case KindOfficerEdit:
		return "officer-edit"
	}
	return "unknown"
}

// Event is one transition attempt against a rendered card. Ref and Card
// describe the message the interaction targeted; Value carries the picker
// selection for navigate-into.
type Event struct {
	Kind  Kind
	Actor Actor
	Ref   CardRef
	Card  *Card
	Value string
}

// Result is what the event router needs to finish responding to the
// interaction. A nil Modal means the card edit (if any) already happened.
type Result struct {
	Modal  *ModalRequest
	Notice string
}

// transition pairs a guard with a handler. decode picks the card flavor
// the kind operates on; guard checks the lifecycle state recovered from
// the card; apply performs side effects and re-rendering.
type transition struct {
	decode func(*Card) (*UploadRequest, error)
	guard  func(*UploadRequest, *Event) error
	apply  func(*Service, context.Context, *UploadRequest, *Event) (*Result, error)
}

// guardCollecting admits only requests still in the browsing/confirmation
// state. Submitted and cancelled cards have no controls, so hitting this
// normally means a stale interaction raced a rewrite.
func guardCollecting(req *UploadRequest, _ *Event) error {
	if req.Lifecycle != StateCollecting {
		return fmt.Errorf("%w: request is %s", ErrAlreadyProcessed, req.Lifecycle)
	}
	return nil
}

// guardPending admits only review cards that have not reached a terminal
// decision. This marker check is the sole defense against duplicate
// terminal transitions; it is best effort, not transactional.
func guardPending(req *UploadRequest, _ *Event) error {
	if req.Lifecycle != StatePendingReview {
		return fmt.Errorf("%w: review is %s", ErrAlreadyProcessed, req.Lifecycle)
	}
	return nil
}

var transitions = map[Kind]transition{
	KindNavigateInto: {
		decode: DecodeStateCard,
		guard:  guardCollecting,
		apply:  (*Service).applyNavigateInto,
	},
	KindNavigateBack: {
		decode: DecodeStateCard,
		guard: func(req *UploadRequest, ev *Event) error {
			if err := guardCollecting(req, ev); err != nil {
				return err
			}
			if len(req.Destination) == 0 {
				return fmt.Errorf("already at the root folder")
			}
			return nil
		},
		apply: (*Service).applyNavigateBack,
	},
	KindEditDetails: {
		decode: DecodeStateCard,
		guard:  guardCollecting,
		apply:  (*Service).applyEditDetails,
	},
	KindCancel: {
		decode: DecodeStateCard,
		guard:  guardCollecting,
		apply:  (*Service).applyCancel,
	},
	KindConfirm: {
		decode: DecodeStateCard,
		guard:  guardCollecting,
		apply:  (*Service).applyConfirm,
	},
	KindApprove: {
		decode: DecodeReviewCard,
		guard:  guardPending,
		apply:  (*Service).applyApprove,
	},
	KindDeny: {
		decode: DecodeReviewCard,
		guard:  guardPending,
		apply:  (*Service).applyDeny,
	},
	KindOfficerEdit: {
		decode: DecodeReviewCard,
		guard:  guardPending,
		apply:  (*Service).applyOfficerEdit,
	},
}

// Dispatch runs one transition against the card the event targeted. All
// request state is reconstructed from the card; decode failure means the
// request expired or the message is not one of ours.
func (s *Service) Dispatch(ctx context.Context, ev *Event) (*Result, error) {
	t, ok := transitions[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown transition kind %d", ev.Kind)
	}
	req, err := t.decode(ev.Card)
	if err != nil {
		return nil, err
	}
	// A state card's identity is the message itself; a review card carries
	// the state card's identity in its fields and Ref points at the review.
	if isRequesterKind(ev.Kind) {
		req.Card = ev.Ref
	}
	if err := t.guard(req, ev); err != nil {
		return nil, err
	}
	return t.apply(s, ctx, req, ev)
}

func isRequesterKind(k Kind) bool {
	switch k {
	case KindNavigateInto, KindNavigateBack, KindEditDetails, KindCancel, KindConfirm:
		return true
	}
	return false
}
