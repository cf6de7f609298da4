package uploader

// State is the lifecycle state of an upload request. It is never stored
// anywhere: it is derived from the marker title of the rendered card.
type State int

const (
	// StateCollecting covers both destination browsing and confirmation;
	// they are the same rendered card with different controls enabled.
	StateCollecting State = iota
	StatePendingReview
	StateApproved
	StateDenied
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting-destination"
	case StatePendingReview:
		return "pending-review"
	case StateApproved:
		return "approved"
	case StateDenied:
		return "denied"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are accepted from s.
func (s State) Terminal() bool {
	switch s {
	case StateApproved, StateDenied, StateFailed, StateCancelled:
		return true
	}
	return false
}

// CardRef locates a rendered card on the chat platform.
type CardRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether the ref points at nothing.
func (r CardRef) IsZero() bool { return r.ChannelID == "" && r.MessageID == "" }

// Actor is the user driving a transition. Roles are the role names the
// actor holds in the guild the triggering event came from; they are
// resolved by the event router, not by the core.
type Actor struct {
	ID          string
	DisplayName string
	Roles       []string
}

// SourceRef identifies the origin of the attachment being requested for
// upload. It is immutable once the request is created.
type SourceRef struct {
	ChannelID    string
	MessageID    string
	URL          string
	Size         int64
	ContentType  string
	OriginalName string
}

// SourceItem is a flagged message as seen by the permission gate: the
// source reference plus the authorship and guild context needed to decide
// whether the flagging actor may initiate a request on it.
type SourceItem struct {
	Ref      SourceRef
	AuthorID string
	GuildID  string
}

// UploadRequest is the central entity of the workflow. Its durable key is
// the rendered state card itself (Card): every mutable field must be
// recoverable by parsing that card alone.
type UploadRequest struct {
	RequesterID    string
	Source         SourceRef
	TargetFileName string
	Destination    []string // folder-name segments under the root; empty = root
	Description    string
	Lifecycle      State

	// Card is the requester-facing state card. On a decoded review card it
	// is recovered from the Request Card field so the reviewer side can
	// locate and delete the original.
	Card CardRef
}

// DestinationString returns the destination path as a /-joined string, or
// "" for the root.
func (r *UploadRequest) DestinationString() string {
	return joinPath(r.Destination)
}

func joinPath(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
