package uploader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The rendered card is the wire format: all request state is recovered by
// parsing it, so the exact textual patterns below are normative. Changing
// any marker, label, or sentinel breaks decoding of in-flight requests.

// Marker titles. The decoder rejects any card whose title is not one of
// these; the title doubles as the lifecycle state.
const (
	TitleStateCard = "File Upload Request"
	TitleSubmitted = "Upload Request Submitted"
	TitleCancelled = "Upload Request Cancelled"

	TitleReview   = "Pending Upload Review"
	TitleApproved = "Upload APPROVED"
	TitleDenied   = "Upload DENIED"
	TitleFailed   = "Upload FAILED"
)

// Field labels.
const (
	fieldDestination = "Destination"
	fieldFileName    = "File Name"
	fieldDescription = "Description"
	fieldSource      = "Source"
	fieldContentType = "Content Type"
	fieldRequester   = "Requester"
	fieldRequestCard = "Request Card"
	fieldApprovedBy  = "Approved By"
	fieldDeniedBy    = "Denied By"
	fieldError       = "Error"
	fieldFile        = "File"
)

// Sentinels for empty values. Blank strings would be ambiguous with "not
// yet set" during decode, so empties are always rendered explicitly.
const (
	sentinelRoot = "*(Root)*"
	sentinelNone = "*(none)*"
)

// summaryPattern matches the fixed "filename (url) (size unit)" line.
var summaryPattern = regexp.MustCompile(`^(.+) \((\S+)\) \((\d+(?:\.\d+)?) (Bytes|KB|MB|GB)\)$`)

// sizeUnits, largest first. Factor 1024 throughout.
var sizeUnits = []struct {
	name   string
	factor float64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// FormatSize renders a byte count through the unit table: two decimals for
// KB and above, a plain integer for Bytes.
func FormatSize(n int64) string {
	for _, u := range sizeUnits {
		if float64(n) >= u.factor {
			return fmt.Sprintf("%.2f %s", float64(n)/u.factor, u.name)
		}
	}
	return fmt.Sprintf("%d Bytes", n)
}

// ParseSize inverts FormatSize. The recovered integer is the rendered
// value scaled back up, rounded to the nearest byte.
func ParseSize(s string) (int64, error) {
	value, unit, ok := strings.Cut(s, " ")
	if !ok {
		return 0, fmt.Errorf("malformed size %q", s)
	}
	if unit == "Bytes" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed size %q: %w", s, err)
		}
		return n, nil
	}
	for _, u := range sizeUnits {
		if u.name != unit {
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed size %q: %w", s, err)
		}
		return int64(math.Round(f * u.factor)), nil
	}
	return 0, fmt.Errorf("unknown size unit %q", unit)
}

// NormalizeSize round-trips a byte count through the rendered unit table.
// Sizes are only recoverable at the rendered precision, so a request's
// size field stabilizes after one encode/decode cycle.
func NormalizeSize(n int64) int64 {
	m, err := ParseSize(FormatSize(n))
	if err != nil {
		return n
	}
	return m
}

func summaryLine(src SourceRef) string {
	return fmt.Sprintf("%s (%s) (%s)", src.OriginalName, src.URL, FormatSize(src.Size))
}

func parseSummary(line string) (SourceRef, error) {
	m := summaryPattern.FindStringSubmatch(line)
	if m == nil {
		return SourceRef{}, fmt.Errorf("malformed summary line %q", line)
	}
	size, err := ParseSize(m[3] + " " + m[4])
	if err != nil {
		return SourceRef{}, err
	}
	return SourceRef{OriginalName: m[1], URL: m[2], Size: size}, nil
}

func encodePath(segments []string) string {
	if len(segments) == 0 {
		return sentinelRoot
	}
	return strings.Join(segments, "/")
}

func decodePath(s string) []string {
	if s == sentinelRoot || s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

func encodeOptional(s string) string {
	if s == "" {
		return sentinelNone
	}
	return s
}

func decodeOptional(s string) string {
	if s == sentinelNone {
		return ""
	}
	return s
}

func encodeSourceRef(src SourceRef) string {
	return src.ChannelID + "/" + src.MessageID
}

func decodeSourceRef(s string) (channelID, messageID string, err error) {
	channelID, messageID, ok := strings.Cut(s, "/")
	if !ok || channelID == "" || messageID == "" {
		return "", "", fmt.Errorf("malformed source reference %q", s)
	}
	return channelID, messageID, nil
}

func encodeMention(userID string) string { return "<@" + userID + ">" }

func decodeMention(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
	return s
}

func encodeCardRef(ref CardRef) string { return ref.ChannelID + "/" + ref.MessageID }

func decodeCardRef(s string) (CardRef, error) {
	ch, msg, err := decodeSourceRef(s)
	if err != nil {
		return CardRef{}, fmt.Errorf("malformed card reference %q", s)
	}
	return CardRef{ChannelID: ch, MessageID: msg}, nil
}

// requestFields renders the mutable request fields shared by the state and
// review cards, in their fixed order.
func requestFields(r *UploadRequest) []CardField {
	return []CardField{
		{Label: fieldDestination, Value: encodePath(r.Destination)},
		{Label: fieldFileName, Value: r.TargetFileName},
		{Label: fieldDescription, Value: encodeOptional(r.Description)},
		{Label: fieldSource, Value: encodeSourceRef(r.Source)},
		{Label: fieldContentType, Value: encodeOptional(r.Source.ContentType)},
	}
}

// decodeRequestFields recovers the shared fields into req. The summary
// line has already populated the immutable parts of the source reference.
func decodeRequestFields(card *Card, req *UploadRequest) error {
	dest, ok := card.Field(fieldDestination)
	if !ok {
		return fmt.Errorf("missing %s field", fieldDestination)
	}
	req.Destination = decodePath(dest)

	name, ok := card.Field(fieldFileName)
	if !ok || name == "" {
		return fmt.Errorf("missing %s field", fieldFileName)
	}
	req.TargetFileName = name

	desc, ok := card.Field(fieldDescription)
	if !ok {
		return fmt.Errorf("missing %s field", fieldDescription)
	}
	req.Description = decodeOptional(desc)

	src, ok := card.Field(fieldSource)
	if !ok {
		return fmt.Errorf("missing %s field", fieldSource)
	}
	ch, msg, err := decodeSourceRef(src)
	if err != nil {
		return err
	}
	req.Source.ChannelID = ch
	req.Source.MessageID = msg

	ct, ok := card.Field(fieldContentType)
	if !ok {
		return fmt.Errorf("missing %s field", fieldContentType)
	}
	req.Source.ContentType = decodeOptional(ct)
	return nil
}

// EncodeStateCard renders the requester-facing state card. children are
// the child folder names under the current destination; they populate the
// navigation picker and are the only folder names the requester can
// select, which is what keeps navigate-into guarded.
func EncodeStateCard(r *UploadRequest, children []string) *Card {
	card := &Card{
		Title:  TitleStateCard,
		Body:   summaryLine(r.Source),
		Fields: requestFields(r),
	}
	if len(children) > 0 {
		card.Select = &SelectMenu{
			ID:          ComponentNavigate,
			Placeholder: "Open a folder",
			Options:     children,
		}
	}
	if len(r.Destination) > 0 {
		card.Buttons = append(card.Buttons, Button{ID: ComponentBack, Label: "Back"})
	}
	card.Buttons = append(card.Buttons,
		Button{ID: ComponentEdit, Label: "Edit Details"},
		Button{ID: ComponentConfirm, Label: "Confirm", Style: ButtonPrimary},
		Button{ID: ComponentCancel, Label: "Cancel", Style: ButtonDanger},
	)
	return card
}

// DecodeStateCard parses a state card back into a request. The returned
// request's Lifecycle reflects the card's marker title; cards that are not
// state cards at all yield ErrNotFound.
func DecodeStateCard(card *Card) (*UploadRequest, error) {
	if card == nil {
		return nil, ErrNotFound
	}
	var state State
	switch card.Title {
	case TitleStateCard:
		state = StateCollecting
	case TitleSubmitted:
		state = StatePendingReview
	case TitleCancelled:
		state = StateCancelled
	default:
		return nil, fmt.Errorf("%w: unrecognized card title %q", ErrNotFound, card.Title)
	}

	src, err := parseSummary(card.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	req := &UploadRequest{Source: src, Lifecycle: state}
	if err := decodeRequestFields(card, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return req, nil
}

// EncodeSubmittedReceipt renders the state card's post-confirmation form:
// same fields, no controls, so a duplicate submission is impossible.
func EncodeSubmittedReceipt(r *UploadRequest) *Card {
	return &Card{
		Title:  TitleSubmitted,
		Body:   summaryLine(r.Source),
		Fields: requestFields(r),
	}
}

// EncodeCancelledNotice renders the terminal cancellation form of the
// state card. No controls: cancellation accepts no further transitions.
func EncodeCancelledNotice(r *UploadRequest) *Card {
	return &Card{
		Title:  TitleCancelled,
		Body:   summaryLine(r.Source),
		Fields: requestFields(r),
	}
}

// EncodeReviewCard renders the officer-facing review card. The request
// card reference ties the review back to the requester's state card, which
// is how approval can later delete it and notify the requester.
func EncodeReviewCard(r *UploadRequest) *Card {
	fields := []CardField{
		{Label: fieldRequester, Value: encodeMention(r.RequesterID)},
		{Label: fieldRequestCard, Value: encodeCardRef(r.Card)},
	}
	fields = append(fields, requestFields(r)...)
	return &Card{
		Title:  TitleReview,
		Body:   summaryLine(r.Source),
		Fields: fields,
		Buttons: []Button{
			{ID: ComponentApprove, Label: "Approve", Style: ButtonPrimary},
			{ID: ComponentDeny, Label: "Deny", Style: ButtonDanger},
			{ID: ComponentOfficerEdit, Label: "Edit"},
		},
	}
}

// DecodeReviewCard parses a review card (pending or terminal) back into a
// request. Terminal receipts still decode so the already-processed guard
// can distinguish them from unrecognized messages.
func DecodeReviewCard(card *Card) (*UploadRequest, error) {
	if card == nil {
		return nil, ErrNotFound
	}
	var state State
	switch card.Title {
	case TitleReview:
		state = StatePendingReview
	case TitleApproved:
		state = StateApproved
	case TitleDenied:
		state = StateDenied
	case TitleFailed:
		state = StateFailed
	default:
		return nil, fmt.Errorf("%w: unrecognized card title %q", ErrNotFound, card.Title)
	}

	src, err := parseSummary(card.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	req := &UploadRequest{Source: src, Lifecycle: state}

	requester, ok := card.Field(fieldRequester)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s field", ErrNotFound, fieldRequester)
	}
	req.RequesterID = decodeMention(requester)

	cardRef, ok := card.Field(fieldRequestCard)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s field", ErrNotFound, fieldRequestCard)
	}
	ref, err := decodeCardRef(cardRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	req.Card = ref

	if err := decodeRequestFields(card, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return req, nil
}

// EncodeApprovedReceipt renders the terminal approved form of the review
// card, naming the reviewer and linking the stored file.
func EncodeApprovedReceipt(r *UploadRequest, reviewerID, viewURL string) *Card {
	fields := []CardField{
		{Label: fieldRequester, Value: encodeMention(r.RequesterID)},
		{Label: fieldRequestCard, Value: encodeCardRef(r.Card)},
		{Label: fieldApprovedBy, Value: encodeMention(reviewerID)},
	}
	fields = append(fields, requestFields(r)...)
	if viewURL != "" {
		fields = append(fields, CardField{Label: fieldFile, Value: viewURL})
	}
	return &Card{Title: TitleApproved, Body: summaryLine(r.Source), Fields: fields}
}

// EncodeDeniedReceipt renders the terminal denied form of the review card.
func EncodeDeniedReceipt(r *UploadRequest, reviewerID string) *Card {
	fields := []CardField{
		{Label: fieldRequester, Value: encodeMention(r.RequesterID)},
		{Label: fieldRequestCard, Value: encodeCardRef(r.Card)},
		{Label: fieldDeniedBy, Value: encodeMention(reviewerID)},
	}
	fields = append(fields, requestFields(r)...)
	return &Card{Title: TitleDenied, Body: summaryLine(r.Source), Fields: fields}
}

// EncodeFailedReceipt renders the terminal failed form of the review card,
// including the transfer error detail for the reviewer.
func EncodeFailedReceipt(r *UploadRequest, detail string) *Card {
	fields := []CardField{
		{Label: fieldRequester, Value: encodeMention(r.RequesterID)},
		{Label: fieldRequestCard, Value: encodeCardRef(r.Card)},
	}
	fields = append(fields, requestFields(r)...)
	fields = append(fields, CardField{Label: fieldError, Value: detail})
	return &Card{Title: TitleFailed, Body: summaryLine(r.Source), Fields: fields}
}

// EncodeSuccessNotice is the out-of-band notification to the requester
// after an approved transfer.
func EncodeSuccessNotice(r *UploadRequest, viewURL string) *Card {
	card := &Card{
		Title: "Upload Complete",
		Body:  fmt.Sprintf("%s was uploaded to %s.", r.TargetFileName, displayPath(r.Destination)),
	}
	if viewURL != "" {
		card.Fields = append(card.Fields, CardField{Label: fieldFile, Value: viewURL})
	}
	return card
}

// EncodeDenialNotice is the out-of-band notification to the requester
// after a denial, naming the denier.
func EncodeDenialNotice(r *UploadRequest, reviewerID string) *Card {
	return &Card{
		Title: "Upload Denied",
		Body:  fmt.Sprintf("Your upload request for %s was denied by %s.", r.TargetFileName, encodeMention(reviewerID)),
	}
}

func displayPath(segments []string) string {
	if len(segments) == 0 {
		return sentinelRoot
	}
	return strings.Join(segments, "/")
}
