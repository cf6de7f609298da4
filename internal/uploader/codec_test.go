package uploader

import (
	"errors"
	"reflect"
	"testing"
)

func sampleRequest() *UploadRequest {
	return &UploadRequest{
		RequesterID: "user-1",
		Source: SourceRef{
			ChannelID:    "chan-1",
			MessageID:    "msg-1",
			URL:          "https://cdn.example.com/a/raid-notes.txt",
			Size:         NormalizeSize(2400000),
			ContentType:  "text/plain",
			OriginalName: "raid-notes.txt",
		},
		TargetFileName: "raid-notes.txt",
		Destination:    []string{"Guides", "Raids"},
		Description:    "Notes from last night",
		Lifecycle:      StateCollecting,
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{2400000, "2.29 MB"},
		{1 << 30, "1.00 GB"},
		{5368709120, "5.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseSize_invertsFormat(t *testing.T) {
	// ParseSize recovers the rendered value, not the original: rendering
	// truncates to two decimals, so parse(format(n)) is within rendering
	// precision of n and exact for already-normalized sizes.
	for _, n := range []int64{0, 1, 512, 1024, 1536, 2400000, 1 << 20, 1 << 30} {
		normalized := NormalizeSize(n)
		got, err := ParseSize(FormatSize(normalized))
		if err != nil {
			t.Fatalf("ParseSize(FormatSize(%d)) error = %v", normalized, err)
		}
		if got != normalized {
			t.Errorf("ParseSize(FormatSize(%d)) = %d, want %d", normalized, got, normalized)
		}
	}
}

func TestParseSize_malformed(t *testing.T) {
	for _, s := range []string{"", "1024", "2.29", "2.29 TB", "big MB"} {
		if _, err := ParseSize(s); err == nil {
			t.Errorf("ParseSize(%q) expected error", s)
		}
	}
}

func TestNormalizeSize_isFixedPoint(t *testing.T) {
	for _, n := range []int64{0, 999, 2400000, 123456789, 1 << 31} {
		once := NormalizeSize(n)
		twice := NormalizeSize(once)
		if once != twice {
			t.Errorf("NormalizeSize not stable for %d: %d then %d", n, once, twice)
		}
	}
}

func TestStateCardRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadRequest)
	}{
		{"full request", func(r *UploadRequest) {}},
		{"root destination", func(r *UploadRequest) { r.Destination = nil }},
		{"empty description", func(r *UploadRequest) { r.Description = "" }},
		{"no content type", func(r *UploadRequest) { r.Source.ContentType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := sampleRequest()
			tt.mutate(want)

			card := EncodeStateCard(want, []string{"Guides", "Media"})
			got, err := DecodeStateCard(card)
			if err != nil {
				t.Fatalf("DecodeStateCard() error = %v", err)
			}

			// The state card does not carry the requester id or card ref;
			// those live in the message identity.
			want.RequesterID = ""
			want.Card = CardRef{}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestStateCardControls(t *testing.T) {
	t.Run("back button only below root", func(t *testing.T) {
		atRoot := sampleRequest()
		atRoot.Destination = nil
		if hasButton(EncodeStateCard(atRoot, nil), ComponentBack) {
			t.Error("card at root should not offer Back")
		}

		nested := sampleRequest()
		if !hasButton(EncodeStateCard(nested, nil), ComponentBack) {
			t.Error("card below root should offer Back")
		}
	})

	t.Run("picker omitted without children", func(t *testing.T) {
		if EncodeStateCard(sampleRequest(), nil).Select != nil {
			t.Error("card without children should not have a picker")
		}
		card := EncodeStateCard(sampleRequest(), []string{"Media"})
		if card.Select == nil || card.Select.ID != ComponentNavigate {
			t.Errorf("picker = %+v, want navigate menu", card.Select)
		}
	})

	t.Run("receipts carry no controls", func(t *testing.T) {
		r := sampleRequest()
		for _, card := range []*Card{EncodeSubmittedReceipt(r), EncodeCancelledNotice(r)} {
			if card.Select != nil || len(card.Buttons) != 0 {
				t.Errorf("%q should render without controls", card.Title)
			}
		}
	})
}

func TestDecodeStateCard_titleSetsLifecycle(t *testing.T) {
	r := sampleRequest()

	tests := []struct {
		card *Card
		want State
	}{
		{EncodeStateCard(r, nil), StateCollecting},
		{EncodeSubmittedReceipt(r), StatePendingReview},
		{EncodeCancelledNotice(r), StateCancelled},
	}
	for _, tt := range tests {
		got, err := DecodeStateCard(tt.card)
		if err != nil {
			t.Fatalf("DecodeStateCard(%q) error = %v", tt.card.Title, err)
		}
		if got.Lifecycle != tt.want {
			t.Errorf("DecodeStateCard(%q).Lifecycle = %s, want %s", tt.card.Title, got.Lifecycle, tt.want)
		}
	}
}

func TestDecodeStateCard_rejectsForeignCards(t *testing.T) {
	tests := []struct {
		name string
		card *Card
	}{
		{"nil card", nil},
		{"unrecognized title", &Card{Title: "Weekly Poll", Body: "vote below"}},
		{"review card title", EncodeReviewCard(sampleRequest())},
		{"mangled summary", &Card{Title: TitleStateCard, Body: "not a summary line"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeStateCard(tt.card); !errors.Is(err, ErrNotFound) {
				t.Errorf("DecodeStateCard() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestReviewCardRoundTrip(t *testing.T) {
	want := sampleRequest()
	want.Lifecycle = StatePendingReview
	want.Card = CardRef{ChannelID: "dm:user-1", MessageID: "msg-9"}

	got, err := DecodeReviewCard(EncodeReviewCard(want))
	if err != nil {
		t.Fatalf("DecodeReviewCard() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestDecodeReviewCard_terminalTitles(t *testing.T) {
	r := sampleRequest()
	r.Card = CardRef{ChannelID: "dm:user-1", MessageID: "msg-9"}

	tests := []struct {
		card *Card
		want State
	}{
		{EncodeReviewCard(r), StatePendingReview},
		{EncodeApprovedReceipt(r, "officer-1", "https://drive.example.com/f/1"), StateApproved},
		{EncodeDeniedReceipt(r, "officer-1"), StateDenied},
		{EncodeFailedReceipt(r, "upload: connection reset"), StateFailed},
	}
	for _, tt := range tests {
		got, err := DecodeReviewCard(tt.card)
		if err != nil {
			t.Fatalf("DecodeReviewCard(%q) error = %v", tt.card.Title, err)
		}
		if got.Lifecycle != tt.want {
			t.Errorf("DecodeReviewCard(%q).Lifecycle = %s, want %s", tt.card.Title, got.Lifecycle, tt.want)
		}
		if got.RequesterID != r.RequesterID {
			t.Errorf("RequesterID = %q, want %q", got.RequesterID, r.RequesterID)
		}
	}
}

func TestDecodeReviewCard_recoversRequesterAndCardRef(t *testing.T) {
	r := sampleRequest()
	r.Lifecycle = StatePendingReview
	r.Card = CardRef{ChannelID: "dm:user-1", MessageID: "msg-42"}

	got, err := DecodeReviewCard(EncodeReviewCard(r))
	if err != nil {
		t.Fatalf("DecodeReviewCard() error = %v", err)
	}
	if got.RequesterID != "user-1" {
		t.Errorf("RequesterID = %q, want %q", got.RequesterID, "user-1")
	}
	if got.Card != r.Card {
		t.Errorf("Card = %+v, want %+v", got.Card, r.Card)
	}
}

func TestFileNameWithParensSurvives(t *testing.T) {
	r := sampleRequest()
	r.Source.OriginalName = "screenshot (final) (2).png"
	r.TargetFileName = r.Source.OriginalName

	got, err := DecodeStateCard(EncodeStateCard(r, nil))
	if err != nil {
		t.Fatalf("DecodeStateCard() error = %v", err)
	}
	if got.Source.OriginalName != r.Source.OriginalName {
		t.Errorf("OriginalName = %q, want %q", got.Source.OriginalName, r.Source.OriginalName)
	}
}

func hasButton(card *Card, id string) bool {
	for _, b := range card.Buttons {
		if b.ID == id {
			return true
		}
	}
	return false
}
