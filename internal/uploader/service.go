package uploader

import (
	"context"
	"fmt"
	"strings"
)

// Service is the workflow core. It owns no durable state: in-flight
// requests live entirely in their rendered cards, and the pending-edit
// relay only bridges the two halves of a modal interaction.
type Service struct {
	chat    ChatPlatform
	blobs   BlobStore
	folders FolderResolver
	routes  RouteSource
	pending PendingEdits
	gate    *Gate
	tokens  TokenGenerator
	logger  Logger
}

// NewService creates a fully wired workflow service.
func NewService(chat ChatPlatform, blobs BlobStore, folders FolderResolver, routes RouteSource, pending PendingEdits, tokens TokenGenerator, logger Logger) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		chat:    chat,
		blobs:   blobs,
		folders: folders,
		routes:  routes,
		pending: pending,
		gate:    NewGate(routes, logger),
		tokens:  tokens,
		logger:  logger,
	}
}

// Initiate handles a flagged source item. Disallowed attempts return nil
// with no message to the actor; allowed attempts materialize a request and
// send its state card, whose message identity becomes the request's key.
func (s *Service) Initiate(ctx context.Context, actor Actor, item SourceItem) error {
	allowed, reason := s.gate.CanInitiate(ctx, actor, item)
	if !allowed {
		s.logger.Debug("initiation ignored", "actor", actor.ID, "reason", reason)
		return nil
	}

	req := &UploadRequest{
		RequesterID:    actor.ID,
		Source:         item.Ref,
		TargetFileName: item.Ref.OriginalName,
		Lifecycle:      StateCollecting,
	}
	// Sizes only survive the card at rendered precision, so normalize up
	// front and every later round trip is exact.
	req.Source.Size = NormalizeSize(req.Source.Size)

	card := EncodeStateCard(req, s.folders.ListChildren(nil))
	ref, err := s.chat.SendDirect(ctx, actor.ID, card)
	if err != nil {
		return fmt.Errorf("sending state card: %w", err)
	}
	req.Card = ref

	s.logger.Info("upload request created",
		"requester", actor.ID,
		"file", req.Source.OriginalName,
		"card", ref.MessageID)
	return nil
}

// Requester-side transitions.

func (s *Service) applyNavigateInto(ctx context.Context, req *UploadRequest, ev *Event) (*Result, error) {
	if ev.Value == "" {
		return nil, fmt.Errorf("no folder selected")
	}
	req.Destination = append(req.Destination, ev.Value)
	return nil, s.rerenderStateCard(ctx, req)
}

func (s *Service) applyNavigateBack(ctx context.Context, req *UploadRequest, _ *Event) (*Result, error) {
	req.Destination = req.Destination[:len(req.Destination)-1]
	return nil, s.rerenderStateCard(ctx, req)
}

func (s *Service) applyEditDetails(_ context.Context, req *UploadRequest, _ *Event) (*Result, error) {
	token := s.tokens.New()
	s.pending.Put(token, *req)
	return &Result{Modal: &ModalRequest{
		ID:    ModalDetailsPrefix + token,
		Title: "Edit Upload Details",
		Inputs: []ModalInput{
			{ID: InputFileName, Label: "File Name", Value: req.TargetFileName, Required: true},
			{ID: InputDescription, Label: "Description", Value: req.Description},
		},
	}}, nil
}

// CompleteDetailsEdit finishes the requester edit form. The pending relay
// carries the request between the two steps; if it expired, the card
// itself is still the source of truth and is decoded instead.
func (s *Service) CompleteDetailsEdit(ctx context.Context, token string, ref CardRef, card *Card, fileName, description string) error {
	req, err := s.takePending(token, ref, card, DecodeStateCard, guardCollecting)
	if err != nil {
		return err
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return fmt.Errorf("file name is required")
	}
	req.TargetFileName = fileName
	req.Description = strings.TrimSpace(description)
	return s.rerenderStateCard(ctx, req)
}

func (s *Service) applyCancel(ctx context.Context, req *UploadRequest, ev *Event) (*Result, error) {
	req.Lifecycle = StateCancelled
	if err := s.chat.EditMessage(ctx, ev.Ref, EncodeCancelledNotice(req)); err != nil {
		return nil, fmt.Errorf("rendering cancellation: %w", err)
	}
	s.logger.Info("upload request cancelled", "requester", req.RequesterID, "card", ev.Ref.MessageID)
	return nil, nil
}

func (s *Service) applyConfirm(ctx context.Context, req *UploadRequest, ev *Event) (*Result, error) {
	// The state card is a direct message, so the confirming actor is the
	// requester. The decoded card does not carry the requester id; it is
	// re-established here and rendered onto the review card.
	req.RequesterID = ev.Actor.ID

	reviewChannel, err := s.routes.ReviewChannelFor(ctx, req.Source.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("looking up review channel: %w", err)
	}
	if reviewChannel == "" {
		return nil, fmt.Errorf("%w: no review channel mapped for this source", ErrConfigurationMissing)
	}

	req.Lifecycle = StatePendingReview
	reviewRef, err := s.chat.PostToChannel(ctx, reviewChannel, EncodeReviewCard(req))
	if err != nil {
		return nil, fmt.Errorf("posting review card: %w", err)
	}

	// Controls come off the state card so the request cannot be submitted
	// twice. If this edit fails the review already exists; log and move on.
	if err := s.chat.EditMessage(ctx, ev.Ref, EncodeSubmittedReceipt(req)); err != nil {
		s.logger.Warn("rewriting state card to receipt failed", "card", ev.Ref.MessageID, "error", err)
	}

	s.logger.Info("upload request submitted for review",
		"requester", req.RequesterID,
		"review", reviewRef.MessageID,
		"destination", req.DestinationString())
	return nil, nil
}

// Reviewer-side transitions. ev.Ref points at the review card; req.Card
// still points at the requester's original state card.

func (s *Service) applyApprove(ctx context.Context, req *UploadRequest, ev *Event) (*Result, error) {
	folderID, err := s.resolveDestination(ctx, req)
	if err != nil {
		terr := &TransferError{Stage: "resolve", Err: err}
		s.failReview(ctx, ev.Ref, req, terr)
		return nil, terr
	}

	body, reportedType, err := s.blobs.Download(ctx, req.Source.URL)
	if err != nil {
		terr := &TransferError{Stage: "download", Err: err}
		s.failReview(ctx, ev.Ref, req, terr)
		return nil, terr
	}
	defer body.Close()

	mimeType := req.Source.ContentType
	if mimeType == "" {
		mimeType = reportedType
	}

	result, err := s.blobs.Upload(ctx, folderID, req.TargetFileName, mimeType, body, req.Source.Size, req.Description)
	if err != nil {
		terr := &TransferError{Stage: "upload", Err: err}
		s.failReview(ctx, ev.Ref, req, terr)
		return nil, terr
	}

	req.Lifecycle = StateApproved
	if err := s.chat.EditMessage(ctx, ev.Ref, EncodeApprovedReceipt(req, ev.Actor.ID, result.ViewURL)); err != nil {
		s.logger.Error("rewriting review card to approved receipt failed", "review", ev.Ref.MessageID, "error", err)
	}
	s.deleteRequesterCard(ctx, req)
	if _, err := s.chat.SendDirect(ctx, req.RequesterID, EncodeSuccessNotice(req, result.ViewURL)); err != nil {
		s.logger.Warn("success notification failed", "requester", req.RequesterID, "error", err)
	}

	s.logger.Info("upload approved",
		"reviewer", ev.Actor.ID,
		"file", req.TargetFileName,
		"folder", folderID,
		"id", result.ID)
	return nil, nil
}

func (s *Service) applyDeny(ctx context.Context, req *UploadRequest, ev *Event) (*Result, error) {
	req.Lifecycle = StateDenied
	if err := s.chat.EditMessage(ctx, ev.Ref, EncodeDeniedReceipt(req, ev.Actor.ID)); err != nil {
		return nil, fmt.Errorf("rewriting review card: %w", err)
	}
	s.deleteRequesterCard(ctx, req)
	if _, err := s.chat.SendDirect(ctx, req.RequesterID, EncodeDenialNotice(req, ev.Actor.ID)); err != nil {
		s.logger.Warn("denial notification failed", "requester", req.RequesterID, "error", err)
	}
	s.logger.Info("upload denied", "reviewer", ev.Actor.ID, "file", req.TargetFileName)
	return nil, nil
}

func (s *Service) applyOfficerEdit(_ context.Context, req *UploadRequest, _ *Event) (*Result, error) {
	token := s.tokens.New()
	s.pending.Put(token, *req)
	return &Result{Modal: &ModalRequest{
		ID:    ModalOfficerEditPrefix + token,
		Title: "Edit Upload Request",
		Inputs: []ModalInput{
			{ID: InputFileName, Label: "File Name", Value: req.TargetFileName, Required: true},
			{ID: InputDescription, Label: "Description", Value: req.Description},
			// Reviewers type the destination freehand; it is validated at
			// approval time, not here.
			{ID: InputDestination, Label: "Destination Path", Value: req.DestinationString()},
		},
	}}, nil
}

// CompleteReviewEdit finishes the officer edit form, rewriting the review
// card's fields in place. The request stays pending.
func (s *Service) CompleteReviewEdit(ctx context.Context, token string, ref CardRef, card *Card, fileName, description, destination string) error {
	req, err := s.takePending(token, ref, card, DecodeReviewCard, guardPending)
	if err != nil {
		return err
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return fmt.Errorf("file name is required")
	}
	req.TargetFileName = fileName
	req.Description = strings.TrimSpace(description)
	req.Destination = decodePath(strings.Trim(strings.TrimSpace(destination), "/"))
	if err := s.chat.EditMessage(ctx, ref, EncodeReviewCard(req)); err != nil {
		return fmt.Errorf("rewriting review card: %w", err)
	}
	return nil
}

// takePending fetches the relayed request for a modal submission. The
// relay only bridges the two modal steps; the live card stays the source
// of truth, so it is decoded and guarded on every submission. A stale
// modal submitted after the card reached a terminal state is rejected
// even when its relay entry is still alive.
func (s *Service) takePending(token string, ref CardRef, card *Card, decode func(*Card) (*UploadRequest, error), guard func(*UploadRequest, *Event) error) (*UploadRequest, error) {
	relayed, hit := s.pending.Take(token)
	req, err := decode(card)
	if err != nil {
		return nil, err
	}
	if req.Card.IsZero() {
		req.Card = ref
	}
	if err := guard(req, nil); err != nil {
		return nil, err
	}
	if hit {
		return &relayed, nil
	}
	return req, nil
}

// resolveDestination tries the cache snapshot first and falls back to the
// direct backend walk, creating missing segments. The snapshot may be
// stale; the backend is authoritative at upload time.
func (s *Service) resolveDestination(ctx context.Context, req *UploadRequest) (string, error) {
	if id, ok := s.folders.ResolvePath(req.Destination); ok {
		return id, nil
	}
	return s.folders.EnsurePath(ctx, req.Destination)
}

func (s *Service) rerenderStateCard(ctx context.Context, req *UploadRequest) error {
	card := EncodeStateCard(req, s.folders.ListChildren(req.Destination))
	if err := s.chat.EditMessage(ctx, req.Card, card); err != nil {
		return fmt.Errorf("re-rendering state card: %w", err)
	}
	return nil
}

func (s *Service) failReview(ctx context.Context, reviewRef CardRef, req *UploadRequest, terr *TransferError) {
	req.Lifecycle = StateFailed
	if err := s.chat.EditMessage(ctx, reviewRef, EncodeFailedReceipt(req, terr.Error())); err != nil {
		s.logger.Error("rewriting review card to failed receipt failed", "review", reviewRef.MessageID, "error", err)
	}
	// The requester's card stays put and the requester is not notified;
	// the reviewer receipt carries the detail.
	s.logger.Error("upload transfer failed",
		"stage", terr.Stage,
		"file", req.TargetFileName,
		"error", terr.Err)
}

func (s *Service) deleteRequesterCard(ctx context.Context, req *UploadRequest) {
	if req.Card.IsZero() {
		return
	}
	if err := s.chat.DeleteMessage(ctx, req.Card); err != nil {
		s.logger.Warn("deleting requester card failed", "card", req.Card.MessageID, "error", err)
	}
}
