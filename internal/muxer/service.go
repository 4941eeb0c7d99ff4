package muxer

import (
	"context"
	"fmt"
	"time"
)

// MuxOutcome is the result of a successful identifier request: either a
// redirect to the raw video rendition (manifest carries no audio) or a
// finished artifact ready for delivery. Exactly one field is set.
type MuxOutcome struct {
	RedirectURL string
	Artifact    *Artifact
}

// Service runs the per-request pipeline: manifest fetch and validation,
// rendition selection, mux, and post resolution. It holds no per-request
// state; every request's pipeline is independent end to end.
type Service struct {
	manifests     *ManifestClient
	resolver      *Resolver
	encoder       Encoder
	publicBaseURL string
}

// NewService wires the pipeline stages together. publicBaseURL is the
// externally reachable root used to build redirect targets for resolved
// identifiers.
func NewService(manifests *ManifestClient, resolver *Resolver, encoder Encoder, publicBaseURL string) *Service {
	return &Service{
		manifests:     manifests,
		resolver:      resolver,
		encoder:       encoder,
		publicBaseURL: publicBaseURL,
	}
}

// MuxVideo fetches the manifest for id, picks the best video and audio
// renditions, and muxes them into an artifact. A manifest without an audio
// set short-circuits to a redirect at the raw video rendition. A manifest
// without a video set is an upstream-shape error.
func (s *Service) MuxVideo(ctx context.Context, id MediaID) (*MuxOutcome, error) {
	manifest, err := s.manifests.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	videoSet, ok := manifest.FindAdaptationSet(contentTypeVideo)
	if !ok {
		return nil, fmt.Errorf("%w: manifest has no video adaptation set", ErrUnexpectedShape)
	}
	bestVideo, err := BestRepresentation(videoSet.Representations)
	if err != nil {
		return nil, err
	}

	audioSet, ok := manifest.FindAdaptationSet(contentTypeAudio)
	if !ok {
		return &MuxOutcome{RedirectURL: s.manifests.RenditionURL(id, bestVideo)}, nil
	}
	bestAudio, err := BestRepresentation(audioSet.Representations)
	if err != nil {
		return nil, err
	}

	// Millisecond tag keeps concurrent jobs for the same id on distinct files.
	tag := time.Now().UnixMilli()
	path, err := s.encoder.Mux(ctx, id, bestVideo, bestAudio, tag)
	if err != nil {
		return nil, err
	}
	return &MuxOutcome{Artifact: &Artifact{Path: path}}, nil
}

// ResolvePost resolves a post path to the public URL of its identifier
// endpoint. The bool reports whether the resolution was served from cache.
func (s *Service) ResolvePost(ctx context.Context, postPath string) (string, bool, error) {
	id, cached, err := s.resolver.Resolve(ctx, postPath)
	if err != nil {
		return "", cached, err
	}
	return fmt.Sprintf("%s/%s", s.publicBaseURL, id), cached, nil
}
