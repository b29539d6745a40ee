package linkstore

import (
	"context"
	"crypto/rand"
	"errors"
	"time"
)

var (
	ErrTokenCollision = errors.New("linkstore: could not allocate a unique token")
	ErrTokenNotFound  = errors.New("linkstore: token not found")
	ErrTokenExpired   = errors.New("linkstore: token expired")
	ErrAlreadyClaimed = errors.New("linkstore: link already claimed a slot")
)

// maxAllocateAttempts bounds the retry loop on a token collision; with
// 16 random bytes a collision is astronomically unlikely, so this
// exists only to make the failure mode deterministic rather than an
// infinite loop.
const maxAllocateAttempts = 3

// Record is what the backend stores per token: the spec's Availability
// Link Record. LinkID is the requestId that produced it; the rest is
// the client-facing binding the availability view renders against.
type Record struct {
	LinkID            string
	AdvisorID         string
	ClientEmail       string
	ClientDisplayName string
	ClientReference   string
	ClientTimezone    string // empty means unset
	DurationMinutes   int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	Claimed           bool
}

// AllocateInput is everything Allocate needs to mint a new token and
// bind it to a client/advisor pair.
type AllocateInput struct {
	LinkID            string
	AdvisorID         string
	ClientEmail       string
	ClientDisplayName string
	ClientReference   string
	ClientTimezone    string
	DurationMinutes   int
	TTL               time.Duration
}

// Backend is the persistence seam Store is built on; package store
// provides a Postgres-backed implementation.
type Backend interface {
	// PutIfAbsent creates token->record iff token is not already
	// present, atomically. created is false (with a nil error) on a
	// pre-existing token.
	PutIfAbsent(ctx context.Context, token string, record Record) (created bool, err error)
	Get(ctx context.Context, token string) (Record, bool, error)
	// MarkClaimed atomically flips Claimed to true iff it was false.
	// claimed is false (with a nil error) when the record was already
	// claimed or does not exist.
	MarkClaimed(ctx context.Context, token string) (claimed bool, err error)
}

// Store allocates and resolves short opaque availability-link tokens.
type Store struct {
	backend     Backend
	tokenLength int
}

func NewStore(backend Backend, tokenLength int) Store {
	if tokenLength <= 0 {
		tokenLength = 16
	}
	return Store{backend: backend, tokenLength: tokenLength}
}

// Allocate mints a fresh token bound to in.LinkID. A collision against
// an existing token is retried up to maxAllocateAttempts times before
// giving up with ErrTokenCollision.
func (s Store) Allocate(ctx context.Context, in AllocateInput) (string, error) {
	now := time.Now()
	record := Record{
		LinkID:            in.LinkID,
		AdvisorID:         in.AdvisorID,
		ClientEmail:       in.ClientEmail,
		ClientDisplayName: in.ClientDisplayName,
		ClientReference:   in.ClientReference,
		ClientTimezone:    in.ClientTimezone,
		DurationMinutes:   in.DurationMinutes,
		CreatedAt:         now,
		ExpiresAt:         now.Add(in.TTL),
	}

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		token, err := generateToken(s.tokenLength)
		if err != nil {
			return "", err
		}
		created, err := s.backend.PutIfAbsent(ctx, token, record)
		if err != nil {
			return "", err
		}
		if created {
			return token, nil
		}
	}
	return "", ErrTokenCollision
}

// Resolve looks up a token, rejecting missing or expired ones.
func (s Store) Resolve(ctx context.Context, token string) (Record, error) {
	record, ok, err := s.backend.Get(ctx, token)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrTokenNotFound
	}
	if time.Now().After(record.ExpiresAt) {
		return Record{}, ErrTokenExpired
	}
	return record, nil
}

// Claim marks a token's link as having allocated its one slot. Calling
// Claim twice on the same token fails the second time with
// ErrAlreadyClaimed, enforcing at-most-one allocation per link.
func (s Store) Claim(ctx context.Context, token string) error {
	record, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if record.Claimed {
		return ErrAlreadyClaimed
	}
	claimed, err := s.backend.MarkClaimed(ctx, token)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyClaimed
	}
	return nil
}

// tokenAlphabet is the base62-ish charset the spec's 16-char short
// token id is drawn from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}
