// Package ports defines the core interfaces for the gateway.
// This file contains the extension points of the request pipeline.
package ports

import (
	"context"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
)

// Translator turns a raw transport message into a normalized request.
type Translator interface {
	TranslateIncomingMessage(ctx context.Context, raw any) (*domain.Request, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, raw any) (*domain.Request, error)

func (f TranslatorFunc) TranslateIncomingMessage(ctx context.Context, raw any) (*domain.Request, error) {
	return f(ctx, raw)
}

// BackendFinder selects the alias and backend that should serve a request.
// ok is false when no backend applies.
type BackendFinder interface {
	FindBackend(ctx context.Context, req *domain.Request, lookup BackendLookup) (alias string, backend Backend, ok bool)
}

// SendArgs is handed to a ResponseSender once a backend has answered.
type SendArgs struct {
	Request  *domain.Request
	Response domain.Response
	// Raw is the untranslated message the request was built from.
	Raw any
}

// ResponseSender delivers a response back through the transport.
type ResponseSender interface {
	SendResponse(ctx context.Context, args SendArgs) error
}

// ResponseSenderFunc adapts a function to ResponseSender.
type ResponseSenderFunc func(ctx context.Context, args SendArgs) error

func (f ResponseSenderFunc) SendResponse(ctx context.Context, args SendArgs) error {
	return f(ctx, args)
}

// LifecycleHooks run server-specific work around backend startup and shutdown.
type LifecycleHooks interface {
	PerformStart(ctx context.Context) error
	PerformStop(ctx context.Context) error
}
