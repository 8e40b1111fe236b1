package grpcapi

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthMetadataProcessor compares the incoming authorization metadata
// against a configured set of bearer tokens. An unknown or
// missing token yields UNAUTHENTICATED.
type AuthMetadataProcessor struct {
	tokens map[string]struct{}
}

// NewAuthMetadataProcessor builds a processor accepting exactly the
// given tokens.
func NewAuthMetadataProcessor(tokens []string) *AuthMetadataProcessor {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &AuthMetadataProcessor{tokens: set}
}

func (p *AuthMetadataProcessor) authorize(ctx context.Context) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	token := strings.TrimPrefix(values[0], "Bearer ")
	if _, ok := p.tokens[token]; !ok {
		return status.Error(codes.Unauthenticated, "unknown bearer token")
	}
	return nil
}

// UnaryInterceptor rejects unauthenticated unary calls before they
// reach the handler.
func (p *AuthMetadataProcessor) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if err := p.authorize(ctx); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// StreamInterceptor rejects unauthenticated streaming calls (including
// Batch) before the first message is processed.
func (p *AuthMetadataProcessor) StreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := p.authorize(ss.Context()); err != nil {
		return err
	}
	return handler(srv, ss)
}
