package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/session"
)

// ResolveFailureKind classifies payload resolution failures for root-level mapping.
type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureUnauthorized
	ResolveFailureMalformed
	ResolveFailureAccountNotFound
	ResolveFailureStore
)

// ResolveResult returns either the resolved account or a classified failure.
type ResolveResult struct {
	Failure ResolveFailureKind
	Err     error
	Payload session.Payload
	Account *account.Account
}

// ResolveDeps captures session payload resolution dependencies.
type ResolveDeps struct {
	Mode session.Mode

	ParseBearer        func(string) (session.Payload, error)
	FindByID           func(context.Context, string) (*account.Account, error)
	FindBySessionToken func(context.Context, string) (*account.Account, error)
}

// RunResolvePayload maps a serialized identity claim back to an account. In
// token mode the repository hit is re-checked against the account's current
// session set, so a token evicted after the lookup index was read still fails.
func RunResolvePayload(ctx context.Context, raw map[string]any, deps ResolveDeps) ResolveResult {
	p, err := session.ParsePayload(deps.Mode, raw)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureMalformed, Err: err}
	}
	return resolve(ctx, p, deps)
}

// RunResolveBearer parses a signed bearer credential and resolves its payload.
func RunResolveBearer(ctx context.Context, bearer string, deps ResolveDeps) ResolveResult {
	if deps.ParseBearer == nil {
		return ResolveResult{Failure: ResolveFailureUnauthorized}
	}
	p, err := deps.ParseBearer(bearer)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureUnauthorized, Err: err}
	}
	return resolve(ctx, p, deps)
}

func resolve(ctx context.Context, p session.Payload, deps ResolveDeps) ResolveResult {
	var (
		acc *account.Account
		err error
	)
	if deps.Mode == session.ModeStateless {
		if p.ID == "" || deps.FindByID == nil {
			return ResolveResult{Failure: ResolveFailureMalformed, Payload: p, Err: session.ErrPayloadMissingID}
		}
		acc, err = deps.FindByID(ctx, p.ID)
	} else {
		if p.AuthToken == "" || deps.FindBySessionToken == nil {
			return ResolveResult{Failure: ResolveFailureMalformed, Payload: p, Err: session.ErrPayloadMissingToken}
		}
		acc, err = deps.FindBySessionToken(ctx, p.AuthToken)
	}
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ResolveResult{Failure: ResolveFailureAccountNotFound, Payload: p, Err: err}
		}
		return ResolveResult{Failure: ResolveFailureStore, Payload: p, Err: err}
	}

	if deps.Mode != session.ModeStateless && !session.Resolve(acc.SessionTokens, p.AuthToken) {
		return ResolveResult{Failure: ResolveFailureAccountNotFound, Payload: p}
	}

	return ResolveResult{
		Payload: p,
		Account: acc,
	}
}
