// Package errmap is the single translation table from error kinds to
// transport status codes. Both adapters render errors only through it, so an
// error means the same thing on either wire.
package errmap

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/blogd/internal/common"
	"google.golang.org/grpc/codes"
)

// Domain is reported in gRPC ErrorInfo details.
const Domain = "blogd"

type Mapping struct {
	HTTPStatus int
	GRPCCode   codes.Code
}

var table = map[common.Kind]Mapping{
	common.KindInvalidInput:      {http.StatusBadRequest, codes.InvalidArgument},
	common.KindUnauthorized:      {http.StatusUnauthorized, codes.Unauthenticated},
	common.KindExpiredCredential: {http.StatusUnauthorized, codes.Unauthenticated},
	common.KindInvalidCredential: {http.StatusUnauthorized, codes.Unauthenticated},
	common.KindForbidden:         {http.StatusForbidden, codes.PermissionDenied},
	common.KindNotFound:          {http.StatusNotFound, codes.NotFound},
	common.KindConflict:          {http.StatusConflict, codes.AlreadyExists},
	common.KindRateLimited:       {http.StatusTooManyRequests, codes.ResourceExhausted},
	common.KindInternal:          {http.StatusInternalServerError, codes.Internal},
}

// Lookup returns the mapping for kind, falling back to Internal.
func Lookup(kind common.Kind) Mapping {
	if m, ok := table[kind]; ok {
		return m
	}
	return table[common.KindInternal]
}

// Resolve classifies err and returns its kind, its transport mapping and
// the message safe to show a client.
func Resolve(err error) (common.Kind, Mapping, string) {
	kind := common.KindOf(err)
	return kind, Lookup(kind), Message(kind, err)
}

// Message renders err for clients. Internal errors never leak detail; other
// kinds report the wrapped message, which services keep free of internals.
func Message(kind common.Kind, err error) string {
	switch kind {
	case common.KindInternal:
		return common.ErrorInternal.Error()
	case common.KindUnauthorized:
		// Credential causes keep their own wording, everything else is generic.
		switch {
		case errors.Is(err, common.ErrTokenExpired):
			return "unauthorized: token expired"
		case errors.Is(err, common.ErrInvalidToken):
			return "unauthorized: invalid token"
		}
	}
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
