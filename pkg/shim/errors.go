// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors the shim's RPC handlers wrap with context via
// errors.Wrapf; toGRPC below recovers the sentinel to pick the RPC code.
//
// NotFound, AlreadyExists and InvalidArgument already have errdefs
// equivalents; Aborted has no errdefs equivalent (errdefs' taxonomy stops
// at the codes containerd itself needs), so it stays a local sentinel
// mapped by hand.
var (
	ErrNotFound        = errdefs.ErrNotFound
	ErrAlreadyExists   = errdefs.ErrAlreadyExists
	ErrInvalidArgument = errdefs.ErrInvalidArgument
	ErrAborted         = errors.New("aborted")
)

// toGRPC maps a taxonomy error (or a plain error, treated as Internal) to a
// grpc/status error suitable for returning from a ttrpc handler. Errors
// already carrying a grpc status are passed through unchanged.
func toGRPC(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errdefs.IsNotFound(err):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errdefs.IsAlreadyExists(err):
		return status.Errorf(codes.AlreadyExists, "%s", err.Error())
	case errdefs.IsInvalidArgument(err):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, ErrAborted):
		return status.Errorf(codes.Aborted, "%s", err.Error())
	default:
		return status.Errorf(codes.Internal, "%s", err.Error())
	}
}

// toGRPCf wraps err with a formatted message before mapping it.
func toGRPCf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return toGRPC(errors.Wrapf(err, format, args...))
}
