// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/one-kvm/one-kvm/pkg/log"
	"github.com/one-kvm/one-kvm/service/operator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	op := operator.New(
		operator.WithName("one-kvm"),
	)

	if err := op.Run(ctx, nil); err != nil && ctx.Err() == nil {
		log.GetGlobalLogger().Error("Operator exited", "error", err)
		os.Exit(1)
	}
}
