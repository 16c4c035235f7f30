package main

import (
	"context"
	"log"
	"time"

	"medrefBack/internal/settlement/otp"
)

const otpSweepTimeout = 30 * time.Second

// startOTPSweeper removes expired signing sessions once a minute. The redis
// store expires keys by TTL on its own; the sweep matters for the in-memory
// store used in dev.
func startOTPSweeper(ctx context.Context, store otp.Store, infoLog, errorLog *log.Logger) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, otpSweepTimeout)
				removed, err := store.DeleteExpired(runCtx, time.Now())
				cancel()
				if err != nil {
					errorLog.Printf("otp sweeper: %v", err)
				} else if removed > 0 {
					infoLog.Printf("otp sweeper: removed %d expired sessions", removed)
				}
			}
		}
	}()
}
