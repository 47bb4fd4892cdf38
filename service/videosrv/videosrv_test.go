// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"context"
	"testing"
	"time"

	"github.com/one-kvm/one-kvm/pkg/video"
)

// countedFrame builds a frame whose buffer-release is observable.
func countedFrame(released *bool) *video.Frame {
	res := video.Resolution{Width: 8, Height: 8}
	buf := make([]byte, video.FrameSize(video.FormatGrey, res))
	return video.NewFrame(buf, video.FormatGrey, res, 8, 1, time.Now(), true, func([]byte) {
		*released = true
	})
}

func TestDistributeRetainsPerMjpegSubscriber(t *testing.T) {
	svc := New(WithRegistry(NewRegistry()))

	r1 := svc.SubscribeMjpeg()
	r2 := svc.SubscribeMjpeg()

	released := false
	svc.distribute(countedFrame(&released))

	if released {
		t.Fatal("buffer recycled while subscribers still hold references")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	f1, err := r1.Next(ctx)
	if err != nil {
		t.Fatalf("Next r1: %v", err)
	}
	f1.Release()

	if released {
		t.Fatal("one subscriber's Release must not free the other's view")
	}

	f2, err := r2.Next(ctx)
	if err != nil {
		t.Fatalf("Next r2: %v", err)
	}
	if len(f2.Bytes()) == 0 {
		t.Fatal("second subscriber observed a freed frame")
	}
	f2.Release()

	if !released {
		t.Fatal("buffer not recycled after the last reference dropped")
	}
}

func TestDistributeReleasesWithNoSubscribers(t *testing.T) {
	svc := New(WithRegistry(NewRegistry()))

	released := false
	svc.distribute(countedFrame(&released))

	if !released {
		t.Fatal("unforwarded frame must drop the producer reference")
	}
}

func TestDistributeReleasesAfterSubscriberDetach(t *testing.T) {
	svc := New(WithRegistry(NewRegistry()))

	r := svc.SubscribeMjpeg()

	released := false
	svc.distribute(countedFrame(&released))
	if released {
		t.Fatal("frame freed while pending for a subscriber")
	}

	// Closing with the frame still queued releases the receiver's
	// reference.
	r.Close()
	if !released {
		t.Fatal("pending frame leaked on subscriber detach")
	}
}
