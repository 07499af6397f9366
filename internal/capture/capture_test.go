package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyKind(t *testing.T) {
	cases := map[string]Kind{
		"0":                       KindUSB,
		"/dev/video2":             KindUSB,
		"rtsp://cam.local/stream": KindIPCamera,
		"http://cam.local/mjpeg":  KindIPCamera,
		"https://cam.local/feed":  KindIPCamera,
		"/videos/sample.mp4":      KindVideoFile,
		"/videos/sample.MKV":      KindVideoFile,
	}
	for source, want := range cases {
		require.Equal(t, want, ClassifyKind(source), source)
	}
}

func TestIsNumericDeviceIndex(t *testing.T) {
	n, ok := IsNumericDeviceIndex("2")
	require.True(t, ok)
	require.Equal(t, 2, n)

	_, ok = IsNumericDeviceIndex("/dev/video2")
	require.False(t, ok)
}

func TestExtractJPEGFrameFindsOneAndConsumesBuffer(t *testing.T) {
	buf := []byte{0x00, 0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9, 0x99}
	frame := extractJPEGFrame(&buf)
	require.Equal(t, []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}, frame)
	require.Equal(t, []byte{0x99}, buf)
}

func TestExtractJPEGFrameIncompleteReturnsNil(t *testing.T) {
	buf := []byte{0xFF, 0xD8, 0x01, 0x02}
	frame := extractJPEGFrame(&buf)
	require.Nil(t, frame)
	require.Len(t, buf, 4)
}

func TestExtractJPEGFrameExtractsMultipleSequentially(t *testing.T) {
	buf := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9, 0xFF, 0xD8, 0xBB, 0xFF, 0xD9}
	first := extractJPEGFrame(&buf)
	require.Equal(t, []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}, first)
	second := extractJPEGFrame(&buf)
	require.Equal(t, []byte{0xFF, 0xD8, 0xBB, 0xFF, 0xD9}, second)
	require.Empty(t, buf)
}

// TestLatestReturnsCopyNotSharedSlice asserts the freshest-frame buffer's
// reader-gets-a-copy guarantee (spec §4.1: "reads return a copy so the
// producer may safely overwrite").
func TestLatestReturnsCopyNotSharedSlice(t *testing.T) {
	s := New("cam", "0", Config{})
	s.publish([]byte{1, 2, 3})

	f1 := s.Latest()
	require.NotNil(t, f1)
	f1.Data[0] = 0xFF

	f2 := s.Latest()
	require.Equal(t, byte(1), f2.Data[0], "mutating a returned frame must not affect the mailbox slot")
}

// TestPublishOverwritesMailboxSlot asserts drop-oldest, single-slot
// semantics: only the most recent publish is ever visible.
func TestPublishOverwritesMailboxSlot(t *testing.T) {
	s := New("cam", "0", Config{})
	s.publish([]byte{1})
	s.publish([]byte{2})
	s.publish([]byte{3})

	got := s.Latest()
	require.Equal(t, []byte{3}, got.Data)
}

// TestNotifyChanIsNonBlockingDoorbell asserts the producer is never
// blocked by a slow or absent reader: repeated publishes without draining
// the doorbell must not deadlock.
func TestNotifyChanIsNonBlockingDoorbell(t *testing.T) {
	s := New("cam", "0", Config{})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.publish([]byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on doorbell channel")
	}

	select {
	case <-s.NotifyChan():
	default:
		t.Fatal("expected a pending doorbell notification")
	}
}

func TestLatestNilBeforeFirstPublish(t *testing.T) {
	s := New("cam", "0", Config{})
	require.Nil(t, s.Latest())
}

// TestWithinWarmUpZeroDeadlineNeverTolerates asserts non-USB sources (no
// WarmUp phase, zero warmUntil) never silently tolerate a read failure.
func TestWithinWarmUpZeroDeadlineNeverTolerates(t *testing.T) {
	require.False(t, withinWarmUp(time.Time{}))
}

// TestWithinWarmUpBeforeAndAfterDeadline asserts the tolerance window is
// exactly [now, warmUntil), matching spec §4.1: failures during WarmUp are
// tolerated, failures after it are counted.
func TestWithinWarmUpBeforeAndAfterDeadline(t *testing.T) {
	require.True(t, withinWarmUp(time.Now().Add(time.Minute)))
	require.False(t, withinWarmUp(time.Now().Add(-time.Minute)))
}

// TestEndWarmUpAfterFlipsStateOnceDeadlinePasses asserts a Source sitting in
// WarmUp transitions to Streaming once the tolerance window elapses, without
// any producer activity driving the change (spec §4.1: WarmUp is time-bound,
// USB only).
func TestEndWarmUpAfterFlipsStateOnceDeadlinePasses(t *testing.T) {
	s := New("cam", "0", Config{})
	s.setState(StateWarmUp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.endWarmUpAfter(ctx, time.Now().Add(10*time.Millisecond))

	require.Equal(t, StateStreaming, s.Status().State)
}

// TestEndWarmUpAfterLeavesOtherStatesAlone asserts a state change that
// already occurred before the deadline (e.g. a failure forcing
// Reconnecting) is not clobbered back to Streaming.
func TestEndWarmUpAfterLeavesOtherStatesAlone(t *testing.T) {
	s := New("cam", "0", Config{})
	s.setState(StateReconnecting)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.endWarmUpAfter(ctx, time.Now().Add(10*time.Millisecond))

	require.Equal(t, StateReconnecting, s.Status().State)
}
