package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_KeepsNewestFix(t *testing.T) {
	f := NewFeed()
	fixes, _, err := f.Watch(context.Background())
	require.NoError(t, err)

	f.Push(Reading{Latitude: 1})
	f.Push(Reading{Latitude: 2})
	f.Push(Reading{Latitude: 3})

	assert.Equal(t, 3.0, (<-fixes).Latitude)
	select {
	case r := <-fixes:
		t.Fatalf("unexpected stale fix %v", r)
	default:
	}
}

func TestFeed_FailDropsWhenPending(t *testing.T) {
	f := NewFeed()
	_, errs, _ := f.Watch(context.Background())

	f.Fail(errors.New("first"))
	f.Fail(errors.New("second"))
	assert.EqualError(t, <-errs, "first")
}

func TestFeed_DrivesSession(t *testing.T) {
	backend := &fakeBackend{}
	feed := NewFeed()
	s := newSharingSession(t, backend, feed, slowOptions())

	feed.Push(Reading{Latitude: 18.79, Longitude: 98.98, Accuracy: 6})
	require.Eventually(t, func() bool { return len(backend.published()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 6.0, backend.published()[0].write.Accuracy)
	assert.Equal(t, StateSharing, s.View().State)
}

func TestParseReading(t *testing.T) {
	r, err := ParseReading("18.7883, 98.9853, 12")
	require.NoError(t, err)
	assert.Equal(t, Reading{Latitude: 18.7883, Longitude: 98.9853, Accuracy: 12}, r)

	r, err = ParseReading("-1.5 2.5")
	require.NoError(t, err)
	assert.Equal(t, Reading{Latitude: -1.5, Longitude: 2.5}, r)

	for _, bad := range []string{"", "1", "1 2 3 4", "x 2", "91 0", "0 181", "1 2 -3"} {
		_, err := ParseReading(bad)
		assert.Error(t, err, bad)
	}
}
